package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/soonab/Soonab-sub000/config"
	"github.com/soonab/Soonab-sub000/moderation"
	"github.com/soonab/Soonab-sub000/ratelimit"
	"github.com/soonab/Soonab-sub000/reputation"
)

var log = logrus.WithField("prefix", "api")

// Server is the HTTP surface of the reputation engine.
type Server struct {
	httpServer *http.Server
	router     *gin.Engine

	engine   *reputation.Engine
	hub      *moderation.Hub
	limiter  *ratelimit.Limiter
	throttle *ipThrottle
	config   *config.Source

	traceMode bool
	upgrader  websocket.Upgrader
}

func NewServer(engine *reputation.Engine, hub *moderation.Hub, limiter *ratelimit.Limiter, cfg *config.Source) *Server {
	s := &Server{
		engine:    engine,
		hub:       hub,
		limiter:   limiter,
		throttle:  newIPThrottle(cfg.RequestsPerSecond),
		config:    cfg,
		traceMode: cfg.Viper().GetBool(config.KeyServerTrace),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
	s.router = s.setupRouter()
	return s
}

func (s *Server) setupRouter() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(s.DumpRequest)
	r.Use(s.throttleClient)

	r.GET("/healthz", s.healthz)

	v1 := r.Group("/v1")
	v1.Use(s.resolveIdentity)
	{
		v1.GET("/scores/:subject", s.readScore)
		v1.GET("/scores/:subject/history", s.scoreHistory)
	}

	member := v1.Group("")
	member.Use(s.requireIdentity)
	{
		member.GET("/quota", s.postQuota)
		member.POST("/ratings", s.burstGuard, s.submitRating)
		member.POST("/posts", s.burstGuard, s.createPost)
		member.POST("/replies", s.burstGuard, s.createReply)
		member.POST("/identities/merge", s.mergeIdentity)
	}

	admin := v1.Group("/admin")
	admin.Use(s.requireAdmin)
	{
		admin.POST("/recompute", s.recomputeAll)
		admin.DELETE("/subjects/:subject", s.resetSubject)
		admin.GET("/flags", s.listFlags)
		admin.GET("/flags/stream", s.streamFlags)
	}

	return r
}

// Handler exposes the router, mostly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves on the configured port until Shutdown is called.
func (s *Server) Run() error {
	port := s.config.Viper().GetInt(config.KeyServerPort)
	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	log.WithField("port", port).Info("server started")
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/soonab/Soonab-sub000/schema"
)

func (s *Server) recomputeAll(c *gin.Context) {
	n, err := s.engine.RecomputeAll(c.Request.Context())
	if err != nil {
		s.abortWithEngineError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"recomputed": n})
}

func (s *Server) resetSubject(c *gin.Context) {
	surface, target := subject(c)

	deleted, err := s.engine.ResetSubject(c.Request.Context(), surface, target)
	if err != nil {
		s.abortWithEngineError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"deleted": deleted})
}

func (s *Server) listFlags(c *gin.Context) {
	var params struct {
		Surface schema.RatingSurface `form:"surface"`
		Target  string               `form:"target"`
		Limit   int                  `form:"limit"`
	}

	if err := c.BindQuery(&params); err != nil {
		abortWithEncoding(c, http.StatusBadRequest, errorInvalidParameters, err)
		return
	}
	if params.Limit <= 0 || params.Limit > 500 {
		params.Limit = 100
	}

	flags, err := s.engine.ListBrigadeFlags(c.Request.Context(), params.Surface, params.Target, params.Limit)
	if err != nil {
		s.abortWithEngineError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"flags": flags})
}

// streamFlags upgrades to a websocket that receives every new flag.
func (s *Server) streamFlags(c *gin.Context) {
	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.WithError(err).Warn("upgrade flag stream")
		return
	}

	s.hub.ServeConn(conn)
}

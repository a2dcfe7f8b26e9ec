package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/pflag"

	"github.com/soonab/Soonab-sub000/api"
	"github.com/soonab/Soonab-sub000/config"
	"github.com/soonab/Soonab-sub000/moderation"
	"github.com/soonab/Soonab-sub000/ratelimit"
	"github.com/soonab/Soonab-sub000/reputation"
	"github.com/soonab/Soonab-sub000/schema"
	"github.com/soonab/Soonab-sub000/store"
	"github.com/soonab/Soonab-sub000/utils"
	"github.com/soonab/Soonab-sub000/worker"
)

const shutdownTimeout = 10 * time.Second

func main() {
	var configFile string
	pflag.StringVarP(&configFile, "config", "c", "", "path to a config file")
	pflag.Parse()

	cfg := config.New(nil)
	v := cfg.Viper()
	if configFile != "" {
		if err := config.LoadFile(v, configFile); err != nil {
			log.WithError(err).Fatal("load config")
		}
	}

	level, err := log.ParseLevel(v.GetString(config.KeyLogLevel))
	if err != nil {
		level = log.InfoLevel
	}
	log.SetLevel(level)
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})

	if !v.GetBool(config.KeyServerTrace) {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := utils.InitI18NBundle(); err != nil {
		log.WithError(err).Fatal("init i18n bundle")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	driver := v.GetString(config.KeyStoreDriver)
	dsn := v.GetString(config.KeyStoreDSN)
	database := v.GetString(config.KeyMongoDatabase)

	if driver == "mongo" || driver == "mongodb" {
		if err := schema.NewMongoDBIndexer(dsn, database).IndexAll(); err != nil {
			log.WithError(err).Fatal("create mongo indexes")
		}
	}

	db, err := store.Open(ctx, driver, dsn, database)
	if err != nil {
		log.WithError(err).WithField("driver", driver).Fatal("open store")
	}

	hub := moderation.NewHub()
	engine := reputation.New(db, cfg, reputation.WithNotifier(hub))
	server := api.NewServer(engine, hub, ratelimit.New(), cfg)

	w := worker.NewRecomputeWorker(engine, cfg.RecomputeInterval, server)
	go w.Run(ctx)

	go func() {
		if err := server.Run(); err != nil {
			log.WithError(err).Error("server stopped")
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("shutdown server")
	}
	hub.Close()
	if err := db.Close(shutdownCtx); err != nil {
		log.WithError(err).Error("close store")
	}
}

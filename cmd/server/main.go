// cmd/server/main.go
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"giftswap/internal/auth"
	"giftswap/internal/cache"
	"giftswap/internal/config"
	"giftswap/internal/game"
	"giftswap/internal/server"
	"giftswap/internal/session"
	"giftswap/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("load config")
	}
	setupLogging(cfg)

	ctx := context.Background()

	var st store.Store
	if cfg.DatabaseURL != "" {
		pg, err := store.NewPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			logrus.WithError(err).Fatal("connect postgres")
		}
		defer pg.Close()
		if err := pg.EnsureSchema(ctx); err != nil {
			logrus.WithError(err).Fatal("ensure schema")
		}
		st = pg
		logrus.Info("using postgres store")
	} else {
		st = store.NewMemory()
		logrus.Warn("DATABASE_URL not set, using in-memory store")
	}

	var ca *cache.Cache
	if cfg.RedisAddr != "" {
		ca, err = cache.Connect(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.RedisPrefix)
		if err != nil {
			logrus.WithError(err).Fatal("connect redis")
		}
		defer ca.Close()
		logrus.WithField("addr", cfg.RedisAddr).Info("redis mirror enabled")
	} else {
		logrus.Info("REDIS_ADDR not set, action mirror disabled")
	}

	manager := game.NewManager(st, ca, cfg.MaxStealPerGift)
	coord := session.NewCoordinator(manager, st)
	au := auth.New(cfg.JWTSecret)
	srv := server.New(st, ca, au, coord, cfg.AppEnv)

	httpSrv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logrus.WithField("addr", cfg.ListenAddr).Info("server listening")
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.WithError(err).Fatal("serve")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logrus.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logrus.WithError(err).Error("shutdown")
	}
}

func setupLogging(cfg *config.Config) {
	if cfg.AppEnv == "production" {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)
}

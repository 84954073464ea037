package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	"github.com/sketchparty/sketchparty-server/internal/config"
	"github.com/sketchparty/sketchparty-server/internal/httpapi"
	"github.com/sketchparty/sketchparty-server/internal/registry"
	"github.com/sketchparty/sketchparty-server/internal/words"
)

func main() {
	cfg := config.Load()

	logger := newLogger(cfg.LogLevel)
	defer func() { _ = logger.Sync() }()

	list := words.Default()
	if cfg.WordlistPath != "" {
		l, err := words.FromFile(cfg.WordlistPath)
		if err != nil {
			logger.Fatal("load word list", zap.Error(err))
		}
		list = l
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := registry.New(ctx, registry.Config{Words: list, Logger: logger})
	handler := httpapi.SetupRoutes(reg, cfg.AllowedOrigins, logger)

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: handler}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("listening",
			zap.String("addr", cfg.HTTPAddr),
			zap.Int("words", list.Len()))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		reg.Shutdown()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Fatal("server error", zap.Error(err))
	}
}

func newLogger(level string) *zap.Logger {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		lvl = zapcore.InfoLevel
	}
	zcfg := zap.NewProductionConfig()
	zcfg.Level = zap.NewAtomicLevelAt(lvl)
	return zap.Must(zcfg.Build())
}

package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/abelzeko/water-monitor/internal/api"
	"github.com/abelzeko/water-monitor/internal/bootstrap"
	"github.com/abelzeko/water-monitor/internal/config"
	"github.com/abelzeko/water-monitor/internal/logger"
	"github.com/abelzeko/water-monitor/internal/usecases"
)

func main() {
	cfg := config.Load()

	// Configure logging
	log, err := logger.NewLogger(cfg.LogLevel, cfg.LogFormat, "water-dashboard")
	if err != nil {
		panic(err)
	}
	defer log.Sync()
	log.Info("Starting Water Quality Dashboard...")

	for _, w := range cfg.Warnings {
		log.Warn("config", zap.String("warning", w))
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal("invalid configuration", zap.Error(err))
	}
	loc, err := cfg.Location()
	if err != nil {
		log.Warn("using local timezone", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize reading source
	source, err := bootstrap.NewSource(ctx, cfg, log)
	if err != nil {
		log.Fatal("failed to initialize data source", zap.String("source", cfg.DataSource), zap.Error(err))
	}
	defer source.Close()

	notifiers := bootstrap.NewNotifiers(ctx, cfg, source, log)
	defer notifiers.Close()

	// Initialize use case and refresher
	dashboard := usecases.NewDashboardUseCase(source, cfg.FetchTimeout, loc, log)
	refresher := usecases.NewRefresher(dashboard, cfg.RefreshInterval, notifiers.List, log)
	if err := refresher.Start(ctx); err != nil {
		log.Fatal("failed to start refresher", zap.Error(err))
	}
	defer refresher.Stop()

	// Initialize HTTP server
	if cfg.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	server, err := api.NewHTTPServer(dashboard, log)
	if err != nil {
		log.Fatal("failed to initialize HTTP server", zap.Error(err))
	}
	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           server.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Warn("http server shutdown", zap.Error(err))
	}
	refresher.Stop()
	log.Info("stopped")
}

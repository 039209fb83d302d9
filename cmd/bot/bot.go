package main

import (
	"context"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/abelzeko/water-monitor/internal/api"
	"github.com/abelzeko/water-monitor/internal/bootstrap"
	"github.com/abelzeko/water-monitor/internal/config"
	"github.com/abelzeko/water-monitor/internal/integration/openai"
	"github.com/abelzeko/water-monitor/internal/logger"
	"github.com/abelzeko/water-monitor/internal/usecases"
)

func main() {
	cfg := config.Load()

	// Configure logging
	log, err := logger.NewLogger(cfg.LogLevel, cfg.LogFormat, "water-bot")
	if err != nil {
		panic(err)
	}
	defer log.Sync()
	log.Info("Starting Water Quality Bot...")

	for _, w := range cfg.Warnings {
		log.Warn("config", zap.String("warning", w))
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal("invalid configuration", zap.Error(err))
	}
	if cfg.TelegramBotToken == "" {
		log.Fatal("TELEGRAM_BOT_TOKEN environment variable is not set")
	}
	loc, err := cfg.Location()
	if err != nil {
		log.Warn("using local timezone", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize OpenAI Service; free-text queries fall back to a help reply without it
	var openAIService openai.OpenAIService
	if cfg.OpenAIAPIKey != "" {
		openAIService, err = openai.NewOpenAIService(cfg.OpenAIAPIKey, log)
		if err != nil {
			log.Fatal("failed to initialize OpenAI service", zap.Error(err))
		}
	} else {
		log.Info("OPENAI_API_KEY not set, natural language queries disabled")
	}

	// Initialize reading source
	source, err := bootstrap.NewSource(ctx, cfg, log)
	if err != nil {
		log.Fatal("failed to initialize data source", zap.String("source", cfg.DataSource), zap.Error(err))
	}
	defer source.Close()

	notifiers := bootstrap.NewNotifiers(ctx, cfg, source, log)
	defer notifiers.Close()

	// Initialize use cases
	dashboard := usecases.NewDashboardUseCase(source, cfg.FetchTimeout, loc, log)
	query := usecases.NewQueryUseCase(dashboard, openAIService, log)

	refresher := usecases.NewRefresher(dashboard, cfg.RefreshInterval, notifiers.List, log)
	if err := refresher.Start(ctx); err != nil {
		log.Fatal("failed to start refresher", zap.Error(err))
	}
	defer refresher.Stop()

	// Initialize Telegram bot
	telegramBot, err := api.NewTelegramBot(cfg.TelegramBotToken, dashboard, query, log)
	if err != nil {
		log.Fatal("failed to initialize Telegram bot", zap.Error(err))
	}

	// Start the bot
	telegramBot.Start(ctx)
	log.Info("stopped")
}

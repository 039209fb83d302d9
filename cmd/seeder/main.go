package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/abelzeko/water-monitor/internal/bootstrap"
	"github.com/abelzeko/water-monitor/internal/config"
	"github.com/abelzeko/water-monitor/internal/entities"
	"github.com/abelzeko/water-monitor/internal/gauge"
	"github.com/abelzeko/water-monitor/internal/integration"
	"github.com/abelzeko/water-monitor/internal/integration/notify"
	"github.com/abelzeko/water-monitor/internal/logger"
	"github.com/abelzeko/water-monitor/internal/repository"
)

type readingFeed interface {
	GetReadings(ctx context.Context) ([]entities.SensorReading, error)
}

type readingStore interface {
	SaveReadings(ctx context.Context, data []entities.SensorReading) error
}

// seeder copies the feed into the local store and announces the change
type seeder struct {
	feed       readingFeed
	store      readingStore
	announcers []notify.Announcer
	out        io.Writer
	logger     *zap.Logger
}

// run imports one batch and returns the number of readings saved
func (s *seeder) run(ctx context.Context) (int, error) {
	readings, err := s.feed.GetReadings(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch feed: %w", err)
	}
	if len(readings) == 0 {
		s.logger.Info("feed is empty, nothing to import")
		return 0, nil
	}

	if err := s.store.SaveReadings(ctx, readings); err != nil {
		return 0, fmt.Errorf("failed to save readings: %w", err)
	}
	s.logger.Info("imported readings", zap.Int("count", len(readings)))

	for _, a := range s.announcers {
		if err := a.Announce(ctx); err != nil {
			s.logger.Warn("failed to announce change", zap.Error(err))
		}
	}

	if s.out != nil {
		fmt.Fprintln(s.out, gauge.RenderRow(gauge.ForReading(readings[0])))
	}
	return len(readings), nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

// run parses flags, imports the feed and, with -schedule, keeps importing until ctx is done.
// Every resource it opens is released before it returns.
func run(ctx context.Context, args []string, stdout io.Writer) error {
	cfg := config.Load()

	flags := flag.NewFlagSet("seeder", flag.ContinueOnError)
	feedURL := flags.String("feed", cfg.SensorFeedURL, "sensor feed URL or file path")
	dbPath := flags.String("db", cfg.SQLitePath, "SQLite database path")
	schedule := flags.String("schedule", "", "cron schedule, e.g. \"@every 1m\"; runs once when empty")
	if err := flags.Parse(args); err != nil {
		return err
	}

	// Configure logging
	log, err := logger.NewLogger(cfg.LogLevel, cfg.LogFormat, "water-seeder")
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer log.Sync()
	log.Info("Starting Water Quality Seeder...")

	for _, w := range cfg.Warnings {
		log.Warn("config", zap.String("warning", w))
	}
	if *feedURL == "" {
		return errors.New("no feed given, set -feed or SENSOR_FEED_URL")
	}

	// Initialize repository
	repo, err := repository.NewSQLiteReadingRepository(*dbPath, log)
	if err != nil {
		return fmt.Errorf("failed to initialize repository: %w", err)
	}
	defer repo.Close()

	notifiers := bootstrap.NewNotifiers(ctx, cfg, repo, log)
	defer notifiers.Close()

	s := &seeder{
		feed:       integration.NewSensorFeed(*feedURL, cfg.FetchTimeout, log),
		store:      repo,
		announcers: notifiers.Announcers(),
		out:        stdout,
		logger:     log,
	}

	// Run immediately on startup
	if _, err := s.run(ctx); err != nil {
		if *schedule == "" {
			return err
		}
		log.Error("initial import failed", zap.Error(err))
	}
	if *schedule == "" {
		return nil
	}

	c := cron.New()
	_, err = c.AddFunc(*schedule, func() {
		if _, err := s.run(ctx); err != nil {
			log.Error("scheduled import failed", zap.Error(err))
		}
	})
	if err != nil {
		return fmt.Errorf("failed to set up cron job %q: %w", *schedule, err)
	}

	log.Info("seeder has been scheduled", zap.String("schedule", *schedule))
	c.Start()

	<-ctx.Done()
	<-c.Stop().Done()
	log.Info("stopped")
	return nil
}

// Package bootstrap wires configured components for the binaries
package bootstrap

import (
	"context"
	"fmt"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/abelzeko/water-monitor/internal/config"
	"github.com/abelzeko/water-monitor/internal/integration"
	"github.com/abelzeko/water-monitor/internal/integration/notify"
	"github.com/abelzeko/water-monitor/internal/repository"
)

// NewSource builds the reading source selected by DATA_SOURCE
func NewSource(ctx context.Context, cfg *config.Config, logger *zap.Logger) (repository.ReadingRepository, error) {
	switch cfg.DataSource {
	case config.SourceSQLite:
		repo, err := repository.NewSQLiteReadingRepository(cfg.SQLitePath, logger)
		if err != nil {
			return nil, err
		}
		return repo, nil
	case config.SourcePostgres:
		repo, err := repository.NewPostgresReadingRepository(ctx, cfg.DatabaseURL, logger)
		if err != nil {
			return nil, err
		}
		return repo, nil
	case config.SourceFeed:
		return integration.NewSensorFeed(cfg.SensorFeedURL, cfg.FetchTimeout, logger), nil
	default:
		return nil, fmt.Errorf("unknown data source %q", cfg.DataSource)
	}
}

// Notifiers holds the configured change notifiers and the resources behind them
type Notifiers struct {
	List    []notify.Notifier
	closers []func()
}

// Announcers returns the notifiers that can also publish change events
func (n *Notifiers) Announcers() []notify.Announcer {
	var out []notify.Announcer
	for _, item := range n.List {
		if a, ok := item.(notify.Announcer); ok {
			out = append(out, a)
		}
	}
	return out
}

// Close releases broker connections
func (n *Notifiers) Close() {
	for i := len(n.closers) - 1; i >= 0; i-- {
		n.closers[i]()
	}
	n.closers = nil
}

// NewNotifiers builds every notifier the configuration enables. A notifier
// whose broker cannot be reached is logged and left out.
func NewNotifiers(ctx context.Context, cfg *config.Config, source repository.ReadingRepository, logger *zap.Logger) *Notifiers {
	n := &Notifiers{}

	if cfg.DataSource == config.SourcePostgres && cfg.NotifyChannel != "" {
		if pg, ok := source.(*repository.PostgresReadingRepository); ok {
			if err := notify.InstallTrigger(ctx, pg.DB(), cfg.NotifyChannel); err != nil {
				logger.Warn("could not install change trigger, relying on existing one", zap.Error(err))
			}
		}
		n.List = append(n.List, notify.NewPostgresNotifier(cfg.DatabaseURL, cfg.NotifyChannel, logger))
	}

	if cfg.MQTTBroker != "" {
		mq, err := notify.NewMQTTNotifier(notify.MQTTConfig{
			Broker:   cfg.MQTTBroker,
			ClientID: cfg.MQTTClientID,
			Username: cfg.MQTTUsername,
			Password: cfg.MQTTPassword,
			Topic:    cfg.MQTTTopic,
		}, logger)
		if err != nil {
			logger.Warn("mqtt notifier disabled", zap.Error(err))
		} else {
			n.List = append(n.List, mq)
			n.closers = append(n.closers, mq.Close)
		}
	}

	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			logger.Warn("redis notifier disabled", zap.String("addr", cfg.RedisAddr), zap.Error(err))
			client.Close()
		} else {
			n.List = append(n.List, notify.NewRedisNotifier(client, cfg.RedisChannel, logger))
			n.closers = append(n.closers, func() { client.Close() })
		}
	}

	return n
}

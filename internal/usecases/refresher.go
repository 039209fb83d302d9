package usecases

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/abelzeko/water-monitor/internal/integration/notify"
)

// DefaultRefreshInterval is the polling period when none is configured
const DefaultRefreshInterval = 30 * time.Second

// Reloader is anything that can re-read the store
type Reloader interface {
	Reload(ctx context.Context) error
}

// Refresher triggers reloads from a cron interval and from push notifiers
type Refresher struct {
	target    Reloader
	interval  time.Duration
	notifiers []notify.Notifier
	logger    *zap.Logger

	mu      sync.Mutex
	cron    *cron.Cron
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	started bool
	stopped bool
}

// NewRefresher creates a refresher; it does nothing until Start
func NewRefresher(target Reloader, interval time.Duration, notifiers []notify.Notifier, logger *zap.Logger) *Refresher {
	if interval <= 0 {
		interval = DefaultRefreshInterval
	}
	return &Refresher{
		target:    target,
		interval:  interval,
		notifiers: notifiers,
		logger:    logger,
	}
}

// Start runs an initial reload and schedules the periodic and push-driven ones.
// A notifier that fails to subscribe is logged and skipped; polling still runs.
func (r *Refresher) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.started {
		return errors.New("refresher already started")
	}
	r.started = true

	ctx, cancel := context.WithCancel(ctx)
	r.cancel = cancel

	r.cron = cron.New()
	if _, err := r.cron.AddFunc(fmt.Sprintf("@every %s", r.interval), func() {
		r.trigger(ctx, "interval")
	}); err != nil {
		cancel()
		return fmt.Errorf("failed to schedule refresh: %w", err)
	}

	for _, n := range r.notifiers {
		ch, err := n.Subscribe(ctx)
		if err != nil {
			r.logger.Warn("change notifier unavailable", zap.String("notifier", n.Name()), zap.Error(err))
			continue
		}
		r.wg.Add(1)
		go func(name string, ch <-chan struct{}) {
			defer r.wg.Done()
			for range ch {
				r.trigger(ctx, name)
			}
		}(n.Name(), ch)
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.trigger(ctx, "startup")
	}()

	r.cron.Start()
	r.logger.Info("refresher started",
		zap.Duration("interval", r.interval),
		zap.Int("notifiers", len(r.notifiers)),
	)
	return nil
}

// Stop cancels subscriptions, stops the schedule and waits for running reloads.
// It is safe to call more than once.
func (r *Refresher) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.started || r.stopped {
		return
	}
	r.stopped = true

	r.cancel()
	<-r.cron.Stop().Done()
	r.wg.Wait()
	r.logger.Info("refresher stopped")
}

func (r *Refresher) trigger(ctx context.Context, reason string) {
	if ctx.Err() != nil {
		return
	}
	err := r.target.Reload(ctx)
	switch {
	case err == nil:
		r.logger.Debug("refresh completed", zap.String("trigger", reason))
	case errors.Is(err, ErrReloadInProgress):
		r.logger.Debug("refresh skipped, reload in progress", zap.String("trigger", reason))
	default:
		r.logger.Warn("refresh failed", zap.String("trigger", reason), zap.Error(err))
	}
}

// Package usecases contains the application's business logic
package usecases

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/abelzeko/water-monitor/internal/classifier"
	"github.com/abelzeko/water-monitor/internal/entities"
	"github.com/abelzeko/water-monitor/internal/gauge"
	"github.com/abelzeko/water-monitor/internal/history"
)

// ErrReloadInProgress is returned when a reload is requested while another is outstanding
var ErrReloadInProgress = errors.New("reload already in progress")

// ReadingSource is the read side of the sensor store
type ReadingSource interface {
	GetLatestReading(ctx context.Context) (*entities.SensorReading, error)
	GetReadings(ctx context.Context) ([]entities.SensorReading, error)
}

// DocumentSource is a source that can only serve the whole history at once. The dashboard
// reads it once per reload and takes the latest reading from the same download.
type DocumentSource interface {
	GetLatestAndReadings(ctx context.Context) (*entities.SensorReading, []entities.SensorReading, error)
}

// Snapshot is the dashboard's view of the store at one point in time.
// It is replaced wholesale on every reload; the Readings slice is never modified.
type Snapshot struct {
	Latest    *entities.SensorReading
	Readings  []entities.SensorReading
	LoadedAt  time.Time
	Loading   bool
	LastError string
}

// HasData reports whether at least one reading has been loaded
func (s Snapshot) HasData() bool {
	return s.Latest != nil
}

// Stale reports whether the last fetch failed and older data is being shown
func (s Snapshot) Stale() bool {
	return s.LastError != ""
}

// LatestView is the "current condition" part of the dashboard
type LatestView struct {
	Reading entities.SensorReading
	Levels  map[string]entities.SeverityLevel
	Overall entities.OverallStatus
	Gauges  []gauge.Gauge
}

// DashboardUseCase owns the current snapshot and reloads it from a ReadingSource
type DashboardUseCase struct {
	source       ReadingSource
	fetchTimeout time.Duration
	location     *time.Location
	logger       *zap.Logger

	reloading atomic.Bool
	pending   atomic.Bool
	mu        sync.RWMutex
	snapshot  Snapshot
	now       func() time.Time
}

// NewDashboardUseCase creates a dashboard use case with an empty snapshot
func NewDashboardUseCase(source ReadingSource, fetchTimeout time.Duration, location *time.Location, logger *zap.Logger) *DashboardUseCase {
	if location == nil {
		location = time.Local
	}
	return &DashboardUseCase{
		source:       source,
		fetchTimeout: fetchTimeout,
		location:     location,
		logger:       logger,
		now:          time.Now,
	}
}

// Location is the time zone calendar days are evaluated in
func (uc *DashboardUseCase) Location() *time.Location {
	return uc.location
}

// Snapshot returns the current snapshot
func (uc *DashboardUseCase) Snapshot() Snapshot {
	uc.mu.RLock()
	defer uc.mu.RUnlock()
	return uc.snapshot
}

// Reload fetches the latest reading and the full history and replaces the snapshot.
// On failure the previous data is kept and the error is recorded.
//
// A Reload that arrives while another is running returns ErrReloadInProgress without
// fetching, and the running one fetches once more before it returns so the change that
// prompted the rejected call is not lost.
func (uc *DashboardUseCase) Reload(ctx context.Context) error {
	if !uc.reloading.CompareAndSwap(false, true) {
		uc.pending.Store(true)
		return ErrReloadInProgress
	}
	for {
		uc.pending.Store(false)
		err := uc.reload(ctx)
		uc.reloading.Store(false)

		if !uc.pending.Load() || ctx.Err() != nil || !uc.reloading.CompareAndSwap(false, true) {
			return err
		}
		uc.logger.Debug("reload requested while fetching, fetching again")
	}
}

func (uc *DashboardUseCase) reload(parent context.Context) error {
	uc.update(func(s *Snapshot) { s.Loading = true })

	ctx := parent
	if uc.fetchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(parent, uc.fetchTimeout)
		defer cancel()
	}

	start := uc.now()
	latest, readings, err := uc.fetch(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) && parent.Err() != nil {
			// cancelled by the caller, keep the last error as it was
			uc.logger.Debug("reload cancelled")
			uc.update(func(s *Snapshot) { s.Loading = false })
			return err
		}
		uc.logger.Error("failed to reload sensor data", zap.Error(err))
		uc.update(func(s *Snapshot) {
			s.Loading = false
			s.LastError = err.Error()
		})
		return err
	}

	uc.update(func(s *Snapshot) {
		*s = Snapshot{
			Latest:   latest,
			Readings: readings,
			LoadedAt: uc.now(),
		}
	})
	uc.logger.Info("sensor data reloaded",
		zap.Int("readings", len(readings)),
		zap.Duration("took", uc.now().Sub(start)),
	)
	return nil
}

func (uc *DashboardUseCase) fetch(ctx context.Context) (*entities.SensorReading, []entities.SensorReading, error) {
	if whole, ok := uc.source.(DocumentSource); ok {
		latest, readings, err := whole.GetLatestAndReadings(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to fetch readings: %w", err)
		}
		if readings == nil {
			readings = []entities.SensorReading{}
		}
		return latest, readings, nil
	}

	latest, err := uc.source.GetLatestReading(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to fetch latest reading: %w", err)
	}
	readings, err := uc.source.GetReadings(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to fetch reading history: %w", err)
	}
	if readings == nil {
		readings = []entities.SensorReading{}
	}
	return latest, readings, nil
}

// update replaces the snapshot with a modified copy
func (uc *DashboardUseCase) update(fn func(s *Snapshot)) {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	next := uc.snapshot
	fn(&next)
	uc.snapshot = next
}

// Latest classifies the most recent reading; ok is false when nothing has been loaded
func (uc *DashboardUseCase) Latest() (LatestView, bool) {
	snap := uc.Snapshot()
	if snap.Latest == nil {
		return LatestView{}, false
	}
	r := *snap.Latest
	levels := classifier.MetricLevels(r)
	byName := make(map[string]entities.SeverityLevel, len(levels))
	for i, m := range entities.Metrics {
		byName[m.String()] = levels[i]
	}
	return LatestView{
		Reading: r,
		Levels:  byName,
		Overall: classifier.Overall(r),
		Gauges:  gauge.ForReading(r),
	}, true
}

// History rebuilds a view's history state from the current snapshot
func (uc *DashboardUseCase) History(state history.State) history.State {
	return state.WithLocation(uc.location).WithReadings(uc.Snapshot().Readings)
}

// NewHistory returns a fresh history state over the current snapshot
func (uc *DashboardUseCase) NewHistory() history.State {
	return uc.History(history.New(nil))
}

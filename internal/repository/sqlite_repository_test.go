package repository

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/abelzeko/water-monitor/internal/entities"
)

func newTestSQLite(t *testing.T) *SQLiteReadingRepository {
	dbPath := filepath.Join(t.TempDir(), "test-sensor.db")

	repo, err := NewSQLiteReadingRepository(dbPath, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestSQLiteSaveAndGetReadings(t *testing.T) {
	repo := newTestSQLite(t)
	ctx := context.Background()

	now := time.Date(2025, time.April, 18, 8, 0, 0, 0, time.UTC)
	data := []entities.SensorReading{
		{ID: 1, CreatedAt: now.Add(-2 * time.Hour), Turbidity: 90, PH: 7.1, Temperature: 24, WaterFlow: 3.2},
		{ID: 2, CreatedAt: now, Turbidity: 1600, PH: 6.8, Temperature: 26, WaterFlow: 2.9},
		{ID: 3, CreatedAt: now.Add(-time.Hour), Turbidity: 300, PH: 8.8, Temperature: 31, WaterFlow: 5.5},
	}
	require.NoError(t, repo.SaveReadings(ctx, data))

	readings, err := repo.GetReadings(ctx)
	require.NoError(t, err)
	require.Len(t, readings, 3)

	// newest first
	assert.Equal(t, []int64{2, 3, 1}, []int64{readings[0].ID, readings[1].ID, readings[2].ID})
	assert.Equal(t, 1600.0, readings[0].Turbidity)
	assert.Equal(t, 6.8, readings[0].PH)
	assert.Equal(t, 26.0, readings[0].Temperature)
	assert.Equal(t, 2.9, readings[0].WaterFlow)
	assert.True(t, now.Equal(readings[0].CreatedAt), "created_at %v", readings[0].CreatedAt)

	latest, err := repo.GetLatestReading(ctx)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, int64(2), latest.ID)
}

func TestSQLiteSaveReadingsUpserts(t *testing.T) {
	repo := newTestSQLite(t)
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Second)
	require.NoError(t, repo.SaveReadings(ctx, []entities.SensorReading{{ID: 7, CreatedAt: now, Turbidity: 10}}))
	require.NoError(t, repo.SaveReadings(ctx, []entities.SensorReading{{ID: 7, CreatedAt: now, Turbidity: 20}}))

	readings, err := repo.GetReadings(ctx)
	require.NoError(t, err)
	require.Len(t, readings, 1)
	assert.Equal(t, 20.0, readings[0].Turbidity)
}

func TestSQLiteNullColumnsDefaultToZero(t *testing.T) {
	repo := newTestSQLite(t)
	ctx := context.Background()

	_, err := repo.db.ExecContext(ctx, `INSERT INTO sensor(kekeruhan) VALUES (42.5)`)
	require.NoError(t, err)

	latest, err := repo.GetLatestReading(ctx)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, 42.5, latest.Turbidity)
	assert.Equal(t, 0.0, latest.PH)
	assert.Equal(t, 0.0, latest.Temperature)
	assert.Equal(t, 0.0, latest.WaterFlow)
	assert.False(t, latest.CreatedAt.IsZero())
}

func TestSQLiteEmptyStore(t *testing.T) {
	repo := newTestSQLite(t)

	latest, err := repo.GetLatestReading(context.Background())
	require.NoError(t, err)
	assert.Nil(t, latest)

	readings, err := repo.GetReadings(context.Background())
	require.NoError(t, err)
	assert.Empty(t, readings)
}

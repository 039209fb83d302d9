package bootstrap

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/abelzeko/water-monitor/internal/config"
	"github.com/abelzeko/water-monitor/internal/integration"
	"github.com/abelzeko/water-monitor/internal/repository"
)

func TestNewSource(t *testing.T) {
	ctx := context.Background()

	cfg := &config.Config{DataSource: config.SourceSQLite, SQLitePath: filepath.Join(t.TempDir(), "s.db")}
	src, err := NewSource(ctx, cfg, zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, &repository.SQLiteReadingRepository{}, src)
	src.Close()

	cfg = &config.Config{DataSource: config.SourceFeed, SensorFeedURL: "http://localhost/feed.json", FetchTimeout: time.Second}
	src, err = NewSource(ctx, cfg, zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, &integration.SensorFeed{}, src)

	_, err = NewSource(ctx, &config.Config{DataSource: "csv"}, zap.NewNop())
	assert.Error(t, err)
}

func TestNewNotifiers_Redis(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := &config.Config{DataSource: config.SourceSQLite, RedisAddr: mr.Addr(), RedisChannel: "water:test"}

	n := NewNotifiers(context.Background(), cfg, nil, zap.NewNop())
	defer n.Close()

	require.Len(t, n.List, 1)
	assert.Equal(t, "redis:water:test", n.List[0].Name())
	assert.Len(t, n.Announcers(), 1)
}

func TestNewNotifiers_UnreachableBrokersAreSkipped(t *testing.T) {
	cfg := &config.Config{DataSource: config.SourceSQLite, RedisAddr: "127.0.0.1:1"}

	n := NewNotifiers(context.Background(), cfg, nil, zap.NewNop())
	defer n.Close()

	assert.Empty(t, n.List)
}

func TestNewNotifiers_NoneConfigured(t *testing.T) {
	n := NewNotifiers(context.Background(), &config.Config{DataSource: config.SourceSQLite}, nil, zap.NewNop())
	assert.Empty(t, n.List)
	assert.Empty(t, n.Announcers())
}

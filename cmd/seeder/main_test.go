package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/abelzeko/water-monitor/internal/integration"
	"github.com/abelzeko/water-monitor/internal/integration/notify"
	"github.com/abelzeko/water-monitor/internal/repository"
)

// mockFeedServer creates a test server that serves a fixed JSON response
func mockFeedServer(status int, body string) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		io.WriteString(w, body)
	}))
}

type countingAnnouncer struct {
	calls int
	err   error
}

func (a *countingAnnouncer) Announce(ctx context.Context) error {
	a.calls++
	return a.err
}

const feedBody = `[
	{"id": 1, "created_at": "2025-03-10T08:00:00Z", "kekeruhan": 80, "phmeter": 7.0, "waterflow": 3.0, "temp": 25.0},
	{"id": 2, "created_at": "2025-03-10T09:00:00Z", "kekeruhan": 2000, "phmeter": 6.9, "waterflow": 2.5, "temp": 24.0}
]`

func newTestRepo(t *testing.T) *repository.SQLiteReadingRepository {
	t.Helper()
	repo, err := repository.NewSQLiteReadingRepository(filepath.Join(t.TempDir(), "seed.db"), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestSeeder_ImportsFeed(t *testing.T) {
	server := mockFeedServer(http.StatusOK, feedBody)
	defer server.Close()

	repo := newTestRepo(t)
	ok := &countingAnnouncer{}
	failing := &countingAnnouncer{err: errors.New("broker down")}
	var out bytes.Buffer

	s := &seeder{
		feed:       integration.NewSensorFeed(server.URL, 0, zap.NewNop()),
		store:      repo,
		announcers: []notify.Announcer{ok, failing},
		out:        &out,
		logger:     zap.NewNop(),
	}

	n, err := s.run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, 1, ok.calls)
	assert.Equal(t, 1, failing.calls)
	assert.Contains(t, out.String(), "Turbidity Meter")

	stored, err := repo.GetReadings(context.Background())
	require.NoError(t, err)
	require.Len(t, stored, 2)
	assert.Equal(t, int64(2), stored[0].ID)
	assert.Equal(t, 2000.0, stored[0].Turbidity)

	// importing the same feed again upserts
	_, err = s.run(context.Background())
	require.NoError(t, err)
	stored, err = repo.GetReadings(context.Background())
	require.NoError(t, err)
	assert.Len(t, stored, 2)
}

func TestSeeder_EmptyFeed(t *testing.T) {
	server := mockFeedServer(http.StatusOK, `[]`)
	defer server.Close()

	announcer := &countingAnnouncer{}
	s := &seeder{
		feed:       integration.NewSensorFeed(server.URL, 0, zap.NewNop()),
		store:      newTestRepo(t),
		announcers: []notify.Announcer{announcer},
		logger:     zap.NewNop(),
	}

	n, err := s.run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Zero(t, announcer.calls)
}

func TestSeeder_FeedError(t *testing.T) {
	server := mockFeedServer(http.StatusInternalServerError, `oops`)
	defer server.Close()

	repo := newTestRepo(t)
	s := &seeder{
		feed:   integration.NewSensorFeed(server.URL, 0, zap.NewNop()),
		store:  repo,
		logger: zap.NewNop(),
	}

	_, err := s.run(context.Background())
	assert.Error(t, err)

	stored, err := repo.GetReadings(context.Background())
	require.NoError(t, err)
	assert.Empty(t, stored)
}

func seederEnv(t *testing.T) {
	t.Helper()
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("DATA_SOURCE", "sqlite")
	t.Setenv("SENSOR_FEED_URL", "")
	t.Setenv("MQTT_BROKER", "")
	t.Setenv("REDIS_ADDR", "")
}

func TestRun_ImportsOnce(t *testing.T) {
	seederEnv(t)
	server := mockFeedServer(http.StatusOK, feedBody)
	defer server.Close()
	dbPath := filepath.Join(t.TempDir(), "seed.db")
	var out bytes.Buffer

	require.NoError(t, run(context.Background(), []string{"-feed", server.URL, "-db", dbPath}, &out))
	assert.Contains(t, out.String(), "Turbidity Meter")

	repo, err := repository.NewSQLiteReadingRepository(dbPath, zap.NewNop())
	require.NoError(t, err)
	defer repo.Close()
	stored, err := repo.GetReadings(context.Background())
	require.NoError(t, err)
	assert.Len(t, stored, 2)
}

func TestRun_ReturnsImportError(t *testing.T) {
	seederEnv(t)
	server := mockFeedServer(http.StatusInternalServerError, `oops`)
	defer server.Close()
	dbPath := filepath.Join(t.TempDir(), "seed.db")
	var out bytes.Buffer

	err := run(context.Background(), []string{"-feed", server.URL, "-db", dbPath}, &out)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to fetch feed")
	assert.Empty(t, out.String())

	// the store was closed on the way out and opens cleanly again
	repo, err := repository.NewSQLiteReadingRepository(dbPath, zap.NewNop())
	require.NoError(t, err)
	defer repo.Close()
	stored, err := repo.GetReadings(context.Background())
	require.NoError(t, err)
	assert.Empty(t, stored)
}

func TestRun_MissingFeed(t *testing.T) {
	seederEnv(t)

	err := run(context.Background(), []string{"-db", filepath.Join(t.TempDir(), "seed.db")}, io.Discard)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no feed given")

	assert.Error(t, run(context.Background(), []string{"-bogus"}, io.Discard))
}

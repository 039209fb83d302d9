package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"LOG_LEVEL", "DATA_SOURCE", "REFRESH_INTERVAL", "FETCH_TIMEOUT", "HTTP_ADDR", "TIMEZONE", "MQTT_TOPIC", "REDIS_DB"} {
		t.Setenv(key, "")
	}

	c := Load()

	assert.Equal(t, "info", c.LogLevel)
	assert.Equal(t, SourceSQLite, c.DataSource)
	assert.Equal(t, 30*time.Second, c.RefreshInterval)
	assert.Equal(t, 10*time.Second, c.FetchTimeout)
	assert.Equal(t, ":8080", c.HTTPAddr)
	assert.Equal(t, "Asia/Jakarta", c.Timezone)
	assert.Equal(t, "water/sensor/changed", c.MQTTTopic)
	assert.Equal(t, 0, c.RedisDB)
	assert.Empty(t, c.Warnings)
	assert.NoError(t, c.Validate())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("DATA_SOURCE", "Postgres")
	t.Setenv("DATABASE_URL", "postgres://localhost/water")
	t.Setenv("REFRESH_INTERVAL", "45")
	t.Setenv("FETCH_TIMEOUT", "2s")
	t.Setenv("REDIS_DB", "3")

	c := Load()

	assert.Equal(t, SourcePostgres, c.DataSource)
	assert.Equal(t, 45*time.Second, c.RefreshInterval)
	assert.Equal(t, 2*time.Second, c.FetchTimeout)
	assert.Equal(t, 3, c.RedisDB)
	assert.NoError(t, c.Validate())
}

func TestLoadInvalidValuesFallBack(t *testing.T) {
	t.Setenv("REFRESH_INTERVAL", "soon")
	t.Setenv("REDIS_DB", "first")

	c := Load()

	assert.Equal(t, 30*time.Second, c.RefreshInterval)
	assert.Equal(t, 0, c.RedisDB)
	assert.Len(t, c.Warnings, 2)
}

func TestValidate(t *testing.T) {
	c := &Config{DataSource: SourcePostgres, RefreshInterval: time.Minute}
	assert.Error(t, c.Validate())

	c = &Config{DataSource: SourceFeed, RefreshInterval: time.Minute}
	assert.Error(t, c.Validate())

	c = &Config{DataSource: "csv", RefreshInterval: time.Minute}
	assert.Error(t, c.Validate())

	c = &Config{DataSource: SourceSQLite, RefreshInterval: 100 * time.Millisecond}
	assert.Error(t, c.Validate())
}

func TestLocation(t *testing.T) {
	c := &Config{Timezone: "UTC"}
	loc, err := c.Location()
	require.NoError(t, err)
	assert.Equal(t, "UTC", loc.String())

	c = &Config{Timezone: "Mars/Olympus"}
	loc, err = c.Location()
	assert.Error(t, err)
	assert.Equal(t, time.Local, loc)
}

// Package config loads runtime settings from the environment and an optional .env file
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Data source kinds
const (
	SourceSQLite   = "sqlite"
	SourcePostgres = "postgres"
	SourceFeed     = "feed"
)

type Config struct {
	// Logging
	LogLevel  string
	LogFormat string

	// Data source
	DataSource    string
	SQLitePath    string
	DatabaseURL   string
	SensorFeedURL string

	// Refresh
	RefreshInterval time.Duration
	FetchTimeout    time.Duration

	// Change notifications
	NotifyChannel string
	MQTTBroker    string
	MQTTClientID  string
	MQTTUsername  string
	MQTTPassword  string
	MQTTTopic     string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisChannel  string

	// Surfaces
	HTTPAddr         string
	TelegramBotToken string
	OpenAIAPIKey     string
	Timezone         string

	// Warnings collects values that could not be parsed and fell back to defaults
	Warnings []string
}

// Load reads the configuration. A .env file in the working directory is loaded first if present.
func Load() *Config {
	_ = godotenv.Load()

	c := &Config{}

	c.LogLevel = getEnv("LOG_LEVEL", "info")
	c.LogFormat = getEnv("LOG_FORMAT", "json")

	c.DataSource = strings.ToLower(getEnv("DATA_SOURCE", SourceSQLite))
	c.SQLitePath = getEnv("SQLITE_PATH", "")
	c.DatabaseURL = getEnv("DATABASE_URL", "")
	c.SensorFeedURL = getEnv("SENSOR_FEED_URL", "")

	c.RefreshInterval = c.getEnvDuration("REFRESH_INTERVAL", 30*time.Second)
	c.FetchTimeout = c.getEnvDuration("FETCH_TIMEOUT", 10*time.Second)

	c.NotifyChannel = getEnv("NOTIFY_CHANNEL", "")
	c.MQTTBroker = getEnv("MQTT_BROKER", "")
	c.MQTTClientID = getEnv("MQTT_CLIENT_ID", "water-monitor")
	c.MQTTUsername = getEnv("MQTT_USERNAME", "")
	c.MQTTPassword = getEnv("MQTT_PASSWORD", "")
	c.MQTTTopic = getEnv("MQTT_TOPIC", "water/sensor/changed")
	c.RedisAddr = getEnv("REDIS_ADDR", "")
	c.RedisPassword = getEnv("REDIS_PASSWORD", "")
	c.RedisDB = c.getEnvInt("REDIS_DB", 0)
	c.RedisChannel = getEnv("REDIS_CHANNEL", "water:sensor:changed")

	c.HTTPAddr = getEnv("HTTP_ADDR", ":8080")
	c.TelegramBotToken = getEnv("TELEGRAM_BOT_TOKEN", "")
	c.OpenAIAPIKey = getEnv("OPENAI_API_KEY", "")
	c.Timezone = getEnv("TIMEZONE", "Asia/Jakarta")

	return c
}

// Validate checks that the selected data source has what it needs
func (c *Config) Validate() error {
	switch c.DataSource {
	case SourceSQLite:
	case SourcePostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for data source %q", c.DataSource)
		}
	case SourceFeed:
		if c.SensorFeedURL == "" {
			return fmt.Errorf("SENSOR_FEED_URL is required for data source %q", c.DataSource)
		}
	default:
		return fmt.Errorf("unknown DATA_SOURCE %q (want sqlite, postgres or feed)", c.DataSource)
	}
	if c.RefreshInterval < time.Second {
		return fmt.Errorf("REFRESH_INTERVAL must be at least 1s, got %s", c.RefreshInterval)
	}
	return nil
}

// Location resolves Timezone; unknown zones fall back to the local zone
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local, fmt.Errorf("failed to load timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func (c *Config) getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	intValue, err := strconv.Atoi(value)
	if err != nil {
		c.Warnings = append(c.Warnings, fmt.Sprintf("failed to parse %s as int, using default %d: %v", key, defaultValue, err))
		return defaultValue
	}
	return intValue
}

func (c *Config) getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	d, err := time.ParseDuration(value)
	if err != nil {
		// bare numbers are seconds
		if secs, convErr := strconv.Atoi(value); convErr == nil {
			return time.Duration(secs) * time.Second
		}
		c.Warnings = append(c.Warnings, fmt.Sprintf("failed to parse %s as duration, using default %s: %v", key, defaultValue, err))
		return defaultValue
	}
	return d
}

// Package integration handles external service interactions
package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/abelzeko/water-monitor/internal/entities"
)

// createdAtLayouts are tried in order when parsing a feed timestamp
var createdAtLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05",
}

// SensorFeed reads readings from a static JSON resource, either over HTTP or from a local file
type SensorFeed struct {
	source     string
	httpClient *resty.Client
	logger     *zap.Logger
}

// NewSensorFeed creates a feed client. Sources without an http(s) scheme are read from disk.
func NewSensorFeed(source string, timeout time.Duration, logger *zap.Logger) *SensorFeed {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	client := resty.New().
		SetTimeout(timeout).
		SetRetryCount(2).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(2 * time.Second).
		SetHeader("Accept", "application/json")

	return &SensorFeed{
		source:     source,
		httpClient: client,
		logger:     logger,
	}
}

// feedRecord accepts both the store column names and the renamed field names
type feedRecord struct {
	ID          *int64   `json:"id"`
	CreatedAt   *string  `json:"created_at"`
	CreatedAt2  *string  `json:"createdAt"`
	Kekeruhan   *float64 `json:"kekeruhan"`
	Turbidity   *float64 `json:"turbidity"`
	PHMeter     *float64 `json:"phmeter"`
	PH          *float64 `json:"ph"`
	Temp        *float64 `json:"temp"`
	Temperature *float64 `json:"temperature"`
	WaterFlow   *float64 `json:"waterflow"`
	WaterFlow2  *float64 `json:"waterFlow"`
}

// Close is a no-op; the feed holds no connections
func (f *SensorFeed) Close() error {
	return nil
}

// GetReadings fetches the whole feed, newest first
func (f *SensorFeed) GetReadings(ctx context.Context) ([]entities.SensorReading, error) {
	body, err := f.fetch(ctx)
	if err != nil {
		return nil, err
	}
	readings, err := ParseSensorFeed(body, f.logger)
	if err != nil {
		return nil, err
	}
	f.logger.Debug("loaded sensor feed", zap.String("source", f.source), zap.Int("count", len(readings)))
	return readings, nil
}

// GetLatestReading returns the newest reading of the feed, or nil when it is empty
func (f *SensorFeed) GetLatestReading(ctx context.Context) (*entities.SensorReading, error) {
	latest, _, err := f.GetLatestAndReadings(ctx)
	return latest, err
}

// GetLatestAndReadings downloads the feed once and returns its newest reading along with
// the whole list, so both come from the same document.
func (f *SensorFeed) GetLatestAndReadings(ctx context.Context) (*entities.SensorReading, []entities.SensorReading, error) {
	readings, err := f.GetReadings(ctx)
	if err != nil {
		return nil, nil, err
	}
	if len(readings) == 0 {
		return nil, readings, nil
	}
	latest := readings[0]
	return &latest, readings, nil
}

func (f *SensorFeed) fetch(ctx context.Context) ([]byte, error) {
	if !strings.HasPrefix(f.source, "http://") && !strings.HasPrefix(f.source, "https://") {
		body, err := os.ReadFile(strings.TrimPrefix(f.source, "file://"))
		if err != nil {
			return nil, fmt.Errorf("failed to read sensor feed file: %w", err)
		}
		return body, nil
	}

	resp, err := f.httpClient.R().
		SetContext(ctx).
		Get(f.source)
	if err != nil {
		f.logger.Error("sensor feed request failed", zap.String("url", f.source), zap.Error(err))
		return nil, fmt.Errorf("failed to fetch sensor feed: %w", err)
	}
	if resp.IsError() {
		f.logger.Error("sensor feed returned error status",
			zap.String("url", f.source),
			zap.Int("status_code", resp.StatusCode()),
		)
		return nil, fmt.Errorf("unexpected status code: %d %s", resp.StatusCode(), resp.Status())
	}
	return resp.Body(), nil
}

// ParseSensorFeed decodes a feed document: either a JSON array of readings or an object with a "data" array.
// Elements that cannot be decoded are skipped with a warning.
func ParseSensorFeed(body []byte, logger *zap.Logger) ([]entities.SensorReading, error) {
	body = bytes.TrimSpace(body)

	var elements []json.RawMessage
	if len(body) > 0 && body[0] == '{' {
		var wrapper struct {
			Data []json.RawMessage `json:"data"`
		}
		if err := json.Unmarshal(body, &wrapper); err != nil {
			return nil, fmt.Errorf("failed to decode sensor feed: %w", err)
		}
		elements = wrapper.Data
	} else if err := json.Unmarshal(body, &elements); err != nil {
		return nil, fmt.Errorf("failed to decode sensor feed: %w", err)
	}

	readings := make([]entities.SensorReading, 0, len(elements))
	for i, raw := range elements {
		reading, err := decodeFeedRecord(raw)
		if err != nil {
			logger.Warn("skipping malformed feed element", zap.Int("index", i), zap.Error(err))
			continue
		}
		readings = append(readings, reading)
	}

	sort.SliceStable(readings, func(i, j int) bool {
		if readings[i].CreatedAt.Equal(readings[j].CreatedAt) {
			return readings[i].ID > readings[j].ID
		}
		return readings[i].CreatedAt.After(readings[j].CreatedAt)
	})
	return readings, nil
}

func decodeFeedRecord(raw json.RawMessage) (entities.SensorReading, error) {
	var rec feedRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return entities.SensorReading{}, err
	}

	stamp := firstString(rec.CreatedAt, rec.CreatedAt2)
	if stamp == "" {
		return entities.SensorReading{}, fmt.Errorf("missing created_at")
	}
	createdAt, err := parseCreatedAt(stamp)
	if err != nil {
		return entities.SensorReading{}, err
	}

	reading := entities.SensorReading{
		CreatedAt:   createdAt,
		Turbidity:   firstFloat(rec.Kekeruhan, rec.Turbidity),
		PH:          firstFloat(rec.PHMeter, rec.PH),
		Temperature: firstFloat(rec.Temp, rec.Temperature),
		WaterFlow:   firstFloat(rec.WaterFlow, rec.WaterFlow2),
	}
	if rec.ID != nil {
		reading.ID = *rec.ID
	}
	return reading, nil
}

func parseCreatedAt(s string) (time.Time, error) {
	for _, layout := range createdAtLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised created_at %q", s)
}

func firstFloat(values ...*float64) float64 {
	for _, v := range values {
		if v != nil {
			return *v
		}
	}
	return 0
}

func firstString(values ...*string) string {
	for _, v := range values {
		if v != nil && *v != "" {
			return *v
		}
	}
	return ""
}

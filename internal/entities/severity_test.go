package entities

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeverityLevelOrdering(t *testing.T) {
	assert.True(t, Danger.Worse(Warning))
	assert.True(t, Warning.Worse(Good))
	assert.True(t, Good.Worse(Excellent))
	assert.False(t, Excellent.Worse(Excellent))
}

func TestParseSeverityLevel(t *testing.T) {
	for _, level := range SeverityLevels {
		parsed, err := ParseSeverityLevel(level.String())
		require.NoError(t, err)
		assert.Equal(t, level, parsed)
	}

	parsed, err := ParseSeverityLevel("  Warning ")
	require.NoError(t, err)
	assert.Equal(t, Warning, parsed)

	_, err = ParseSeverityLevel("fine")
	assert.Error(t, err)
}

func TestSeverityLevelLabels(t *testing.T) {
	assert.Equal(t, "Sangat Baik", Excellent.Label())
	assert.Equal(t, "Baik", Good.Label())
	assert.Equal(t, "Peringatan", Warning.Label())
	assert.Equal(t, "Bahaya", Danger.Label())
	assert.Equal(t, "Danger", Danger.Title())
}

func TestOverallStatusJSON(t *testing.T) {
	data, err := json.Marshal(OverallStatus{Level: Warning, Message: "x"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"level":"warning","message":"x"}`, string(data))

	var status OverallStatus
	require.NoError(t, json.Unmarshal([]byte(`{"level":"danger","message":"y"}`), &status))
	assert.Equal(t, Danger, status.Level)
}

func TestSensorReadingValue(t *testing.T) {
	r := SensorReading{Turbidity: 1, PH: 2, Temperature: 3, WaterFlow: 4}
	assert.Equal(t, 1.0, r.Value(Turbidity))
	assert.Equal(t, 2.0, r.Value(PH))
	assert.Equal(t, 3.0, r.Value(Temperature))
	assert.Equal(t, 4.0, r.Value(WaterFlow))
	assert.Equal(t, "NTU", Turbidity.Unit())
}

func TestSensorReadingJSONNonFinite(t *testing.T) {
	r := SensorReading{
		ID:          7,
		CreatedAt:   time.Date(2025, time.March, 10, 8, 0, 0, 0, time.UTC),
		Turbidity:   math.NaN(),
		PH:          7.25,
		Temperature: math.Inf(-1),
		WaterFlow:   3,
	}

	data, err := json.Marshal(r)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":7,"createdAt":"2025-03-10T08:00:00Z","turbidity":null,"ph":7.25,"temperature":null,"waterFlow":3}`, string(data))

	data, err = json.Marshal(&r)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"turbidity":null`)
}

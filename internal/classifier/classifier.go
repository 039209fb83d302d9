// Package classifier maps raw sensor values onto the water-quality severity scale
package classifier

import (
	"math"

	"github.com/abelzeko/water-monitor/internal/entities"
)

// band is an inclusive [min, max] range
type band struct {
	min, max float64
}

func (b band) contains(v float64) bool {
	return v >= b.min && v <= b.max
}

// bands holds the excellent, good and warning ranges per metric. Each range contains the previous one.
var bands = map[entities.Metric][3]band{
	entities.Turbidity:   {{math.Inf(-1), 100}, {math.Inf(-1), 500}, {math.Inf(-1), 1500}},
	entities.PH:          {{6.5, 8.5}, {6.0, 9.0}, {5.5, 9.5}},
	entities.Temperature: {{20, 30}, {15, 35}, {10, 38}},
	entities.WaterFlow:   {{2.0, 5.0}, {1.5, 6.0}, {1.0, 7.0}},
}

var messages = map[entities.SeverityLevel]string{
	entities.Excellent: "Kualitas air sangat baik!",
	entities.Good:      "Kualitas air baik.",
	entities.Warning:   "Kualitas air perlu diperhatikan!",
	entities.Danger:    "Kualitas air dalam kondisi berbahaya!",
}

// Classify returns the severity of a single metric value. NaN is always danger.
func Classify(metric entities.Metric, value float64) entities.SeverityLevel {
	if math.IsNaN(value) {
		return entities.Danger
	}
	b, ok := bands[metric]
	if !ok {
		return entities.Danger
	}
	switch {
	case b[0].contains(value):
		return entities.Excellent
	case b[1].contains(value):
		return entities.Good
	case b[2].contains(value):
		return entities.Warning
	default:
		return entities.Danger
	}
}

// ClassifyTurbidity classifies a turbidity value in NTU
func ClassifyTurbidity(v float64) entities.SeverityLevel { return Classify(entities.Turbidity, v) }

// ClassifyPH classifies a pH value
func ClassifyPH(v float64) entities.SeverityLevel { return Classify(entities.PH, v) }

// ClassifyTemperature classifies a water temperature in °C
func ClassifyTemperature(v float64) entities.SeverityLevel { return Classify(entities.Temperature, v) }

// ClassifyWaterFlow classifies a water flow in L/s
func ClassifyWaterFlow(v float64) entities.SeverityLevel { return Classify(entities.WaterFlow, v) }

// MetricLevels returns the per-metric levels of a reading in entities.Metrics order
func MetricLevels(r entities.SensorReading) [4]entities.SeverityLevel {
	var levels [4]entities.SeverityLevel
	for i, m := range entities.Metrics {
		levels[i] = Classify(m, r.Value(m))
	}
	return levels
}

// Combine folds per-metric levels into one overall level.
// Any danger wins, then any warning; three or more excellent is excellent, anything else is good.
func Combine(levels ...entities.SeverityLevel) entities.SeverityLevel {
	var warning bool
	excellent := 0
	for _, l := range levels {
		switch l {
		case entities.Danger:
			return entities.Danger
		case entities.Warning:
			warning = true
		case entities.Excellent:
			excellent++
		}
	}
	if warning {
		return entities.Warning
	}
	if excellent >= 3 {
		return entities.Excellent
	}
	return entities.Good
}

// Overall computes the overall status of a reading
func Overall(r entities.SensorReading) entities.OverallStatus {
	levels := MetricLevels(r)
	level := Combine(levels[:]...)
	return entities.OverallStatus{Level: level, Message: Message(level)}
}

// Message returns the fixed human-readable message for an overall level
func Message(level entities.SeverityLevel) string {
	if msg, ok := messages[level]; ok {
		return msg
	}
	return messages[entities.Danger]
}

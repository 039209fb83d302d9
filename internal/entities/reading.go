// Package entities contains the core domain objects for the water-monitor application
package entities

import (
	"encoding/json"
	"fmt"
	"math"
	"time"
)

// SensorReading represents one timestamped observation from the water-quality sensor
type SensorReading struct {
	ID          int64     `json:"id"`
	CreatedAt   time.Time `json:"createdAt"`
	Turbidity   float64   `json:"turbidity"`   // NTU
	PH          float64   `json:"ph"`          // 0..14
	Temperature float64   `json:"temperature"` // °C
	WaterFlow   float64   `json:"waterFlow"`   // L/s
}

// MarshalJSON writes NaN and infinite metric values as null
func (r SensorReading) MarshalJSON() ([]byte, error) {
	type plain SensorReading
	return json.Marshal(struct {
		plain
		Turbidity   *float64 `json:"turbidity"`
		PH          *float64 `json:"ph"`
		Temperature *float64 `json:"temperature"`
		WaterFlow   *float64 `json:"waterFlow"`
	}{plain(r), Finite(r.Turbidity), Finite(r.PH), Finite(r.Temperature), Finite(r.WaterFlow)})
}

// Finite returns a pointer to v, or nil when v is NaN or infinite
func Finite(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// Metric identifies one of the four measured quantities of a reading
type Metric int

const (
	Turbidity Metric = iota
	PH
	Temperature
	WaterFlow
)

// Metrics lists every metric in display order
var Metrics = []Metric{Turbidity, PH, Temperature, WaterFlow}

func (m Metric) String() string {
	switch m {
	case Turbidity:
		return "turbidity"
	case PH:
		return "ph"
	case Temperature:
		return "temperature"
	case WaterFlow:
		return "waterFlow"
	default:
		return fmt.Sprintf("metric(%d)", int(m))
	}
}

// Unit returns the measurement unit of the metric
func (m Metric) Unit() string {
	switch m {
	case Turbidity:
		return "NTU"
	case PH:
		return "pH"
	case Temperature:
		return "°C"
	case WaterFlow:
		return "L/s"
	default:
		return ""
	}
}

// Value returns the reading's value for the given metric
func (r SensorReading) Value(m Metric) float64 {
	switch m {
	case Turbidity:
		return r.Turbidity
	case PH:
		return r.PH
	case Temperature:
		return r.Temperature
	case WaterFlow:
		return r.WaterFlow
	default:
		return 0
	}
}

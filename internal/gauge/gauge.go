// Package gauge renders a single metric as a bounded circular progress indicator
package gauge

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/abelzeko/water-monitor/internal/classifier"
	"github.com/abelzeko/water-monitor/internal/entities"
)

// Dashboard maxima per metric
const (
	TurbidityMax   = 4000
	PHMax          = 14
	TemperatureMax = 40
	WaterFlowMax   = 10
)

// Gauge is the input of the renderer. It holds no state of its own.
type Gauge struct {
	Label  string                 `json:"label"`
	Unit   string                 `json:"unit"`
	Value  float64                `json:"value"`
	Max    float64                `json:"max"`
	Status entities.SeverityLevel `json:"status"`
}

// MarshalJSON writes a non-finite value or maximum as null
func (g Gauge) MarshalJSON() ([]byte, error) {
	type plain Gauge
	return json.Marshal(struct {
		plain
		Value *float64 `json:"value"`
		Max   *float64 `json:"max"`
	}{plain(g), entities.Finite(g.Value), entities.Finite(g.Max)})
}

// Style is the colour and badge mapping selected by a status
type Style struct {
	TextClass     string
	GradientClass string
	BadgeClass    string
	StatusText    string
	Color         lipgloss.Color
}

var styles = map[entities.SeverityLevel]Style{
	entities.Excellent: {"text-emerald-400", "from-emerald-500 to-green-600", "bg-emerald-100 text-emerald-800", "Excellent", lipgloss.Color("#34d399")},
	entities.Good:      {"text-blue-400", "from-blue-500 to-cyan-600", "bg-blue-100 text-blue-800", "Good", lipgloss.Color("#60a5fa")},
	entities.Warning:   {"text-yellow-400", "from-yellow-500 to-orange-600", "bg-yellow-100 text-yellow-800", "Warning", lipgloss.Color("#facc15")},
	entities.Danger:    {"text-red-400", "from-red-500 to-pink-600", "bg-red-100 text-red-800", "Danger", lipgloss.Color("#f87171")},
}

// New creates a gauge
func New(label, unit string, value, max float64, status entities.SeverityLevel) Gauge {
	return Gauge{Label: label, Unit: unit, Value: value, Max: max, Status: status}
}

// ForReading builds the four dashboard gauges for a reading
func ForReading(r entities.SensorReading) []Gauge {
	return []Gauge{
		New("Turbidity Meter", "NTU", r.Turbidity, TurbidityMax, classifier.ClassifyTurbidity(r.Turbidity)),
		New("PH Meter", "pH", r.PH, PHMax, classifier.ClassifyPH(r.PH)),
		New("Temperature Meter", "°C", r.Temperature, TemperatureMax, classifier.ClassifyTemperature(r.Temperature)),
		New("Water Flow Meter", "L/s", r.WaterFlow, WaterFlowMax, classifier.ClassifyWaterFlow(r.WaterFlow)),
	}
}

// Clamped returns the value limited to [0, Max]
func (g Gauge) Clamped() float64 {
	if g.Max <= 0 || math.IsNaN(g.Value) || math.IsNaN(g.Max) {
		return 0
	}
	return math.Min(math.Max(g.Value, 0), g.Max)
}

// Percent returns the clamped value as a share of Max, 0 when Max is not positive
func (g Gauge) Percent() float64 {
	if g.Max <= 0 || math.IsInf(g.Max, 0) || math.IsNaN(g.Max) {
		return 0
	}
	return g.Clamped() / g.Max * 100
}

// DisplayValue formats the clamped value with one decimal
func (g Gauge) DisplayValue() string {
	return fmt.Sprintf("%.1f", g.Clamped())
}

// DashArray returns the stroke-dasharray of the progress circle (circumference normalised to 100)
func (g Gauge) DashArray() string {
	return fmt.Sprintf("%.2f, 100", g.Percent())
}

// Style returns the styling selected by the gauge status
func (g Gauge) Style() Style {
	return StyleFor(g.Status)
}

// StyleFor returns the styling of a severity level; unknown levels render as good
func StyleFor(level entities.SeverityLevel) Style {
	if s, ok := styles[level]; ok {
		return s
	}
	return styles[entities.Good]
}

const barWidth = 20

// Render draws the gauge for a terminal
func (g Gauge) Render() string {
	st := g.Style()

	filled := int(math.Round(g.Percent() / 100 * barWidth))
	bar := lipgloss.NewStyle().Foreground(st.Color).Render(strings.Repeat("█", filled)) +
		lipgloss.NewStyle().Foreground(lipgloss.Color("#475569")).Render(strings.Repeat("░", barWidth-filled))

	value := lipgloss.NewStyle().Bold(true).Render(g.DisplayValue() + " " + g.Unit)
	badge := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#0f172a")).
		Background(st.Color).
		Padding(0, 1).
		Render(st.StatusText)
	label := lipgloss.NewStyle().Foreground(lipgloss.Color("#94a3b8")).Render(g.Label)

	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(st.Color).
		Padding(0, 1).
		Render(lipgloss.JoinVertical(lipgloss.Center, label, bar, value, badge))
}

// RenderRow draws several gauges side by side
func RenderRow(gauges []Gauge) string {
	rendered := make([]string, 0, len(gauges))
	for _, g := range gauges {
		rendered = append(rendered, g.Render())
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, rendered...)
}

package history

import (
	"encoding/json"
	"fmt"

	"github.com/abelzeko/water-monitor/internal/classifier"
	"github.com/abelzeko/water-monitor/internal/entities"
)

// EmptyMessage is shown when no reading passes the filters
const EmptyMessage = "Tidak ada data ditemukan"

// Column is one table column header
type Column struct {
	Key   string `json:"key"`
	Label string `json:"label"`
}

// Columns lists the table columns in display order
var Columns = []Column{
	{Key: "created_at", Label: "WAKTU"},
	{Key: "turbidity", Label: "KEKERUHAN (NTU)"},
	{Key: "ph", Label: "PH LEVEL"},
	{Key: "temperature", Label: "SUHU (°C)"},
	{Key: "waterFlow", Label: "ALIRAN (L/s)"},
	{Key: "status", Label: "STATUS"},
}

// Cell is a metric value styled by its own severity
type Cell struct {
	Text  string                 `json:"text"`
	Value float64                `json:"value"`
	Level entities.SeverityLevel `json:"level"`
}

// MarshalJSON writes a non-finite value as null
func (c Cell) MarshalJSON() ([]byte, error) {
	type plain Cell
	return json.Marshal(struct {
		plain
		Value *float64 `json:"value"`
	}{plain(c), entities.Finite(c.Value)})
}

// StatusCell is the aggregate status chip of a row
type StatusCell struct {
	Level   entities.SeverityLevel `json:"level"`
	Label   string                 `json:"label"`
	Message string                 `json:"message"`
}

// Row is one rendered table row
type Row struct {
	ID          int64      `json:"id"`
	Date        string     `json:"date"`
	Time        string     `json:"time"`
	Turbidity   Cell       `json:"turbidity"`
	PH          Cell       `json:"ph"`
	Temperature Cell       `json:"temperature"`
	WaterFlow   Cell       `json:"waterFlow"`
	Status      StatusCell `json:"status"`
}

// Cells returns the four metric cells in entities.Metrics order
func (r Row) Cells() []Cell {
	return []Cell{r.Turbidity, r.PH, r.Temperature, r.WaterFlow}
}

// Rows renders the readings on the current page
func (s State) Rows() []Row {
	return RenderRows(s.PageReadings(), s)
}

// RenderRows renders arbitrary readings with the state's location
func RenderRows(readings []entities.SensorReading, s State) []Row {
	loc := s.Location()
	rows := make([]Row, 0, len(readings))
	for _, r := range readings {
		overall := classifier.Overall(r)
		created := r.CreatedAt.In(loc)
		rows = append(rows, Row{
			ID:          r.ID,
			Date:        created.Format("2/1/2006"),
			Time:        created.Format("15.04.05"),
			Turbidity:   cell(entities.Turbidity, r.Turbidity),
			PH:          cell(entities.PH, r.PH),
			Temperature: cell(entities.Temperature, r.Temperature),
			WaterFlow:   cell(entities.WaterFlow, r.WaterFlow),
			Status: StatusCell{
				Level:   overall.Level,
				Label:   overall.Level.Label(),
				Message: overall.Message,
			},
		})
	}
	return rows
}

func cell(m entities.Metric, v float64) Cell {
	return Cell{
		Text:  fmt.Sprintf("%.1f", v),
		Value: v,
		Level: classifier.Classify(m, v),
	}
}

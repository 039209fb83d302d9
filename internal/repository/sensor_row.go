package repository

import (
	"database/sql"
	"time"

	"github.com/abelzeko/water-monitor/internal/entities"
)

// sensorColumns is the store-side column list of the sensor table
const sensorColumns = "id, created_at, kekeruhan, phmeter, waterflow, temp"

// sensorRow mirrors one row of the sensor table using the store's column names.
// Metric columns are nullable in the store; NULL becomes 0 when converted.
type sensorRow struct {
	ID        int64           `db:"id"`
	CreatedAt time.Time       `db:"created_at"`
	Kekeruhan sql.NullFloat64 `db:"kekeruhan"`
	PHMeter   sql.NullFloat64 `db:"phmeter"`
	WaterFlow sql.NullFloat64 `db:"waterflow"`
	Temp      sql.NullFloat64 `db:"temp"`
}

// toEntity renames store columns to the canonical reading fields
func (r sensorRow) toEntity() entities.SensorReading {
	return entities.SensorReading{
		ID:          r.ID,
		CreatedAt:   r.CreatedAt,
		Turbidity:   r.Kekeruhan.Float64,
		PH:          r.PHMeter.Float64,
		Temperature: r.Temp.Float64,
		WaterFlow:   r.WaterFlow.Float64,
	}
}

func toEntities(rows []sensorRow) []entities.SensorReading {
	result := make([]entities.SensorReading, 0, len(rows))
	for _, r := range rows {
		result = append(result, r.toEntity())
	}
	return result
}

package report

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/abelzeko/water-monitor/internal/entities"
	"github.com/abelzeko/water-monitor/internal/history"
)

func TestWriteReadingsWorkbook(t *testing.T) {
	readings := []entities.SensorReading{
		{ID: 2, CreatedAt: time.Date(2025, time.March, 10, 9, 5, 7, 0, time.UTC), Turbidity: 80, PH: 7.0, Temperature: 25, WaterFlow: 3},
		{ID: 1, CreatedAt: time.Date(2025, time.March, 10, 8, 0, 0, 0, time.UTC), Turbidity: 2000, PH: 7.0, Temperature: 25, WaterFlow: 3},
	}
	state := history.New(readings).WithLocation(time.UTC)

	data, err := WriteReadingsWorkbook(state.Rows())
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{SheetName}, f.GetSheetList())

	rows, err := f.GetRows(SheetName)
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, []string{"WAKTU", "KEKERUHAN (NTU)", "PH LEVEL", "SUHU (°C)", "ALIRAN (L/s)", "STATUS"}, rows[0])
	assert.Equal(t, "10/3/2025 09.05.07", rows[1][0])
	assert.Equal(t, "Sangat Baik", rows[1][5])
	assert.Equal(t, "Bahaya", rows[2][5])

	turbidity, err := f.GetCellValue(SheetName, "B3", excelize.Options{RawCellValue: true})
	require.NoError(t, err)
	assert.Equal(t, "2000", turbidity)
}

func TestWriteReadingsWorkbook_Empty(t *testing.T) {
	data, err := WriteReadingsWorkbook(nil)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(SheetName)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

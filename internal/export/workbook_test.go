package export

import (
	"bytes"
	"path/filepath"
	"testing"

	"salonbook/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func sampleDays() []models.DayAppointments {
	return []models.DayAppointments{
		{Date: "2025-03-10", Appointments: []models.Appointment{
			{ID: 2, StartTime: "11:00", EndTime: "11:30", ServiceName: "Cut", CustomerName: "Bob", CustomerPhone: "+100"},
			{ID: 1, StartTime: "09:00", EndTime: "10:00", CustomServiceName: "Color", CustomerName: "Kate", CustomerPhone: "+200"},
		}},
		{Date: "2025-03-11"},
		{Date: "2025-03-12", Appointments: []models.Appointment{
			{ID: 3, StartTime: "09:00", EndTime: "09:30", ServiceName: "Cut", CustomerName: "Ann", CustomerPhone: "+300", CustomerEmail: "ann@example.com"},
		}},
	}
}

func TestBuild(t *testing.T) {
	worker := models.Worker{ID: 4, Name: "Olga"}
	wb, err := Build(worker, sampleDays())
	require.NoError(t, err)
	defer wb.Close()

	raw, err := wb.Bytes()
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(raw))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{gridSheet, listSheet}, f.GetSheetList())

	get := func(sheet, cell string) string {
		v, err := f.GetCellValue(sheet, cell)
		require.NoError(t, err)
		return v
	}
	assert.Equal(t, "Olga: 10.03.2025 - 12.03.2025", get(gridSheet, "A1"))
	assert.Equal(t, "10.03.2025", get(gridSheet, "B2"))
	assert.Equal(t, "12.03.2025", get(gridSheet, "D2"))
	assert.Equal(t, "09:00", get(gridSheet, "A3"))
	assert.Equal(t, "11:00", get(gridSheet, "A4"))
	assert.Equal(t, "Color\nKate (+200)", get(gridSheet, "B3"))
	assert.Equal(t, "Cut\nBob (+100)", get(gridSheet, "B4"))
	assert.Empty(t, get(gridSheet, "C3"))
	assert.Equal(t, "Cut\nAnn (+300)", get(gridSheet, "D3"))

	rows, err := f.GetRows(listSheet)
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, listHeaders, rows[0])
	assert.Equal(t, []string{"10.03.2025", "09:00", "10:00", "Color", "Kate", "+200"}, rows[1])
	assert.Equal(t, "11:00", rows[2][1])
	assert.Equal(t, "ann@example.com", rows[3][6])
}

func TestBuildEmpty(t *testing.T) {
	_, err := Build(models.Worker{}, nil)
	assert.Error(t, err)
}

func TestSave(t *testing.T) {
	worker := models.Worker{ID: 4, Name: "Olga"}
	days := sampleDays()
	wb, err := Build(worker, days)
	require.NoError(t, err)
	defer wb.Close()

	dir := filepath.Join(t.TempDir(), "exports")
	name := FileName(worker, days)
	assert.Equal(t, "worker_4_2025-03-10_to_2025-03-12.xlsx", name)

	path, err := wb.Save(dir, name)
	require.NoError(t, err)
	assert.FileExists(t, path)
}

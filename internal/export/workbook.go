// Package export renders a worker's appointments as an xlsx workbook.
package export

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"salonbook/internal/models"

	"github.com/xuri/excelize/v2"
)

const (
	gridSheet = "Grid"
	listSheet = "Appointments"
)

var listHeaders = []string{"Date", "Start", "End", "Service", "Customer", "Phone", "Email"}

// Workbook is a two-sheet export: a time by date grid and a flat list.
type Workbook struct {
	f *excelize.File
}

type styles struct {
	title, header, label, busy int
}

func newStyles(f *excelize.File) (styles, error) {
	var (
		s   styles
		err error
	)
	if s.title, err = f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 14},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	}); err != nil {
		return s, err
	}
	if s.header, err = f.NewStyle(&excelize.Style{
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	}); err != nil {
		return s, err
	}
	if s.label, err = f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E2EFDA"}, Pattern: 1},
		Font: &excelize.Font{Bold: true},
	}); err != nil {
		return s, err
	}
	s.busy, err = f.NewStyle(&excelize.Style{
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#C6EFCE"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "left", Vertical: "top", WrapText: true},
	})
	return s, err
}

// Build lays out the days in the given order. Days without appointments still get a column.
func Build(worker models.Worker, days []models.DayAppointments) (*Workbook, error) {
	if len(days) == 0 {
		return nil, fmt.Errorf("export: no days")
	}

	f := excelize.NewFile()
	st, err := newStyles(f)
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("export styles: %w", err)
	}

	if err := f.SetSheetName("Sheet1", gridSheet); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("export grid sheet: %w", err)
	}
	if _, err := f.NewSheet(listSheet); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("export list sheet: %w", err)
	}

	writeGrid(f, st, worker, days)
	writeList(f, st, days)
	return &Workbook{f: f}, nil
}

func displayDate(date string) string {
	parts := strings.Split(date, "-")
	if len(parts) != 3 {
		return date
	}
	return parts[2] + "." + parts[1] + "." + parts[0]
}

func writeGrid(f *excelize.File, st styles, worker models.Worker, days []models.DayAppointments) {
	title := fmt.Sprintf("%s: %s - %s", worker.Name, displayDate(days[0].Date), displayDate(days[len(days)-1].Date))
	_ = f.SetCellValue(gridSheet, "A1", title)
	lastCol, _ := excelize.ColumnNumberToName(len(days) + 1)
	_ = f.MergeCell(gridSheet, "A1", lastCol+"1")
	_ = f.SetCellStyle(gridSheet, "A1", "A1", st.title)

	// rows are the distinct start times across the range
	rowOf := map[string]int{}
	var starts []string
	for _, d := range days {
		for _, a := range d.Appointments {
			if _, ok := rowOf[a.StartTime]; !ok {
				rowOf[a.StartTime] = 0
				starts = append(starts, a.StartTime)
			}
		}
	}
	sort.Strings(starts)
	for i, s := range starts {
		row := i + 3
		rowOf[s] = row
		cell, _ := excelize.CoordinatesToCellName(1, row)
		_ = f.SetCellValue(gridSheet, cell, s)
		_ = f.SetCellStyle(gridSheet, cell, cell, st.label)
	}

	for i, d := range days {
		col := i + 2
		cell, _ := excelize.CoordinatesToCellName(col, 2)
		_ = f.SetCellValue(gridSheet, cell, displayDate(d.Date))
		_ = f.SetCellStyle(gridSheet, cell, cell, st.header)

		byStart := map[string][]string{}
		for _, a := range d.Appointments {
			byStart[a.StartTime] = append(byStart[a.StartTime],
				fmt.Sprintf("%s\n%s (%s)", a.Title(), a.CustomerName, a.CustomerPhone))
		}
		for start, lines := range byStart {
			cell, _ := excelize.CoordinatesToCellName(col, rowOf[start])
			_ = f.SetCellValue(gridSheet, cell, strings.Join(lines, "\n\n"))
			_ = f.SetCellStyle(gridSheet, cell, cell, st.busy)
		}
	}

	_ = f.SetColWidth(gridSheet, "A", "A", 10)
	_ = f.SetColWidth(gridSheet, "B", lastCol, 24)
}

func writeList(f *excelize.File, st styles, days []models.DayAppointments) {
	for i, h := range listHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(listSheet, cell, h)
		_ = f.SetCellStyle(listSheet, cell, cell, st.header)
	}

	row := 2
	for _, d := range days {
		appts := append([]models.Appointment(nil), d.Appointments...)
		sort.SliceStable(appts, func(i, j int) bool { return appts[i].StartTime < appts[j].StartTime })
		for _, a := range appts {
			values := []interface{}{displayDate(d.Date), a.StartTime, a.EndTime, a.Title(), a.CustomerName, a.CustomerPhone, a.CustomerEmail}
			cell, _ := excelize.CoordinatesToCellName(1, row)
			_ = f.SetSheetRow(listSheet, cell, &values)
			row++
		}
	}

	_ = f.SetColWidth(listSheet, "A", "C", 12)
	_ = f.SetColWidth(listSheet, "D", "G", 22)
}

// Bytes serializes the workbook for upload.
func (w *Workbook) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	if err := w.f.Write(&buf); err != nil {
		return nil, fmt.Errorf("export write: %w", err)
	}
	return buf.Bytes(), nil
}

// Save writes the workbook into dir and returns the file path.
func (w *Workbook) Save(dir, name string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("error creating export directory: %w", err)
	}
	path := filepath.Join(dir, name)
	if err := w.f.SaveAs(path); err != nil {
		return "", fmt.Errorf("error saving file: %w", err)
	}
	return path, nil
}

func (w *Workbook) Close() error {
	return w.f.Close()
}

// FileName is the conventional name of a worker export.
func FileName(worker models.Worker, days []models.DayAppointments) string {
	if len(days) == 0 {
		return fmt.Sprintf("worker_%d.xlsx", worker.ID)
	}
	return fmt.Sprintf("worker_%d_%s_to_%s.xlsx", worker.ID, days[0].Date, days[len(days)-1].Date)
}

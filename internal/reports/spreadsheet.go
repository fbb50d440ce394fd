package reports

import (
	"fmt"
	"math"

	"lodge-ops/internal/models"

	"github.com/xuri/excelize/v2"
)

const (
	matrixSheet  = "Attendance"
	summarySheet = "Summary"
)

// WorkbookData is what the attendance spreadsheet is built from. Sessions
// are expected newest first, as returned by the summary.
type WorkbookData struct {
	Sessions   []models.SessionRecord
	Attendance []models.Attendance
	Members    []models.Member
	Summary    models.AttendanceSummary
}

// AttendanceWorkbook renders a member by session status matrix plus a
// summary sheet with the rolling rate and the open alerts.
func AttendanceWorkbook(data WorkbookData) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", matrixSheet); err != nil {
		return nil, err
	}
	if err := writeMatrix(f, data); err != nil {
		return nil, fmt.Errorf("write attendance matrix: %w", err)
	}

	if _, err := f.NewSheet(summarySheet); err != nil {
		return nil, err
	}
	if err := writeSummary(f, data.Summary); err != nil {
		return nil, fmt.Errorf("write summary: %w", err)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("encode workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func writeMatrix(f *excelize.File, data WorkbookData) error {
	status := make(map[string]models.AttendanceStatus, len(data.Attendance))
	for _, row := range data.Attendance {
		status[row.SessionRecordID+"|"+row.BrotherID] = row.Status
	}

	header := []interface{}{"Member", "Degree"}
	for _, s := range data.Sessions {
		header = append(header, s.Date)
	}
	header = append(header, "Attended")
	if err := f.SetSheetRow(matrixSheet, "A1", &header); err != nil {
		return err
	}

	for i, m := range data.Members {
		line := []interface{}{m.Name, string(m.Degree)}
		attended := 0
		for _, s := range data.Sessions {
			st, ok := status[s.ID+"|"+m.ID]
			if !ok {
				line = append(line, "-")
				continue
			}
			if st.Attended() {
				attended++
			}
			line = append(line, string(st))
		}
		line = append(line, fmt.Sprintf("%d/%d", attended, len(data.Sessions)))

		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(matrixSheet, cell, &line); err != nil {
			return err
		}
	}
	return nil
}

func writeSummary(f *excelize.File, summary models.AttendanceSummary) error {
	rows := [][]interface{}{
		{"Rolling attendance (%)", roundTo2(summary.RollingPercentage)},
		{"Sessions considered", summary.SessionsConsidered},
		{},
		{"Alerts", "Consecutive unjustified absences"},
	}
	for _, a := range summary.Alerts {
		rows = append(rows, []interface{}{a.Member.Name, a.ConsecutiveUnjustifiedAbsences})
	}

	for i := range rows {
		if len(rows[i]) == 0 {
			continue
		}
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(summarySheet, cell, &rows[i]); err != nil {
			return err
		}
	}
	return nil
}

func roundTo2(v float64) float64 {
	return math.Round(v*100) / 100
}

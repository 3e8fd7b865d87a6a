package report

import (
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"wellcheck/internal/attendance"
	"wellcheck/internal/user"
)

const (
	summarySheet = "Summary"
	recordsSheet = "Records"
)

// WriteXLSX writes a workbook with a per-user summary sheet and a raw records sheet.
func WriteXLSX(w io.Writer, p Period, summaries []Summary, records []attendance.Record, users []user.User, loc *time.Location) error {
	if loc == nil {
		loc = time.UTC
	}
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return fmt.Errorf("xlsx: rename sheet: %w", err)
	}
	if _, err := f.NewSheet(recordsSheet); err != nil {
		return fmt.Errorf("xlsx: new sheet: %w", err)
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("xlsx: style: %w", err)
	}

	rows := [][]any{
		{"Attendance report", p.Label()},
		{},
		{"Name", "Role", "Present", "Absent", "Moods"},
	}
	for _, s := range summaries {
		rows = append(rows, []any{s.Name, s.Role, s.Present, s.Absent, s.Moods()})
	}
	if err := writeRows(f, summarySheet, rows); err != nil {
		return err
	}
	if err := f.SetCellStyle(summarySheet, "A3", "E3", bold); err != nil {
		return fmt.Errorf("xlsx: style header: %w", err)
	}

	names := make(map[string]string, len(users))
	for _, u := range users {
		names[u.ID] = u.Name
	}
	rows = [][]any{{"Date", "Time", "Name", "Type", "Mood", "Status", "Note"}}
	for _, r := range records {
		name := names[r.UserID]
		if name == "" {
			name = r.UserID
		}
		rows = append(rows, []any{
			r.Day,
			r.OccurredAt.In(loc).Format("15:04"),
			name,
			string(r.Kind),
			r.Mood,
			r.Status,
			r.Note,
		})
	}
	if err := writeRows(f, recordsSheet, rows); err != nil {
		return err
	}
	if err := f.SetCellStyle(recordsSheet, "A1", "G1", bold); err != nil {
		return fmt.Errorf("xlsx: style header: %w", err)
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("xlsx: write: %w", err)
	}
	return nil
}

func writeRows(f *excelize.File, sheet string, rows [][]any) error {
	for i, row := range rows {
		if len(row) == 0 {
			continue
		}
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("xlsx: %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}

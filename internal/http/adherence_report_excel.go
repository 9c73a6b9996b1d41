package httpapi

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/leplonghi/Horamed-AG-sub003/internal/models"
)

const (
	reportSummarySheet     = "Summary"
	reportDaysSheet        = "Days"
	reportSuggestionsSheet = "Suggestions"
)

var adherenceDaysHeader = []string{"Date", "Taken", "Total", "Adherence %"}

var adherenceSuggestionsHeader = []string{"Type", "Medication", "Message"}

// GenerateAdherenceReport renders the summary as an XLSX workbook
func GenerateAdherenceReport(sum *models.AdherenceSummary) ([]byte, error) {
	f := excelize.NewFile()
	// Note: Don't defer Close() here, because WriteTo needs the file to be open

	if err := f.SetSheetName("Sheet1", reportSummarySheet); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to rename sheet: %w", err)
	}
	for _, name := range []string{reportDaysSheet, reportSuggestionsSheet} {
		if _, err := f.NewSheet(name); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to create sheet: %w", err)
		}
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"#E6F3FF"},
			Pattern: 1,
		},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	summaryRows := [][]any{
		{"Generated At", sum.GeneratedAt.Format("2006-01-02 15:04:05")},
		{"Current Streak", sum.Streaks.CurrentStreak},
		{"Longest Streak", sum.Streaks.LongestStreak},
		{"This Week %", sum.Weekly.ThisWeekAverage},
		{"Last Week %", sum.Weekly.LastWeekAverage},
		{"Improving", yesNo(sum.Weekly.IsImproving)},
	}
	for i, row := range summaryRows {
		if err := writeRow(f, reportSummarySheet, i+1, row); err != nil {
			f.Close()
			return nil, err
		}
	}
	if err := f.SetCellStyle(reportSummarySheet, "A1", fmt.Sprintf("A%d", len(summaryRows)), headerStyle); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to set header style: %w", err)
	}
	if err := f.SetColWidth(reportSummarySheet, "A", "B", 22); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to set column width: %w", err)
	}

	if err := writeTable(f, reportDaysSheet, adherenceDaysHeader, headerStyle, len(sum.Days), func(i int) []any {
		d := sum.Days[i]
		rate := 0.0
		if d.Total > 0 {
			rate = float64(d.Taken) * 100 / float64(d.Total)
		}
		return []any{d.Date, d.Taken, d.Total, rate}
	}); err != nil {
		f.Close()
		return nil, err
	}

	if err := writeTable(f, reportSuggestionsSheet, adherenceSuggestionsHeader, headerStyle, len(sum.Suggestions), func(i int) []any {
		s := sum.Suggestions[i]
		return []any{string(s.Type), s.MedicationName, s.Message}
	}); err != nil {
		f.Close()
		return nil, err
	}

	f.SetActiveSheet(0)

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to write to buffer: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("failed to close file: %w", err)
	}
	return buf.Bytes(), nil
}

func writeTable(f *excelize.File, sheet string, header []string, headerStyle, n int, row func(i int) []any) error {
	cells := make([]any, len(header))
	for i, h := range header {
		cells[i] = h
	}
	if err := writeRow(f, sheet, 1, cells); err != nil {
		return err
	}
	last, err := excelize.CoordinatesToCellName(len(header), 1)
	if err != nil {
		return fmt.Errorf("failed to convert coordinates: %w", err)
	}
	if err := f.SetCellStyle(sheet, "A1", last, headerStyle); err != nil {
		return fmt.Errorf("failed to set header style: %w", err)
	}
	for i := 0; i < n; i++ {
		if err := writeRow(f, sheet, i+2, row(i)); err != nil {
			return err
		}
	}
	if err := f.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return fmt.Errorf("failed to freeze panes: %w", err)
	}
	return nil
}

func writeRow(f *excelize.File, sheet string, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return fmt.Errorf("failed to convert coordinates: %w", err)
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("failed to write row %d on %s: %w", row, sheet, err)
	}
	return nil
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}

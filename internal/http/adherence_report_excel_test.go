package httpapi

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/leplonghi/Horamed-AG-sub003/internal/models"
)

func TestGenerateAdherenceReport(t *testing.T) {
	sum := &models.AdherenceSummary{
		ProfileID:   "p1",
		GeneratedAt: time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC),
		Streaks:     models.StreakSummary{CurrentStreak: 3, LongestStreak: 9},
		Weekly:      models.WeeklyComparison{ThisWeekAverage: 85.7, LastWeekAverage: 71.4, IsImproving: true},
		Days: []models.DayAdherence{
			{Date: "2026-03-01", Taken: 2, Total: 2},
			{Date: "2026-03-02", Taken: 1, Total: 4},
		},
		Suggestions: []models.Suggestion{
			{Type: models.SuggestExtraReminder, MedicationName: "Losartana", Message: "Consider an extra reminder."},
		},
	}

	data, err := GenerateAdherenceReport(sum)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(reportDaysSheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, adherenceDaysHeader, rows[0])
	assert.Equal(t, []string{"2026-03-02", "1", "4", "25"}, rows[2])

	v, err := f.GetCellValue(reportSummarySheet, "B3")
	require.NoError(t, err)
	assert.Equal(t, "9", v)

	v, err = f.GetCellValue(reportSummarySheet, "B6")
	require.NoError(t, err)
	assert.Equal(t, "Yes", v)

	v, err = f.GetCellValue(reportSuggestionsSheet, "B2")
	require.NoError(t, err)
	assert.Equal(t, "Losartana", v)
}

func TestGenerateAdherenceReport_Empty(t *testing.T) {
	data, err := GenerateAdherenceReport(&models.AdherenceSummary{})
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(reportDaysSheet)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

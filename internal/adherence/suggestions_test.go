package adherence

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leplonghi/Horamed-AG-sub003/internal/models"
)

var testMeds = map[string]*models.Medication{
	"med-1": {MedicationID: "med-1", Name: "Paracetamol"},
	"med-2": {MedicationID: "med-2", Name: "Losartana"},
}

func lateDose(medID string, dayOffset, delay int) *models.DoseInstance {
	due := time.Date(2026, 3, 20-dayOffset, 8, 0, 0, 0, time.UTC)
	taken := due.Add(time.Duration(delay) * time.Minute)
	return &models.DoseInstance{MedicationID: medID, DueAt: due, Status: models.DoseTaken, TakenAt: &taken}
}

func TestSuggestions_Reschedule(t *testing.T) {
	doses := []*models.DoseInstance{
		lateDose("med-1", 1, 40),
		lateDose("med-1", 2, 50),
		lateDose("med-1", 3, 60),
		lateDose("med-1", 4, 10),
		{MedicationID: "med-1", DueAt: testNow.Add(-time.Hour), Status: models.DoseMissed},
	}

	out := Suggestions(doses, testMeds, time.UTC, testNow)
	require.Len(t, out, 1)
	assert.Equal(t, models.SuggestReschedule, out[0].Type)
	assert.Equal(t, 50, out[0].AverageDelayMinutes)
	assert.Equal(t, "08:50", out[0].SuggestedTime)
}

func TestSuggestions_TwoLateDosesIsNotEnough(t *testing.T) {
	doses := []*models.DoseInstance{lateDose("med-1", 1, 45), lateDose("med-1", 2, 45), lateDose("med-1", 3, 30)}
	for _, s := range Suggestions(doses, testMeds, time.UTC, testNow) {
		assert.NotEqual(t, models.SuggestReschedule, s.Type)
	}
}

func TestSuggestions_ExtraReminder(t *testing.T) {
	var doses []*models.DoseInstance
	for i := 1; i <= 3; i++ {
		doses = append(doses, &models.DoseInstance{MedicationID: "med-2", DueAt: testNow.Add(-time.Duration(i) * 24 * time.Hour), Status: models.DoseMissed})
	}
	out := Suggestions(doses, testMeds, time.UTC, testNow)
	require.Len(t, out, 1)
	assert.Equal(t, models.SuggestExtraReminder, out[0].Type)
	assert.Equal(t, 3, out[0].MissedCount)
	assert.Equal(t, "Losartana", out[0].MedicationName)
}

func TestSuggestions_StreakMilestone(t *testing.T) {
	var doses []*models.DoseInstance
	doses = append(doses, &models.DoseInstance{MedicationID: "med-1", DueAt: testNow.Add(-160 * time.Hour), Status: models.DoseMissed})
	for i := 7; i >= 1; i-- {
		doses = append(doses, lateDose("med-1", i-1, 0))
	}

	out := Suggestions(doses, testMeds, time.UTC, testNow)
	require.Len(t, out, 1)
	assert.Equal(t, models.SuggestStreakMotivate, out[0].Type)
	assert.Equal(t, 7, out[0].StreakLength)

	doses = append(doses, &models.DoseInstance{MedicationID: "med-1", DueAt: testNow.Add(-time.Minute), Status: models.DoseTaken})
	assert.Empty(t, Suggestions(doses, testMeds, time.UTC, testNow))
}

func TestSuggestions_IgnoresOrphans(t *testing.T) {
	var doses []*models.DoseInstance
	for i := 1; i <= 4; i++ {
		doses = append(doses, &models.DoseInstance{MedicationID: "deleted", DueAt: testNow.Add(-time.Duration(i) * time.Hour), Status: models.DoseMissed})
	}
	assert.Empty(t, Suggestions(doses, testMeds, time.UTC, testNow))
}

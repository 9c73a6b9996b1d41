package adherence

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/leplonghi/Horamed-AG-sub003/internal/models"
)

const (
	suggestionWindow   = 7 * 24 * time.Hour
	lateThreshold      = 30 // minutes
	minLateDoses       = 3
	minMissedDoses     = 3
	streakMilestoneLen = 7
)

// Suggestions behavioural hints per medication over the trailing week.
// Doses whose medication is unknown are ignored.
func Suggestions(doses []*models.DoseInstance, meds map[string]*models.Medication, loc *time.Location, now time.Time) []models.Suggestion {
	byMed := make(map[string][]*models.DoseInstance)
	start := now.Add(-suggestionWindow)
	for _, d := range doses {
		if d.DueAt.Before(start) || d.DueAt.After(now) {
			continue
		}
		if _, ok := meds[d.MedicationID]; !ok {
			continue
		}
		byMed[d.MedicationID] = append(byMed[d.MedicationID], d)
	}

	medIDs := make([]string, 0, len(byMed))
	for id := range byMed {
		medIDs = append(medIDs, id)
	}
	sort.Strings(medIDs)

	var out []models.Suggestion
	for _, id := range medIDs {
		med := meds[id]
		list := byMed[id]
		sort.Slice(list, func(i, j int) bool { return list[i].DueAt.Before(list[j].DueAt) })

		if s, ok := rescheduleSuggestion(med, list, loc); ok {
			out = append(out, s)
		}
		if s, ok := extraReminderSuggestion(med, list); ok {
			out = append(out, s)
		}
		if s, ok := streakSuggestion(med, list); ok {
			out = append(out, s)
		}
	}
	return out
}

func rescheduleSuggestion(med *models.Medication, doses []*models.DoseInstance, loc *time.Location) (models.Suggestion, bool) {
	var late []*models.DoseInstance
	total := 0
	for _, d := range doses {
		if d.Status != models.DoseTaken {
			continue
		}
		delay, ok := d.Delay()
		if !ok || delay <= lateThreshold {
			continue
		}
		late = append(late, d)
		total += delay
	}
	if len(late) < minLateDoses {
		return models.Suggestion{}, false
	}

	avg := int(math.Round(float64(total) / float64(len(late))))

	// shift the most frequent late slot by the average delay, rounded to 5 min
	slots := map[string]int{}
	best := ""
	for _, d := range late {
		slot := d.DueAt.In(loc).Format("15:04")
		slots[slot]++
		if best == "" || slots[slot] > slots[best] || (slots[slot] == slots[best] && slot < best) {
			best = slot
		}
	}
	suggested := ""
	if tod, err := models.ParseTimeOfDay(best); err == nil {
		mins := tod.Hour*60 + tod.Minute + avg
		mins = int(math.Round(float64(mins)/5)) * 5 % (24 * 60)
		suggested = models.TimeOfDay{Hour: mins / 60, Minute: mins % 60}.String()
	}

	return models.Suggestion{
		Type:                models.SuggestReschedule,
		MedicationID:        med.MedicationID,
		MedicationName:      med.Name,
		AverageDelayMinutes: avg,
		SuggestedTime:       suggested,
		Message: fmt.Sprintf("%s has been taken on average %d minutes late; consider moving %s to %s.",
			med.Name, avg, best, suggested),
	}, true
}

func extraReminderSuggestion(med *models.Medication, doses []*models.DoseInstance) (models.Suggestion, bool) {
	missed := 0
	for _, d := range doses {
		if d.Status == models.DoseMissed {
			missed++
		}
	}
	if missed < minMissedDoses {
		return models.Suggestion{}, false
	}
	return models.Suggestion{
		Type:           models.SuggestExtraReminder,
		MedicationID:   med.MedicationID,
		MedicationName: med.Name,
		MissedCount:    missed,
		Message:        fmt.Sprintf("%d doses of %s were missed this week; an extra reminder may help.", missed, med.Name),
	}, true
}

// streakSuggestion doses must be sorted by due time ascending
func streakSuggestion(med *models.Medication, doses []*models.DoseInstance) (models.Suggestion, bool) {
	run := 0
	for i := len(doses) - 1; i >= 0; i-- {
		if doses[i].Status != models.DoseTaken {
			break
		}
		run++
	}
	if run == 0 || run%streakMilestoneLen != 0 {
		return models.Suggestion{}, false
	}
	return models.Suggestion{
		Type:           models.SuggestStreakMotivate,
		MedicationID:   med.MedicationID,
		MedicationName: med.Name,
		StreakLength:   run,
		Message:        fmt.Sprintf("%d doses of %s in a row. Keep it up!", run, med.Name),
	}, true
}

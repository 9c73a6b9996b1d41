package evaluator

import (
	"fmt"
	"sort"
	"time"

	"github.com/leplonghi/Horamed-AG-sub003/internal/models"
)

// DuplicateDoseRule two or more taken doses of one medication inside the window
type DuplicateDoseRule struct {
	cfg Config
}

func NewDuplicateDoseRule(cfg Config) *DuplicateDoseRule {
	return &DuplicateDoseRule{cfg: cfg}
}

func (r *DuplicateDoseRule) Name() string { return "duplicate_dose" }

func (r *DuplicateDoseRule) Evaluate(state *State) []models.Alert {
	start := state.Now.Add(-r.cfg.DuplicateWindow)
	takenTimes := map[string][]time.Time{}
	for _, d := range state.Doses {
		if d.Status != models.DoseTaken {
			continue
		}
		at := d.DueAt
		if d.TakenAt != nil {
			at = *d.TakenAt
		}
		if at.Before(start) || at.After(state.Now) {
			continue
		}
		takenTimes[d.MedicationID] = append(takenTimes[d.MedicationID], at)
	}

	medIDs := make([]string, 0, len(takenTimes))
	for id := range takenTimes {
		medIDs = append(medIDs, id)
	}
	sort.Strings(medIDs)

	var out []models.Alert
	for _, id := range medIDs {
		times := takenTimes[id]
		if len(times) < 2 {
			continue
		}
		sort.Slice(times, func(i, j int) bool { return times[i].Before(times[j]) })
		gap := times[len(times)-1].Sub(times[0])
		if gap > r.cfg.DuplicateWindow {
			continue
		}
		med := state.Medications[id]
		out = append(out, models.Alert{
			AlertID:        "duplicate_" + id,
			Type:           models.AlertDuplicateDose,
			Severity:       models.SeverityWarning,
			Message:        fmt.Sprintf("%s was taken %d times in the last %d hours.", med.Name, len(times), int(r.cfg.DuplicateWindow.Hours())),
			MedicationID:   id,
			MedicationName: med.Name,
		})
	}
	return out
}

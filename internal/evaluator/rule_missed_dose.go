package evaluator

import (
	"fmt"

	"github.com/leplonghi/Horamed-AG-sub003/internal/models"
)

// MissedDoseRule overdue scheduled doses of drug-category medications
type MissedDoseRule struct {
	cfg Config
}

func NewMissedDoseRule(cfg Config) *MissedDoseRule {
	return &MissedDoseRule{cfg: cfg}
}

func (r *MissedDoseRule) Name() string { return "missed_dose" }

func (r *MissedDoseRule) Evaluate(state *State) []models.Alert {
	elderly := r.cfg.ElderlyAge > 0 && state.Profile.AgeAt(state.Now) >= r.cfg.ElderlyAge

	var out []models.Alert
	for _, d := range state.Doses {
		if d.Status != models.DoseScheduled || !d.DueAt.Before(state.Now) {
			continue
		}
		overdue := state.Now.Sub(d.DueAt)
		if overdue > r.cfg.OverdueWindow {
			continue
		}
		med := state.Medications[d.MedicationID]
		if !med.Active || med.Category != models.CategoryDrug {
			continue
		}

		severity := models.SeverityUrgent
		if overdue >= r.cfg.CriticalAfter || (elderly && overdue >= r.cfg.ElderlyCriticalAfter) {
			severity = models.SeverityCritical
		}

		out = append(out, models.Alert{
			AlertID:        "missed_" + d.DoseID,
			Type:           models.AlertMissedDose,
			Severity:       severity,
			Message:        fmt.Sprintf("%s was due %d minutes ago.", med.Name, int(overdue.Minutes())),
			MedicationID:   med.MedicationID,
			MedicationName: med.Name,
			DoseID:         d.DoseID,
		})
	}
	return out
}

package evaluator

import (
	"fmt"
	"sort"

	"github.com/leplonghi/Horamed-AG-sub003/internal/models"
)

// InteractionRule known interaction between two active medications
type InteractionRule struct {
	table *InteractionTable
}

func NewInteractionRule(table *InteractionTable) *InteractionRule {
	return &InteractionRule{table: table}
}

func (r *InteractionRule) Name() string { return "interaction" }

func (r *InteractionRule) Evaluate(state *State) []models.Alert {
	active := make([]*models.Medication, 0, len(state.Medications))
	for _, m := range state.Medications {
		if m.Active {
			active = append(active, m)
		}
	}
	sort.Slice(active, func(i, j int) bool { return active[i].MedicationID < active[j].MedicationID })

	var out []models.Alert
	for i := 0; i < len(active); i++ {
		for j := i + 1; j < len(active); j++ {
			a, b := active[i], active[j]
			in, ok := r.table.Lookup(a.Name, b.Name)
			if !ok {
				continue
			}
			out = append(out, models.Alert{
				AlertID:             fmt.Sprintf("interaction_%s_%s", a.MedicationID, b.MedicationID),
				Type:                models.AlertInteraction,
				Severity:            in.Severity.AlertSeverity(),
				Message:             fmt.Sprintf("%s + %s: %s", a.Name, b.Name, in.Message),
				MedicationID:        a.MedicationID,
				MedicationName:      a.Name,
				RelatedMedicationID: b.MedicationID,
				InteractionSeverity: in.Severity,
			})
		}
	}
	return out
}

package evaluator

import (
	"fmt"

	"github.com/leplonghi/Horamed-AG-sub003/internal/models"
)

// StockRule zero stock on an active medication
type StockRule struct{}

func NewStockRule() *StockRule { return &StockRule{} }

func (r *StockRule) Name() string { return "stock_depleted" }

func (r *StockRule) Evaluate(state *State) []models.Alert {
	var out []models.Alert
	for _, rec := range state.Stock {
		med, ok := state.Medications[rec.MedicationID]
		if !ok || !med.Active || rec.Quantity > 0 {
			continue
		}
		out = append(out, models.Alert{
			AlertID:        "stock_" + med.MedicationID,
			Type:           models.AlertStockDepleted,
			Severity:       models.SeverityCritical,
			Message:        fmt.Sprintf("%s is out of stock.", med.Name),
			MedicationID:   med.MedicationID,
			MedicationName: med.Name,
		})
	}
	return out
}

package models

import "time"

// AlertType detected condition kind
type AlertType string

const (
	AlertStockDepleted AlertType = "stock_depleted"
	AlertMissedDose    AlertType = "missed_dose"
	AlertDuplicateDose AlertType = "duplicate_dose"
	AlertInteraction   AlertType = "interaction"
)

// AlertSeverity render grouping
type AlertSeverity string

const (
	SeverityCritical AlertSeverity = "critical"
	SeverityUrgent   AlertSeverity = "urgent"
	SeverityWarning  AlertSeverity = "warning"
)

// InteractionSeverity clinical grading of a drug pair
type InteractionSeverity string

const (
	InteractionLow             InteractionSeverity = "low"
	InteractionModerate        InteractionSeverity = "moderate"
	InteractionHigh            InteractionSeverity = "high"
	InteractionContraindicated InteractionSeverity = "contraindicated"
)

// AlertSeverity maps the clinical grade onto the alert scale
func (s InteractionSeverity) AlertSeverity() AlertSeverity {
	switch s {
	case InteractionContraindicated:
		return SeverityCritical
	case InteractionHigh:
		return SeverityUrgent
	default:
		return SeverityWarning
	}
}

// Alert derived, regenerated each evaluation. AlertID is deterministic so a
// dismissal survives re-evaluation.
type Alert struct {
	AlertID             string              `json:"alert_id"`
	Type                AlertType           `json:"type"`
	Severity            AlertSeverity       `json:"severity"`
	Message             string              `json:"message"`
	MedicationID        string              `json:"medication_id,omitempty"`
	MedicationName      string              `json:"medication_name,omitempty"`
	DoseID              string              `json:"dose_id,omitempty"`
	RelatedMedicationID string              `json:"related_medication_id,omitempty"`
	InteractionSeverity InteractionSeverity `json:"interaction_severity,omitempty"`
	DetectedAt          time.Time           `json:"detected_at"`
}

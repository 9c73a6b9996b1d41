package models

import "time"

// ConsumptionReason why stock moved
type ConsumptionReason string

const (
	ReasonTaken    ConsumptionReason = "taken"
	ReasonAdjusted ConsumptionReason = "adjusted"
	ReasonRefill   ConsumptionReason = "refill"
	ReasonLost     ConsumptionReason = "lost"
)

// ConsumptionEntry one stock movement; Amount is signed (refill > 0)
type ConsumptionEntry struct {
	EntryID    string            `json:"entry_id" db:"entry_id"`
	OccurredAt time.Time         `json:"date" db:"occurred_at"`
	Amount     int               `json:"amount" db:"amount"`
	Reason     ConsumptionReason `json:"reason" db:"reason"`
}

// StockRecord remaining quantity for a tracked medication (stock_records table).
// Quantity >= 0; ProjectedDepletionAt is rewritten on every mutation.
type StockRecord struct {
	MedicationID         string             `json:"medication_id" db:"medication_id"`
	Quantity             int                `json:"quantity" db:"quantity"`
	Unit                 string             `json:"unit" db:"unit"`
	TotalAtRefill        int                `json:"total_at_refill" db:"total_at_refill"`
	LastRefillAt         *time.Time         `json:"last_refill_at,omitempty" db:"last_refill_at"`
	ProjectedDepletionAt *time.Time         `json:"projected_depletion_at,omitempty" db:"projected_depletion_at"`
	UpdatedAt            time.Time          `json:"updated_at" db:"updated_at"`
	History              []ConsumptionEntry `json:"history,omitempty"`
}

// Clone deep copy
func (r *StockRecord) Clone() *StockRecord {
	if r == nil {
		return nil
	}
	c := *r
	if r.LastRefillAt != nil {
		t := *r.LastRefillAt
		c.LastRefillAt = &t
	}
	if r.ProjectedDepletionAt != nil {
		t := *r.ProjectedDepletionAt
		c.ProjectedDepletionAt = &t
	}
	c.History = append([]ConsumptionEntry(nil), r.History...)
	return &c
}

// ConsumptionTrend direction of recent consumption
type ConsumptionTrend string

const (
	TrendIncreasing ConsumptionTrend = "increasing"
	TrendDecreasing ConsumptionTrend = "decreasing"
	TrendStable     ConsumptionTrend = "stable"
)

// StockSummary read model for the UI, computed on read
type StockSummary struct {
	MedicationID         string           `json:"medication_id"`
	Tracked              bool             `json:"tracked"`
	Record               *StockRecord     `json:"record,omitempty"`
	DailyRate            float64          `json:"daily_rate"`
	DaysRemaining        float64          `json:"days_remaining"`
	ProjectedDepletionAt *time.Time       `json:"projected_depletion_at,omitempty"`
	Trend                ConsumptionTrend `json:"trend"`
	Adherence7d          int              `json:"adherence_7d"`
}

package models

import (
	"math"
	"time"
)

// DoseStatus lifecycle state of a dose instance
type DoseStatus string

const (
	DoseScheduled DoseStatus = "scheduled"
	DoseTaken     DoseStatus = "taken"
	DoseMissed    DoseStatus = "missed"
	DoseSkipped   DoseStatus = "skipped"
)

// IsTerminal taken/missed/skipped are final
func (s DoseStatus) IsTerminal() bool {
	return s == DoseTaken || s == DoseMissed || s == DoseSkipped
}

// Valid known status
func (s DoseStatus) Valid() bool {
	return s == DoseScheduled || s.IsTerminal()
}

// DoseInstance one concrete "due at" occurrence (dose_instances table).
// (MedicationID, DueAt) is unique.
type DoseInstance struct {
	DoseID       string     `json:"dose_id" db:"dose_id"`
	MedicationID string     `json:"medication_id" db:"medication_id"`
	ProfileID    string     `json:"profile_id" db:"profile_id"`
	ScheduleID   string     `json:"schedule_id,omitempty" db:"schedule_id"`
	DueAt        time.Time  `json:"due_at" db:"due_at"`
	Status       DoseStatus `json:"status" db:"status"`
	TakenAt      *time.Time `json:"taken_at,omitempty" db:"taken_at"`
	DelayMinutes *int       `json:"delay_minutes,omitempty" db:"delay_minutes"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at" db:"updated_at"`
}

// DelayFor minutes between due and taken, never negative
func DelayFor(dueAt, takenAt time.Time) int {
	d := takenAt.Sub(dueAt).Minutes()
	if d <= 0 {
		return 0
	}
	return int(math.Round(d))
}

// Delay derived delay; falls back to TakenAt when the stored value is absent
func (d *DoseInstance) Delay() (int, bool) {
	if d.DelayMinutes != nil {
		return *d.DelayMinutes, true
	}
	if d.TakenAt != nil {
		return DelayFor(d.DueAt, *d.TakenAt), true
	}
	return 0, false
}

// DoseKey identity used for idempotent generation
type DoseKey struct {
	MedicationID string
	DueAt        int64 // unix seconds
}

// Key of the instance
func (d *DoseInstance) Key() DoseKey {
	return DoseKey{MedicationID: d.MedicationID, DueAt: d.DueAt.Unix()}
}

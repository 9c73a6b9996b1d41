package repository

import (
	"context"
	"time"

	"github.com/leplonghi/Horamed-AG-sub003/internal/models"
)

// ProfileRepository profile lookups
type ProfileRepository interface {
	// GetProfile returns (nil, nil) when the profile is unknown
	GetProfile(ctx context.Context, profileID string) (*models.Profile, error)
}

// MedicationRepository medications; rows are soft deleted only
type MedicationRepository interface {
	ListMedications(ctx context.Context, profileID string, includeInactive bool) ([]*models.Medication, error)
	GetMedication(ctx context.Context, medicationID string) (*models.Medication, error)
	DeactivateMedication(ctx context.Context, profileID, medicationID string) error
}

// ScheduleRepository recurrence rules
type ScheduleRepository interface {
	// ListActiveSchedules active schedules whose medication is also active
	ListActiveSchedules(ctx context.Context, profileID string) ([]*models.Schedule, error)
	ListProfilesWithActiveSchedules(ctx context.Context) ([]string, error)
}

// DoseFilter optional narrowing for dose listings
type DoseFilter struct {
	MedicationID string
	Statuses     []models.DoseStatus
}

// DoseRepository dose instances. (medication_id, due_at) is unique.
type DoseRepository interface {
	// InsertIfAbsent stores doses whose (medication, due_at) pair is new and
	// returns how many rows were actually inserted.
	InsertIfAbsent(ctx context.Context, doses []*models.DoseInstance) (int, error)
	GetDose(ctx context.Context, doseID string) (*models.DoseInstance, error)
	// ListDoses doses of a profile with due_at in [from, to)
	ListDoses(ctx context.Context, profileID string, from, to time.Time, filter DoseFilter) ([]*models.DoseInstance, error)
	CountScheduled(ctx context.Context, profileID string, from, to time.Time) (int, error)
	// TransitionStatus moves a scheduled dose to a terminal status. Returns
	// false when the dose was no longer scheduled.
	TransitionStatus(ctx context.Context, doseID string, status models.DoseStatus, takenAt *time.Time, delayMinutes *int, at time.Time) (bool, error)
	// DeleteFutureScheduled removes unconfirmed doses due at or after from
	DeleteFutureScheduled(ctx context.Context, medicationID string, from time.Time) (int64, error)
	// MarkMissedBefore flips scheduled doses due before cutoff to missed
	MarkMissedBefore(ctx context.Context, profileID string, cutoff, at time.Time) (int64, error)
}

// StockMutation edits rec in place and returns the history entry to append.
// A nil entry with a nil error means nothing changed and nothing is written.
type StockMutation func(rec *models.StockRecord) (*models.ConsumptionEntry, error)

// StockRepository stock records with atomic read-modify-write
type StockRepository interface {
	// GetStock returns models.ErrStockNotTracked when no record exists
	GetStock(ctx context.Context, medicationID string, historySince time.Time) (*models.StockRecord, error)
	ListStock(ctx context.Context, profileID string) ([]*models.StockRecord, error)
	// ApplyMutation runs fn against the locked record; quantity, projection
	// and the history entry are persisted together or not at all.
	ApplyMutation(ctx context.Context, medicationID string, fn StockMutation) (*models.StockRecord, error)
}

package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/leplonghi/Horamed-AG-sub003/internal/models"
	"github.com/leplonghi/Horamed-AG-sub003/internal/repository"
	"github.com/leplonghi/Horamed-AG-sub003/internal/stock"
)

// FeedInvalidator drops a cached alert feed
type FeedInvalidator interface {
	Invalidate(ctx context.Context, profileID string)
}

// DoseService dose lifecycle transitions
type DoseService struct {
	doses  repository.DoseRepository
	ledger *stock.Ledger
	feed   FeedInvalidator
	logger *zap.Logger
	now    func() time.Time
}

func NewDoseService(doses repository.DoseRepository, ledger *stock.Ledger, feed FeedInvalidator, logger *zap.Logger) *DoseService {
	return &DoseService{doses: doses, ledger: ledger, feed: feed, logger: logger, now: time.Now}
}

// WithClock overrides the clock
func (s *DoseService) WithClock(now func() time.Time) *DoseService {
	s.now = now
	return s
}

// RecordDoseStatus moves a scheduled dose to status exactly once. at is the
// time the user reports; the zero value means now.
func (s *DoseService) RecordDoseStatus(ctx context.Context, profileID, doseID string, status models.DoseStatus, at time.Time) (*models.DoseInstance, error) {
	if profileID == "" {
		return nil, fmt.Errorf("user_id is required")
	}
	if doseID == "" {
		return nil, fmt.Errorf("dose_id is required")
	}
	if !status.IsTerminal() {
		return nil, models.ErrInvalidStatus
	}

	dose, err := s.doses.GetDose(ctx, doseID)
	if err != nil {
		return nil, err
	}
	if dose.ProfileID != profileID {
		return nil, models.ErrNotFound
	}
	if dose.Status != models.DoseScheduled {
		return nil, models.ErrDoseAlreadyResolved
	}

	now := s.now()
	if at.IsZero() {
		at = now
	}

	var (
		takenAt     *time.Time
		delay       *int
		decremented bool
	)
	if status == models.DoseTaken {
		t := at
		d := models.DelayFor(dose.DueAt, at)
		takenAt, delay = &t, &d

		rec, err := s.ledger.DecrementOnDoseTaken(ctx, dose.MedicationID)
		if err != nil {
			s.logger.Error("Failed to decrement stock",
				zap.String("user_id", profileID),
				zap.String("medication_id", dose.MedicationID),
				zap.Error(err),
			)
			return nil, fmt.Errorf("failed to decrement stock: %w", err)
		}
		decremented = rec != nil && len(rec.History) > 0
	}

	ok, err := s.doses.TransitionStatus(ctx, doseID, status, takenAt, delay, now)
	if err != nil || !ok {
		if decremented {
			s.restoreUnit(ctx, dose.MedicationID)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to update dose status: %w", err)
		}
		return nil, models.ErrDoseAlreadyResolved
	}

	if s.feed != nil {
		s.feed.Invalidate(ctx, profileID)
	}

	dose.Status = status
	dose.TakenAt = takenAt
	dose.DelayMinutes = delay
	dose.UpdatedAt = now

	s.logger.Info("Recorded dose status",
		zap.String("user_id", profileID),
		zap.String("dose_id", doseID),
		zap.String("status", string(status)),
	)
	return dose, nil
}

func (s *DoseService) restoreUnit(ctx context.Context, medicationID string) {
	if _, err := s.ledger.Adjust(ctx, medicationID, 1, models.ReasonAdjusted); err != nil && !errors.Is(err, models.ErrStockNotTracked) {
		s.logger.Error("Failed to restore stock after lost transition",
			zap.String("medication_id", medicationID),
			zap.Error(err),
		)
	}
}

package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/leplonghi/Horamed-AG-sub003/internal/notify"
	"github.com/leplonghi/Horamed-AG-sub003/internal/repository"
)

// MedicationService medication writes that fan out change events
type MedicationService struct {
	medications repository.MedicationRepository
	events      notify.EventPublisher
	logger      *zap.Logger
}

func NewMedicationService(medications repository.MedicationRepository, events notify.EventPublisher, logger *zap.Logger) *MedicationService {
	return &MedicationService{medications: medications, events: events, logger: logger}
}

// Delete soft deletes the medication; its history stays readable
func (s *MedicationService) Delete(ctx context.Context, profileID, medicationID string) error {
	if profileID == "" {
		return fmt.Errorf("user_id is required")
	}
	if medicationID == "" {
		return fmt.Errorf("medication_id is required")
	}

	if err := s.medications.DeactivateMedication(ctx, profileID, medicationID); err != nil {
		return err
	}
	s.publish(ctx, notify.EventMedicationDeleted, profileID, medicationID)
	return nil
}

// Changed announces an edit made elsewhere (schedule or medication fields)
func (s *MedicationService) Changed(ctx context.Context, eventType, profileID, medicationID string) error {
	if profileID == "" {
		return fmt.Errorf("user_id is required")
	}
	switch eventType {
	case notify.EventMedicationCreated, notify.EventMedicationUpdated, notify.EventScheduleChanged:
	default:
		return fmt.Errorf("unsupported event type %q", eventType)
	}
	s.publish(ctx, eventType, profileID, medicationID)
	return nil
}

func (s *MedicationService) publish(ctx context.Context, eventType, profileID, medicationID string) {
	if s.events == nil {
		return
	}
	event := notify.MedicationEvent{Type: eventType, ProfileID: profileID, MedicationID: medicationID, At: time.Now().UTC()}
	if err := s.events.PublishMedicationEvent(ctx, event); err != nil {
		// the periodic runner catches up on missed events
		s.logger.Warn("Failed to publish medication event",
			zap.String("type", eventType),
			zap.String("user_id", profileID),
			zap.String("medication_id", medicationID),
			zap.Error(err),
		)
	}
}

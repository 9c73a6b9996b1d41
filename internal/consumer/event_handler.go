package consumer

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/leplonghi/Horamed-AG-sub003/internal/notify"
)

// MedicationInvalidator drops a cached medication list
type MedicationInvalidator interface {
	Invalidate(ctx context.Context, profileID string) error
}

// FeedInvalidator drops a cached alert feed
type FeedInvalidator interface {
	Invalidate(ctx context.Context, profileID string)
}

// EventHandler reacts to a medication change: cached medications and alerts
// are dropped and future doses regenerated
type EventHandler struct {
	generator   DoseGenerator
	medications MedicationInvalidator
	feed        FeedInvalidator
	logger      *zap.Logger
}

func NewEventHandler(generator DoseGenerator, medications MedicationInvalidator, feed FeedInvalidator, logger *zap.Logger) *EventHandler {
	return &EventHandler{generator: generator, medications: medications, feed: feed, logger: logger}
}

// Handle processes one event
func (h *EventHandler) Handle(ctx context.Context, event notify.MedicationEvent) error {
	if event.ProfileID == "" {
		return fmt.Errorf("profile_id is required")
	}

	if h.medications != nil {
		if err := h.medications.Invalidate(ctx, event.ProfileID); err != nil {
			h.logger.Warn("Failed to invalidate medication cache",
				zap.String("user_id", event.ProfileID),
				zap.Error(err),
			)
		}
	}

	res, err := h.generator.Regenerate(ctx, event.ProfileID, event.MedicationID)
	if err != nil {
		return fmt.Errorf("failed to regenerate doses: %w", err)
	}

	if h.feed != nil {
		h.feed.Invalidate(ctx, event.ProfileID)
	}

	h.logger.Info("Processed medication event",
		zap.String("type", event.Type),
		zap.String("user_id", event.ProfileID),
		zap.String("medication_id", event.MedicationID),
		zap.Int("inserted", res.Inserted),
		zap.Int64("removed", res.Removed),
	)
	return nil
}

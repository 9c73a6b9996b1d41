package consumer

import (
	"context"

	"go.uber.org/zap"

	"github.com/leplonghi/Horamed-AG-sub003/internal/notify"
)

// ChannelConsumer in-process medication events, used when Redis is unavailable
type ChannelConsumer struct {
	events  <-chan notify.MedicationEvent
	handler *EventHandler
	logger  *zap.Logger
}

func NewChannelConsumer(events <-chan notify.MedicationEvent, handler *EventHandler, logger *zap.Logger) *ChannelConsumer {
	return &ChannelConsumer{events: events, handler: handler, logger: logger}
}

// Start handles events until ctx is done or the channel is closed
func (c *ChannelConsumer) Start(ctx context.Context) error {
	c.logger.Info("In-process medication event consumer started")
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-c.events:
			if !ok {
				return nil
			}
			if err := c.handler.Handle(ctx, event); err != nil {
				c.logger.Error("Failed to process medication event",
					zap.String("user_id", event.ProfileID),
					zap.String("medication_id", event.MedicationID),
					zap.Error(err),
				)
			}
		}
	}
}

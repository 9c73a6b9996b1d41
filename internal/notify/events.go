package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	rediscommon "github.com/leplonghi/Horamed-AG-sub003/common/redis"
)

// Medication event types carried on the medication event stream
const (
	EventMedicationCreated = "medication.created"
	EventMedicationUpdated = "medication.updated"
	EventMedicationDeleted = "medication.deleted"
	EventScheduleChanged   = "schedule.changed"
)

// MedicationEvent "medication updated" message
type MedicationEvent struct {
	Type         string    `json:"type"`
	ProfileID    string    `json:"profile_id"`
	MedicationID string    `json:"medication_id"`
	At           time.Time `json:"at"`
}

// EventPublisher emits medication events
type EventPublisher interface {
	PublishMedicationEvent(ctx context.Context, event MedicationEvent) error
}

// StreamEventPublisher writes medication events to a Redis stream
type StreamEventPublisher struct {
	client *redis.Client
	stream string
}

func NewStreamEventPublisher(client *redis.Client, stream string) *StreamEventPublisher {
	return &StreamEventPublisher{client: client, stream: stream}
}

func (p *StreamEventPublisher) PublishMedicationEvent(ctx context.Context, event MedicationEvent) error {
	if _, err := rediscommon.PublishJSONToStream(ctx, p.client, p.stream, event); err != nil {
		return fmt.Errorf("failed to publish medication event: %w", err)
	}
	return nil
}

// ChannelEventPublisher hands events to an in-process consumer
type ChannelEventPublisher struct {
	ch chan<- MedicationEvent
}

func NewChannelEventPublisher(ch chan<- MedicationEvent) *ChannelEventPublisher {
	return &ChannelEventPublisher{ch: ch}
}

func (p *ChannelEventPublisher) PublishMedicationEvent(ctx context.Context, event MedicationEvent) error {
	select {
	case p.ch <- event:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	rediscommon "github.com/leplonghi/Horamed-AG-sub003/common/redis"
	"github.com/leplonghi/Horamed-AG-sub003/internal/notify"
)

const readBlock = 2 * time.Second

// StreamConsumerConfig stream and group names
type StreamConsumerConfig struct {
	Stream        string
	ConsumerGroup string
	ConsumerName  string
	BatchSize     int64
}

// StreamConsumer consumes medication events from a Redis stream
type StreamConsumer struct {
	redisClient *redis.Client
	handler     *EventHandler
	cfg         StreamConsumerConfig
	logger      *zap.Logger
}

func NewStreamConsumer(redisClient *redis.Client, handler *EventHandler, cfg StreamConsumerConfig, logger *zap.Logger) *StreamConsumer {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 10
	}
	return &StreamConsumer{redisClient: redisClient, handler: handler, cfg: cfg, logger: logger}
}

// Start blocks consuming until ctx is done
func (c *StreamConsumer) Start(ctx context.Context) error {
	if err := rediscommon.CreateConsumerGroup(ctx, c.redisClient, c.cfg.Stream, c.cfg.ConsumerGroup); err != nil {
		return fmt.Errorf("failed to create consumer group: %w", err)
	}

	c.logger.Info("Medication event consumer started",
		zap.String("stream", c.cfg.Stream),
		zap.String("consumer_group", c.cfg.ConsumerGroup),
		zap.String("consumer_name", c.cfg.ConsumerName),
	)

	backoffDuration := time.Second
	maxBackoff := 30 * time.Second

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
			if err := c.consumeEvents(ctx); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				c.logger.Error("Failed to consume medication events",
					zap.Error(err),
					zap.Duration("backoff", backoffDuration),
				)

				select {
				case <-ctx.Done():
					return nil
				case <-time.After(backoffDuration):
					backoffDuration *= 2
					if backoffDuration > maxBackoff {
						backoffDuration = maxBackoff
					}
				}
			} else {
				backoffDuration = time.Second
			}
		}
	}
}

func (c *StreamConsumer) consumeEvents(ctx context.Context) error {
	messages, err := rediscommon.ReadFromStream(
		ctx,
		c.redisClient,
		c.cfg.Stream,
		c.cfg.ConsumerGroup,
		c.cfg.ConsumerName,
		c.cfg.BatchSize,
		readBlock,
	)
	if err != nil {
		return fmt.Errorf("failed to read from stream: %w", err)
	}

	for _, msg := range messages {
		if err := c.processMessage(ctx, msg); err != nil {
			// left pending for redelivery
			c.logger.Error("Failed to process medication event",
				zap.String("message_id", msg.ID),
				zap.Error(err),
			)
			continue
		}
		if err := c.redisClient.XAck(ctx, c.cfg.Stream, c.cfg.ConsumerGroup, msg.ID).Err(); err != nil {
			c.logger.Warn("Failed to ack message",
				zap.String("message_id", msg.ID),
				zap.Error(err),
			)
		}
	}
	return nil
}

func (c *StreamConsumer) processMessage(ctx context.Context, msg rediscommon.StreamMessage) error {
	event, err := parseEvent(msg)
	if err != nil {
		return err
	}
	return c.handler.Handle(ctx, event)
}

func parseEvent(msg rediscommon.StreamMessage) (notify.MedicationEvent, error) {
	var event notify.MedicationEvent
	raw, ok := msg.Values["data"].(string)
	if !ok {
		return event, fmt.Errorf("message %s has no data field", msg.ID)
	}
	if err := json.Unmarshal([]byte(raw), &event); err != nil {
		return event, fmt.Errorf("failed to decode medication event: %w", err)
	}
	return event, nil
}

package notify

import (
	"context"
	"fmt"

	"github.com/go-redis/redis/v8"

	rediscommon "github.com/leplonghi/Horamed-AG-sub003/common/redis"
)

// StreamNotifier appends signals to a Redis stream
type StreamNotifier struct {
	client *redis.Client
	stream string
}

func NewStreamNotifier(client *redis.Client, stream string) *StreamNotifier {
	return &StreamNotifier{client: client, stream: stream}
}

func (n *StreamNotifier) Notify(ctx context.Context, signal Signal) error {
	if _, err := rediscommon.PublishJSONToStream(ctx, n.client, n.stream, signal); err != nil {
		return fmt.Errorf("failed to publish reschedule signal: %w", err)
	}
	return nil
}

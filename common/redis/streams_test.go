package redis

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) *redis.Client {
	mr := miniredis.RunT(t)
	return redis.NewClient(&redis.Options{Addr: mr.Addr()})
}

func TestPublishAndReadStream(t *testing.T) {
	client := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, CreateConsumerGroup(ctx, client, "medication:events", "scheduler"))
	// second call must tolerate BUSYGROUP
	require.NoError(t, CreateConsumerGroup(ctx, client, "medication:events", "scheduler"))

	payload := map[string]string{"event_type": "medication.updated", "user_id": "user-1"}
	id, err := PublishJSONToStream(ctx, client, "medication:events", payload)
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	msgs, err := ReadFromStream(ctx, client, "medication:events", "scheduler", "worker-1", 10, 100*time.Millisecond)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, id, msgs[0].ID)

	var decoded map[string]string
	require.NoError(t, json.Unmarshal([]byte(msgs[0].Values["data"].(string)), &decoded))
	assert.Equal(t, "medication.updated", decoded["event_type"])
}

func TestPublishToStream_Stringifies(t *testing.T) {
	client := setupTestRedis(t)
	ctx := context.Background()

	_, err := PublishToStream(ctx, client, "s", map[string]interface{}{
		"count":  3,
		"forced": true,
		"ratio":  0.5,
		"tags":   []string{"a", "b"},
	})
	require.NoError(t, err)

	entries, err := client.XRange(ctx, "s", "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "3", entries[0].Values["count"])
	assert.Equal(t, "true", entries[0].Values["forced"])
	assert.Equal(t, "0.5", entries[0].Values["ratio"])
	assert.Equal(t, `["a","b"]`, entries[0].Values["tags"])
}

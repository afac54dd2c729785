package redis

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/cliniccare-api/pkg/messaging"
)

func setupBroker(t *testing.T) (*RedisBroker, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	logger := zerolog.Nop()
	b := NewRedisBrokerFromClient(client, &logger)
	t.Cleanup(func() { b.Close() })
	return b, mr
}

func TestRedisBroker_PublishSubscribe(t *testing.T) {
	b, _ := setupBroker(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	channel := messaging.Channel("CARD_DEACTIVATED")
	msgs, err := b.Subscribe(ctx, channel)
	require.NoError(t, err)

	sent := messaging.Message{
		ID:         "evt-1",
		Type:       "CARD_DEACTIVATED",
		Payload:    json.RawMessage(`{"patient_id":"p1"}`),
		OccurredAt: time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, b.Publish(ctx, channel, sent))

	select {
	case raw := <-msgs:
		var got messaging.Message
		require.NoError(t, json.Unmarshal(raw, &got))
		assert.Equal(t, sent.ID, got.ID)
		assert.JSONEq(t, `{"patient_id":"p1"}`, string(got.Payload))
	case <-time.After(2 * time.Second):
		t.Fatal("message not delivered")
	}
}

func TestRedisBroker_PublishFailsWhenServerDown(t *testing.T) {
	b, mr := setupBroker(t)
	mr.Close()

	err := b.Publish(context.Background(), "cliniccare.test", map[string]string{"a": "b"})
	assert.Error(t, err)
}

func TestRedisBroker_PublishRejectsUnmarshalable(t *testing.T) {
	b, _ := setupBroker(t)
	err := b.Publish(context.Background(), "cliniccare.test", make(chan int))
	assert.ErrorContains(t, err, "failed to marshal message")
}

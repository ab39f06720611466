package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisPublisherPublish(t *testing.T) {
	// Arrange
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client, err := NewRedisClient(ctx, mr.Addr(), "", 0)
	require.NoError(t, err)
	publisher := NewRedisPublisher(client, "orders")
	defer publisher.Close()

	sub := client.Subscribe(ctx, "orders")
	defer sub.Close()
	_, err = sub.Receive(ctx)
	require.NoError(t, err)
	messages := sub.Channel()

	// Act
	err = publisher.Publish(ctx, NewEvent(TypeOrderReopened, map[string]string{"order_number": "#1001"}))

	// Assert
	require.NoError(t, err)
	select {
	case msg := <-messages:
		assert.Equal(t, "orders", msg.Channel)
		var event map[string]any
		require.NoError(t, json.Unmarshal([]byte(msg.Payload), &event))
		assert.Equal(t, TypeOrderReopened, event["type"])
		assert.Equal(t, map[string]any{"order_number": "#1001"}, event["payload"])
	case <-time.After(2 * time.Second):
		t.Fatal("no message on channel orders")
	}
}

func TestRedisPublisherPublishFailure(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client, err := NewRedisClient(ctx, mr.Addr(), "", 0)
	require.NoError(t, err)
	publisher := NewRedisPublisher(client, "orders")
	defer publisher.Close()

	mr.Close()
	err = publisher.Publish(ctx, NewEvent(TypeOrderCompleted, nil))

	assert.ErrorContains(t, err, `publish orders.completed event to channel "orders"`)
}

func TestNewRedisClientUnreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	client, err := NewRedisClient(context.Background(), addr, "", 0)

	assert.Nil(t, client)
	assert.ErrorContains(t, err, "failed to connect to Redis")
}

package pubsub_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/elimu/core/notification"
	"github.com/trezcool/elimu/services/pubsub"
)

func TestRedisPublisher_Publish(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	rs := miniredis.RunT(t)
	rc, err := pubsub.Connect(ctx, []string{rs.Addr()}, "")
	require.NoError(t, err, "should be able to ping redis")
	t.Cleanup(func() { _ = rc.Close() })

	pub := pubsub.NewRedisPublisher(rc, "elimu")
	require.Equal(t, "elimu:user:u1", pub.Channel("u1"))

	sub := rc.Subscribe(ctx, pub.Channel("u1"))
	t.Cleanup(func() { _ = sub.Close() })
	_, err = sub.Receive(ctx) // subscription confirmation
	require.NoError(t, err)

	n := notification.Notification{
		ID:        "n1",
		UserID:    "u1",
		Message:   "Your sponsorship request has been approved for 300.00.",
		Type:      notification.TypeSponsorship,
		CreatedAt: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
	}
	require.NoError(t, pub.Publish(ctx, n))

	select {
	case msg := <-sub.Channel():
		var got pubsub.Message
		require.NoError(t, json.Unmarshal([]byte(msg.Payload), &got))
		require.Equal(t, "notification.created", got.Event)
		require.Equal(t, n, got.Data)
	case <-ctx.Done():
		t.Fatal("should receive the published notification")
	}
}

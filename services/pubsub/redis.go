package pubsub

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/trezcool/elimu/core/notification"
)

const eventNotificationCreated = "notification.created"

// Message is the payload published on a user's channel.
type Message struct {
	Event string                    `json:"event"`
	Data  notification.Notification `json:"data"`
}

// RedisPublisher publishes notifications on the `<prefix>:user:<id>` channel of their user.
type RedisPublisher struct {
	redis  redis.UniversalClient
	prefix string
}

var _ notification.Publisher = (*RedisPublisher)(nil)

func NewRedisPublisher(rc redis.UniversalClient, prefix string) *RedisPublisher {
	return &RedisPublisher{redis: rc, prefix: prefix}
}

// Connect opens a client on addrs and pings it.
func Connect(ctx context.Context, addrs []string, pass string) (redis.UniversalClient, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	rc := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs:    addrs,
		Password: pass,
	})
	if err := rc.Ping(ctx).Err(); err != nil {
		_ = rc.Close()
		return nil, errors.Wrap(err, "pinging redis")
	}
	return rc, nil
}

// Channel is the channel the notifications of userID are published on.
func (p *RedisPublisher) Channel(userID string) string {
	return fmt.Sprintf("%s:user:%s", p.prefix, userID)
}

func (p *RedisPublisher) Publish(ctx context.Context, n notification.Notification) error {
	b, err := json.Marshal(Message{Event: eventNotificationCreated, Data: n})
	if err != nil {
		return errors.Wrapf(err, "pubsub: marshal %s", eventNotificationCreated)
	}
	return errors.Wrap(p.redis.Publish(ctx, p.Channel(n.UserID), b).Err(), "pubsub: publish")
}

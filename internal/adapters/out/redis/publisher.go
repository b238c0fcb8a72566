package redis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"orderflow/internal/core/domain/model/kernel"
	"orderflow/internal/core/domain/model/notification"
)

// DefaultChannel receives every order event.
const DefaultChannel = "orderflow:notifications"

// Message is the JSON body published for each event.
type Message struct {
	OrderID     string            `json:"order_id"`
	EventType   string            `json:"event_type"`
	Payload     map[string]string `json:"payload,omitempty"`
	PublishedAt time.Time         `json:"published_at"`
}

// Publisher is a NotificationSink that PUBLISHes events to a Redis channel.
type Publisher struct {
	client  redis.Cmdable
	channel string
	now     func() time.Time
}

func NewPublisher(client redis.Cmdable, channel string) *Publisher {
	if channel == "" {
		channel = DefaultChannel
	}
	return &Publisher{client: client, channel: channel, now: time.Now}
}

func (p *Publisher) Notify(ctx context.Context, orderID kernel.UUID, eventType notification.EventType, payload map[string]string) error {
	body, err := json.Marshal(Message{
		OrderID:     orderID.String(),
		EventType:   string(eventType),
		Payload:     payload,
		PublishedAt: p.now().UTC(),
	})
	if err != nil {
		return errors.WithMessage(err, "[Publisher.Notify] encode")
	}
	if err = p.client.Publish(ctx, p.channel, body).Err(); err != nil {
		return errors.WithMessagef(err, "[Publisher.Notify] channel %s", p.channel)
	}
	return nil
}

// internal/events/redis.go
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// RedisPublisher fans events out over Redis pub/sub. Delivery is best-effort:
// publish failures are logged and swallowed so they never roll back the
// domain transaction that produced the event.
type RedisPublisher struct {
	client *redis.Client
	logger *logrus.Logger
}

// NewRedisPublisher creates a Redis-backed publisher
func NewRedisPublisher(client *redis.Client, logger *logrus.Logger) *RedisPublisher {
	return &RedisPublisher{
		client: client,
		logger: logger,
	}
}

// Publish serializes the event and publishes it on its topic channel
func (p *RedisPublisher) Publish(ctx context.Context, event Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		p.logger.WithError(err).WithField("topic", event.Topic).Warn("failed to serialize event")
		return
	}

	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 3*time.Second)
	defer cancel()

	if err := p.client.Publish(pubCtx, event.Topic, payload).Err(); err != nil {
		p.logger.WithError(err).WithFields(logrus.Fields{
			"topic":    event.Topic,
			"event_id": event.ID,
		}).Warn("failed to publish event")
	}
}

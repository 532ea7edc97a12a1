package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisChannel is the pub/sub channel shared by all API instances.
const DefaultRedisChannel = "biblioteca:realtime"

// RedisRelay publishes events through Redis so every API instance delivers
// them to its own local subscribers.
type RedisRelay struct {
	client  *redis.Client
	hub     *Hub
	channel string
}

// NewRedisRelay wraps an existing client and hub.
func NewRedisRelay(client *redis.Client, hub *Hub, channel string) *RedisRelay {
	if channel == "" {
		channel = DefaultRedisChannel
	}
	return &RedisRelay{client: client, hub: hub, channel: channel}
}

// Publish sends the event to Redis. Local delivery happens when it comes back
// through Run.
func (r *RedisRelay) Publish(ctx context.Context, e Event) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := r.client.Publish(ctx, r.channel, payload).Err(); err != nil {
		return fmt.Errorf("redis publish: %w", err)
	}
	return nil
}

// Subscribe registers on the local hub.
func (r *RedisRelay) Subscribe(ctx context.Context, topic Topic, h Handler) (Subscription, error) {
	return r.hub.Subscribe(ctx, topic, h)
}

// Run relays Redis messages into the hub until ctx is done.
func (r *RedisRelay) Run(ctx context.Context) error {
	pubsub := r.client.Subscribe(ctx, r.channel)
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("redis subscribe %s: %w", r.channel, err)
	}
	log.Printf("[Redis/Realtime] Relaying channel %s", r.channel)

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var e Event
			if err := json.Unmarshal([]byte(msg.Payload), &e); err != nil {
				log.Printf("⚠️ [Redis/Realtime] Dropping malformed event: %v", err)
				continue
			}
			r.hub.Deliver(e)
		}
	}
}

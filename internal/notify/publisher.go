// Package notify pushes freshly stored notifications to live clients.
package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-redis/redis/v8"

	"bloodfinder/m/domain"
)

// Publisher delivers stored notifications to anyone listening for a recipient.
type Publisher interface {
	Publish(ctx context.Context, ns []*domain.Notification) error
}

// Channel is the Redis channel carrying a recipient's notifications.
func Channel(userID string) string {
	return "notifications:" + userID
}

// RedisPublisher publishes each notification as JSON on its recipient's channel.
type RedisPublisher struct {
	client *redis.Client
}

// NewRedisPublisher creates a publisher over an existing client.
func NewRedisPublisher(client *redis.Client) *RedisPublisher {
	return &RedisPublisher{client: client}
}

// Publish sends the notifications in one pipeline.
func (p *RedisPublisher) Publish(ctx context.Context, ns []*domain.Notification) error {
	if len(ns) == 0 {
		return nil
	}

	pipe := p.client.Pipeline()
	for _, n := range ns {
		payload, err := json.Marshal(n)
		if err != nil {
			return fmt.Errorf("failed to encode notification: %w", err)
		}
		pipe.Publish(ctx, Channel(n.UserID), payload)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to publish notifications: %w", err)
	}
	return nil
}

// Close closes the underlying client.
func (p *RedisPublisher) Close() error {
	return p.client.Close()
}

// Nop discards everything. It is used when no Redis address is configured.
type Nop struct{}

func (Nop) Publish(context.Context, []*domain.Notification) error { return nil }

func (Nop) Close() error { return nil }

package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

var errHubStopped = errors.New("websocket hub stopped")

// Publisher delivers an event to every client in group.
type Publisher interface {
	Publish(ctx context.Context, group string, event Event) error
}

// ChannelName is the Redis pub/sub channel carrying a group's events.
func ChannelName(group string) string {
	return "chat:" + group
}

func NewRedisClient(addr, password string) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       0,
	})
}

func encodeEvent(group string, event Event) ([]byte, error) {
	if group == "" {
		return nil, fmt.Errorf("websocket publish: group required")
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("websocket publish: marshal payload: %w", err)
	}
	return payload, nil
}

// RedisPublisher hands events to the ws-server through Redis.
type RedisPublisher struct {
	client *redis.Client
}

func NewRedisPublisher(client *redis.Client) *RedisPublisher {
	return &RedisPublisher{client: client}
}

func (p *RedisPublisher) Publish(ctx context.Context, group string, event Event) error {
	payload, err := encodeEvent(group, event)
	if err != nil {
		return err
	}
	if err := p.client.Publish(ctx, ChannelName(group), payload).Err(); err != nil {
		return fmt.Errorf("websocket publish: redis publish: %w", err)
	}
	return nil
}

// HubPublisher broadcasts straight into a hub in the same process.
type HubPublisher struct {
	hub *Hub
}

func NewHubPublisher(hub *Hub) *HubPublisher {
	return &HubPublisher{hub: hub}
}

func (p *HubPublisher) Publish(ctx context.Context, group string, event Event) error {
	payload, err := encodeEvent(group, event)
	if err != nil {
		return err
	}
	return p.hub.send(ctx, &WSMessage{
		Content:   string(payload),
		RoomID:    group,
		Timestamp: time.Now().Unix(),
	})
}

// NopPublisher drops events. Used when no Redis is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, string, Event) error {
	return nil
}

package realtime

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/therafiali/internal-app-sub000/internal/models"
)

// DefaultChannel is the pub/sub channel shared by every API instance.
const DefaultChannel = "backoffice:changes"

type wireEvent struct {
	Origin string             `json:"origin"`
	Event  models.ChangeEvent `json:"event"`
}

// RedisBridge relays change events between API instances. Local publishes
// reach the hub immediately and are mirrored to Redis; events from other
// instances are replayed into the local hub by Run.
type RedisBridge struct {
	client  *redis.Client
	hub     *Hub
	channel string
	origin  string
	logger  *zap.Logger
}

// NewRedisBridge wires hub to the Redis channel.
func NewRedisBridge(client *redis.Client, hub *Hub, channel string, logger *zap.Logger) *RedisBridge {
	if channel == "" {
		channel = DefaultChannel
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisBridge{
		client:  client,
		hub:     hub,
		channel: channel,
		origin:  uuid.NewString(),
		logger:  logger,
	}
}

// Publish delivers ev locally and forwards it to peers.
func (b *RedisBridge) Publish(ctx context.Context, ev models.ChangeEvent) error {
	b.hub.Broadcast(ev)
	if b.client == nil {
		return nil
	}
	payload, err := json.Marshal(wireEvent{Origin: b.origin, Event: ev})
	if err != nil {
		return fmt.Errorf("encode change event: %w", err)
	}
	if err := b.client.Publish(ctx, b.channel, payload).Err(); err != nil {
		return fmt.Errorf("publish change event: %w", err)
	}
	return nil
}

// Run consumes peer events until ctx is cancelled.
func (b *RedisBridge) Run(ctx context.Context) error {
	if b.client == nil {
		<-ctx.Done()
		return nil
	}
	pubsub := b.client.Subscribe(ctx, b.channel)
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe %s: %w", b.channel, err)
	}
	b.logger.Info("change bridge subscribed", zap.String("channel", b.channel))

	messages := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			b.relay(msg.Payload)
		}
	}
}

func (b *RedisBridge) relay(payload string) {
	var in wireEvent
	if err := json.Unmarshal([]byte(payload), &in); err != nil {
		b.logger.Warn("discarding malformed change event", zap.Error(err))
		return
	}
	if in.Origin == b.origin {
		return
	}
	b.hub.Broadcast(in.Event)
}

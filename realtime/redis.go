package realtime

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RedisBroadcaster publishes events to a Redis channel so that every API
// instance subscribed to it relays them to its own WebSocket clients.
type RedisBroadcaster struct {
	client  *redis.Client
	channel string
	local   *Hub
	logger  *zap.Logger
}

// NewRedisBroadcaster connects to Redis and verifies the connection
func NewRedisBroadcaster(ctx context.Context, addr, password string, db int, channel string, local *Hub) (*RedisBroadcaster, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return &RedisBroadcaster{
		client:  client,
		channel: channel,
		local:   local,
		logger:  zap.L().Named("redis"),
	}, nil
}

// Broadcast publishes the event. If publishing fails the event is delivered
// to local clients only.
func (r *RedisBroadcaster) Broadcast(event string, tableID uuid.UUID, payload interface{}) {
	raw, err := json.Marshal(Envelope{Event: event, TableID: tableID, Data: payload})
	if err != nil {
		r.logger.Error("failed to encode event", zap.String("event", event), zap.Error(err))
		return
	}
	if err := r.client.Publish(context.Background(), r.channel, raw).Err(); err != nil {
		r.logger.Warn("publish failed, delivering locally", zap.String("event", event), zap.Error(err))
		r.local.deliver(tableID, raw)
	}
}

// Run relays messages from the channel to the local hub until ctx is cancelled
func (r *RedisBroadcaster) Run(ctx context.Context) error {
	sub := r.client.Subscribe(ctx, r.channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", r.channel, err)
	}
	r.logger.Info("subscribed", zap.String("channel", r.channel))

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var env struct {
				TableID uuid.UUID `json:"tableId"`
			}
			if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
				r.logger.Warn("discarding malformed event", zap.Error(err))
				continue
			}
			r.local.deliver(env.TableID, []byte(msg.Payload))
		}
	}
}

// Close releases the Redis connection
func (r *RedisBroadcaster) Close() error {
	return r.client.Close()
}

package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/voclaria/voclaria/internal/model"
)

const DefaultRedisChannel = "voclaria:changes"

// RedisRelay publishes notifications through Redis pub/sub and feeds what it
// receives into a local Broker, so every server instance sees every change.
type RedisRelay struct {
	client  *redis.Client
	local   *Broker
	channel string
}

// Connect opens a client for the given redis:// URL and pings it.
func Connect(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return client, nil
}

func NewRedisRelay(client *redis.Client, local *Broker, channel string) *RedisRelay {
	if channel == "" {
		channel = DefaultRedisChannel
	}
	return &RedisRelay{client: client, local: local, channel: channel}
}

func (r *RedisRelay) Publish(ctx context.Context, n model.ChangeNotification) error {
	payload, err := encodeNotification(n)
	if err != nil {
		return err
	}
	if err := r.client.Publish(ctx, r.channel, payload).Err(); err != nil {
		return fmt.Errorf("failed to publish to redis: %w", err)
	}
	return nil
}

// Run forwards Redis messages to the local broker until ctx is done.
func (r *RedisRelay) Run(ctx context.Context) error {
	ps := r.client.Subscribe(ctx, r.channel)
	defer ps.Close()

	if _, err := ps.Receive(ctx); err != nil {
		return fmt.Errorf("failed to subscribe to redis channel %q: %w", r.channel, err)
	}
	slog.Info("realtime relay listening", "channel", r.channel)

	msgs := ps.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-msgs:
			if !ok {
				return nil
			}
			r.forward(ctx, msg.Payload)
		}
	}
}

func (r *RedisRelay) forward(ctx context.Context, payload string) {
	n, err := decodeNotification(payload)
	if err != nil {
		slog.Warn("realtime relay dropped malformed message", "error", err)
		return
	}
	if err := r.local.Publish(ctx, n); err != nil {
		slog.Warn("realtime relay local publish failed", "table", n.Table, "error", err)
	}
}

func encodeNotification(n model.ChangeNotification) (string, error) {
	if n.CommitTS.IsZero() {
		n.CommitTS = time.Now().UTC()
	}
	b, err := json.Marshal(n)
	if err != nil {
		return "", fmt.Errorf("failed to encode notification: %w", err)
	}
	return string(b), nil
}

func decodeNotification(payload string) (model.ChangeNotification, error) {
	var n model.ChangeNotification
	if err := json.Unmarshal([]byte(payload), &n); err != nil {
		return n, fmt.Errorf("failed to decode notification: %w", err)
	}
	if n.Table == "" {
		return n, fmt.Errorf("notification without table")
	}
	return n, nil
}

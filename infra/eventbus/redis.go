package eventbus

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/amirasaad/securebank/pkg/config"
	"github.com/amirasaad/securebank/pkg/domain/events"
	"github.com/amirasaad/securebank/pkg/eventbus"

	"github.com/redis/go-redis/v9"
)

// RedisEventBus publishes events to a Redis stream and consumes them through
// a consumer group. A single consumer loop reads the stream and dispatches
// by event type, so every message is acknowledged exactly once no matter how
// many handlers are registered.
type RedisEventBus struct {
	client   *redis.Client
	stream   string
	group    string
	consumer string
	logger   *slog.Logger

	mu       sync.RWMutex
	handlers map[events.EventType][]eventbus.HandlerFunc

	startOnce sync.Once
	cancel    context.CancelFunc
	done      chan struct{}
}

// NewWithRedis creates a new Redis-backed event bus.
// stream: Name of the Redis stream to use
// group: Consumer group name for event processing
func NewWithRedis(cfg *config.Redis, stream, group string, logger *slog.Logger) (*RedisEventBus, error) {
	if cfg == nil || cfg.URL == "" || stream == "" || group == "" {
		return nil, fmt.Errorf("redis event bus: url, stream, and group are required")
	}

	opt, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("redis event bus: invalid URL: %w", err)
	}
	if cfg.PoolSize > 0 {
		opt.PoolSize = cfg.PoolSize
	}
	if cfg.DialTimeout > 0 {
		opt.DialTimeout = cfg.DialTimeout
	}
	if cfg.ReadTimeout > 0 {
		opt.ReadTimeout = cfg.ReadTimeout
	}
	if cfg.WriteTimeout > 0 {
		opt.WriteTimeout = cfg.WriteTimeout
	}

	client := redis.NewClient(opt)
	if err := client.Ping(context.Background()).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis event bus: connection failed: %w", err)
	}

	stream = cfg.KeyPrefix + stream
	err = client.XGroupCreateMkStream(context.Background(), stream, group, "0").Err()
	if err != nil && !isBusyGroup(err) {
		_ = client.Close()
		return nil, fmt.Errorf("redis event bus: create group: %w", err)
	}

	host, _ := os.Hostname()
	return &RedisEventBus{
		client:   client,
		stream:   stream,
		group:    group,
		consumer: fmt.Sprintf("%s-%d-%d", host, os.Getpid(), time.Now().UnixNano()),
		logger:   logger.With("component", "redis-event-bus", "stream", stream),
		handlers: make(map[events.EventType][]eventbus.HandlerFunc),
		done:     make(chan struct{}),
	}, nil
}

func isBusyGroup(err error) bool {
	return err != nil && len(err.Error()) >= 9 && err.Error()[:9] == "BUSYGROUP"
}

// Emit publishes an event to the Redis stream.
func (b *RedisEventBus) Emit(ctx context.Context, event events.Event) error {
	payload, err := encodeEnvelope(event)
	if err != nil {
		return fmt.Errorf("redis event bus: %w", err)
	}

	err = b.client.XAdd(ctx, &redis.XAddArgs{
		Stream: b.stream,
		Values: map[string]any{"event": string(payload)},
	}).Err()
	if err != nil {
		b.logger.Error("failed to emit event", "error", err, "type", event.Type())
		return fmt.Errorf("redis event bus: emit failed: %w", err)
	}

	b.logger.Debug("event emitted", "type", event.Type())
	return nil
}

// Register adds a handler and starts the consumer loop on first use.
func (b *RedisEventBus) Register(eventType events.EventType, handler eventbus.HandlerFunc) {
	b.mu.Lock()
	b.handlers[eventType] = append(b.handlers[eventType], handler)
	b.mu.Unlock()
	b.logger.Info("registering handler", "event_type", eventType, "consumer", b.consumer)

	b.startOnce.Do(func() {
		ctx, cancel := context.WithCancel(context.Background())
		b.cancel = cancel
		go b.consume(ctx)
	})
}

func (b *RedisEventBus) consume(ctx context.Context) {
	defer close(b.done)
	for {
		res, err := b.client.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    b.group,
			Consumer: b.consumer,
			Streams:  []string{b.stream, ">"},
			Count:    10,
			Block:    5 * time.Second,
		}).Result()
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			if !errors.Is(err, redis.Nil) {
				b.logger.Error("error reading from stream", "error", err)
				time.Sleep(time.Second)
			}
			continue
		}

		for _, stream := range res {
			for _, msg := range stream.Messages {
				b.process(ctx, msg)
			}
		}
	}
}

func (b *RedisEventBus) process(ctx context.Context, msg redis.XMessage) {
	raw, _ := msg.Values["event"].(string)
	eventType, event, err := decodeEnvelope([]byte(raw))

	switch {
	case err != nil:
		b.logger.Error("failed to decode event", "id", msg.ID, "error", err)
		b.deadLetter(ctx, msg, err.Error())
	case event == nil:
		b.logger.Warn("unknown event type", "id", msg.ID, "type", eventType)
		b.deadLetter(ctx, msg, "unknown event type")
	default:
		b.mu.RLock()
		handlers := append([]eventbus.HandlerFunc(nil), b.handlers[eventType]...)
		b.mu.RUnlock()
		if !runHandlers(ctx, b.logger, event, handlers) {
			b.deadLetter(ctx, msg, "handler failed")
		}
	}

	if err := b.client.XAck(ctx, b.stream, b.group, msg.ID).Err(); err != nil {
		b.logger.Error("failed to ack message", "id", msg.ID, "error", err)
	}
}

func (b *RedisEventBus) deadLetter(ctx context.Context, msg redis.XMessage, reason string) {
	values := map[string]any{"reason": reason, "original_id": msg.ID}
	for k, v := range msg.Values {
		values[k] = v
	}
	if err := b.client.XAdd(ctx, &redis.XAddArgs{
		Stream: b.stream + "-DLQ",
		Values: values,
	}).Err(); err != nil {
		b.logger.Error("failed to publish to DLQ", "id", msg.ID, "error", err)
	}
}

// Close stops the consumer loop and closes the client.
func (b *RedisEventBus) Close() error {
	if b.cancel != nil {
		b.cancel()
		<-b.done
	}
	return b.client.Close()
}

var _ eventbus.Bus = (*RedisEventBus)(nil)

package eventbus

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/amirasaad/securebank/pkg/config"
	"github.com/amirasaad/securebank/pkg/domain/events"
	"github.com/amirasaad/securebank/pkg/eventbus"
	"github.com/segmentio/kafka-go"
	"github.com/segmentio/kafka-go/sasl/plain"
)

const defaultTopicPrefix = "securebank.events"

// KafkaEventBus publishes each event type to its own topic and runs one
// consumer group reader per registered type.
type KafkaEventBus struct {
	brokers []string
	prefix  string
	groupID string
	writer  *kafka.Writer
	dialer  *kafka.Dialer
	ctx     context.Context

	handlers    map[events.EventType][]eventbus.HandlerFunc
	handlersMtx sync.RWMutex

	readers    map[events.EventType]*kafka.Reader
	readersMtx sync.Mutex
	topicsMtx  sync.Mutex
	topics     map[string]struct{}

	logger *slog.Logger
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewWithKafka creates a new Kafka-backed event bus.
// cfg.Brokers is a comma-separated list (e.g. "localhost:9092,localhost:9093").
func NewWithKafka(cfg *config.Kafka, logger *slog.Logger) (*KafkaEventBus, error) {
	if cfg == nil {
		return nil, fmt.Errorf("kafka event bus: config is required")
	}
	brokers := parseBrokers(cfg.Brokers)
	if len(brokers) == 0 {
		return nil, fmt.Errorf("kafka event bus: brokers are required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	dialer := &kafka.Dialer{Timeout: 10 * time.Second, DualStack: true}
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		AllowAutoTopicCreation: true,
		RequiredAcks:           kafka.RequireOne,
		Balancer:               &kafka.Hash{},
	}
	if cfg.SASLUsername != "" || cfg.SASLPassword != "" {
		if cfg.SASLUsername == "" || cfg.SASLPassword == "" {
			return nil, fmt.Errorf("kafka event bus: sasl username and password are required")
		}
		mechanism := plain.Mechanism{Username: cfg.SASLUsername, Password: cfg.SASLPassword}
		dialer.SASLMechanism = mechanism
		writer.Transport = &kafka.Transport{SASL: mechanism}
	}

	groupID := cfg.GroupID
	if groupID == "" {
		groupID = "securebank"
	}

	ctx, cancel := context.WithCancel(context.Background())
	bus := &KafkaEventBus{
		brokers:  brokers,
		prefix:   cfg.TopicPrefix,
		groupID:  groupID,
		writer:   writer,
		dialer:   dialer,
		ctx:      ctx,
		handlers: make(map[events.EventType][]eventbus.HandlerFunc),
		readers:  make(map[events.EventType]*kafka.Reader),
		topics:   make(map[string]struct{}),
		logger:   logger.With("bus", "kafka"),
		cancel:   cancel,
	}

	if err := bus.ping(ctx); err != nil {
		_ = bus.Close()
		return nil, err
	}

	bus.logger.Info("Kafka event bus initialized",
		"group_id", groupID,
		"brokers", brokers,
		"sasl_enabled", dialer.SASLMechanism != nil,
	)
	return bus, nil
}

// Close stops background goroutines and closes network resources.
func (b *KafkaEventBus) Close() error {
	if b == nil {
		return nil
	}
	if b.cancel != nil {
		b.cancel()
	}

	b.readersMtx.Lock()
	for _, r := range b.readers {
		_ = r.Close()
	}
	b.readersMtx.Unlock()

	b.wg.Wait()
	return b.writer.Close()
}

// Register registers an event handler for a specific event type.
func (b *KafkaEventBus) Register(eventType events.EventType, handler eventbus.HandlerFunc) {
	b.handlersMtx.Lock()
	b.handlers[eventType] = append(b.handlers[eventType], handler)
	b.handlersMtx.Unlock()

	b.ensureConsumer(eventType)
}

// Emit publishes an event to Kafka.
func (b *KafkaEventBus) Emit(ctx context.Context, event events.Event) error {
	payload, err := encodeEnvelope(event)
	if err != nil {
		return fmt.Errorf("kafka event bus: %w", err)
	}

	topic := topicNameFor(b.prefix, events.EventType(event.Type()))
	if err := b.ensureTopic(ctx, topic); err != nil {
		return err
	}

	msg := kafka.Message{
		Topic: topic,
		Key:   []byte(event.Type()),
		Value: payload,
		Time:  time.Now(),
	}
	if err := b.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("kafka event bus: publish failed: %w", err)
	}
	return nil
}

func (b *KafkaEventBus) ping(ctx context.Context) error {
	conn, err := b.dialer.DialContext(ctx, "tcp", b.brokers[0])
	if err != nil {
		return fmt.Errorf("kafka event bus: connection failed: %w", err)
	}
	_ = conn.Close()
	return nil
}

func (b *KafkaEventBus) ensureConsumer(eventType events.EventType) {
	b.readersMtx.Lock()
	defer b.readersMtx.Unlock()

	if _, exists := b.readers[eventType]; exists {
		return
	}

	topic := topicNameFor(b.prefix, eventType)
	if err := b.ensureTopic(b.ctx, topic); err != nil {
		b.logger.Error("kafka ensure topic error", "error", err, "event_type", eventType)
		return
	}

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     b.brokers,
		GroupID:     b.groupID,
		Topic:       topic,
		StartOffset: kafka.FirstOffset,
		MinBytes:    1,
		MaxBytes:    10e6,
		MaxWait:     time.Second,
		Dialer:      b.dialer,
	})
	b.readers[eventType] = reader

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		b.consumeLoop(b.ctx, eventType, reader)
	}()
}

func (b *KafkaEventBus) consumeLoop(ctx context.Context, eventType events.EventType, reader *kafka.Reader) {
	for {
		msg, err := reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return
			}
			b.logger.Error("kafka consume error", "error", err, "event_type", eventType)
			time.Sleep(500 * time.Millisecond)
			continue
		}

		if err := b.processMessage(ctx, msg); err != nil {
			// Not committed; the message is redelivered.
			b.logger.Error("kafka message processing failed; will retry",
				"error", err, "topic", msg.Topic, "partition", msg.Partition, "offset", msg.Offset)
			time.Sleep(500 * time.Millisecond)
			continue
		}
		if err := reader.CommitMessages(ctx, msg); err != nil {
			b.logger.Error("kafka commit error", "error", err, "topic", msg.Topic, "offset", msg.Offset)
		}
	}
}

// processMessage returns an error only when the message could not be handed
// off to the DLQ.
func (b *KafkaEventBus) processMessage(ctx context.Context, msg kafka.Message) error {
	eventType, event, err := decodeEnvelope(msg.Value)
	if err != nil || event == nil {
		b.logger.Error("undecodable message", "error", err, "type", eventType, "topic", msg.Topic, "offset", msg.Offset)
		return b.publishToDLQ(ctx, eventType, msg.Value)
	}

	if runHandlers(ctx, b.logger, event, b.getHandlers(eventType)) {
		return nil
	}
	return b.publishToDLQ(ctx, eventType, msg.Value)
}

func (b *KafkaEventBus) publishToDLQ(ctx context.Context, eventType events.EventType, raw []byte) error {
	dlqTopic := dlqTopicNameFor(b.prefix, eventType)
	if err := b.ensureTopic(ctx, dlqTopic); err != nil {
		return err
	}
	msg := kafka.Message{
		Topic: dlqTopic,
		Key:   []byte(eventType.String()),
		Value: raw,
		Time:  time.Now(),
	}
	if err := b.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("kafka event bus: dlq publish failed: %w", err)
	}
	b.logger.Warn("message sent to DLQ", "event_type", eventType, "dlq_topic", dlqTopic)
	return nil
}

func (b *KafkaEventBus) ensureTopic(ctx context.Context, topic string) error {
	b.topicsMtx.Lock()
	_, exists := b.topics[topic]
	b.topicsMtx.Unlock()
	if exists {
		return nil
	}

	conn, err := b.dialer.DialContext(ctx, "tcp", b.brokers[0])
	if err != nil {
		return fmt.Errorf("kafka event bus: dial failed: %w", err)
	}
	defer func() { _ = conn.Close() }()

	err = conn.CreateTopics(kafka.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	})
	if err != nil && !isTopicAlreadyExists(err) {
		return fmt.Errorf("kafka event bus: create topic failed: %w", err)
	}

	b.topicsMtx.Lock()
	b.topics[topic] = struct{}{}
	b.topicsMtx.Unlock()
	return nil
}

func isTopicAlreadyExists(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, kafka.TopicAlreadyExists) {
		return true
	}
	return strings.Contains(err.Error(), "Topic with this name already exists")
}

func (b *KafkaEventBus) getHandlers(eventType events.EventType) []eventbus.HandlerFunc {
	b.handlersMtx.RLock()
	defer b.handlersMtx.RUnlock()
	return append([]eventbus.HandlerFunc(nil), b.handlers[eventType]...)
}

func parseBrokers(brokers string) []string {
	parts := strings.Split(brokers, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func topicNameFor(prefix string, eventType events.EventType) string {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = defaultTopicPrefix
	}
	return fmt.Sprintf("%s.%s", prefix, strings.ToLower(eventType.String()))
}

func dlqTopicNameFor(prefix string, eventType events.EventType) string {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = defaultTopicPrefix
	}
	return fmt.Sprintf("%s.dlq.%s", prefix, strings.ToLower(eventType.String()))
}

var _ eventbus.Bus = (*KafkaEventBus)(nil)

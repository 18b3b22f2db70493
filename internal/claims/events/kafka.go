package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
)

// KafkaConfig contains configurable parameters for the Kafka emitter.
type KafkaConfig struct {
	// Brokers is the list of Kafka broker addresses (host:port).
	Brokers []string

	// Topic is the topic adjudication events are written to.
	Topic string

	// WriteTimeout is the per-write timeout. Defaults to 10s if zero.
	WriteTimeout time.Duration
}

// KafkaEmitter publishes adjudication events through a segmentio/kafka-go
// Writer. Messages are keyed by claim id so per-claim ordering holds.
type KafkaEmitter struct {
	writer *kafka.Writer
}

// NewKafka constructs a KafkaEmitter.
func NewKafka(cfg KafkaConfig) (*KafkaEmitter, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("kafka: at least one broker required")
	}
	if cfg.Topic == "" {
		return nil, fmt.Errorf("kafka: topic required")
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = 10 * time.Second
	}

	w := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 10 * time.Millisecond,
		WriteTimeout: cfg.WriteTimeout,
		Async:        false,
	}

	return &KafkaEmitter{writer: w}, nil
}

// EmitClaimAdjudicated writes one event keyed by claim id.
func (e *KafkaEmitter) EmitClaimAdjudicated(ctx context.Context, ev ClaimAdjudicated) error {
	value, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	return e.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(ev.ClaimID),
		Value: value,
		Time:  ev.At,
	})
}

// Close shuts down the underlying writer and releases resources.
func (e *KafkaEmitter) Close() error {
	if e == nil || e.writer == nil {
		return nil
	}
	return e.writer.Close()
}

var _ Emitter = (*KafkaEmitter)(nil)

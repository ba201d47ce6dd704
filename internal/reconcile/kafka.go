package reconcile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/segmentio/kafka-go"
)

// KafkaConfig locates the orphan topic.
type KafkaConfig struct {
	Brokers []string
	Topic   string
	GroupID string
}

// KafkaQueue publishes orphans to a Kafka topic so cleanup survives restarts
// and can run in a separate process.
type KafkaQueue struct {
	writer *kafka.Writer
}

// NewKafkaQueue returns a producer for cfg.Topic.
func NewKafkaQueue(cfg KafkaConfig) *KafkaQueue {
	return &KafkaQueue{writer: &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		BatchTimeout: 10 * time.Millisecond,
	}}
}

func (q *KafkaQueue) Enqueue(ctx context.Context, o Orphan) error {
	value, err := json.Marshal(o)
	if err != nil {
		return fmt.Errorf("encode orphan: %w", err)
	}
	err = q.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(o.Bucket + "/" + o.Key),
		Value: value,
	})
	if err != nil {
		return fmt.Errorf("publish orphan: %w", err)
	}
	return nil
}

func (q *KafkaQueue) Close() error {
	return q.writer.Close()
}

// KafkaSource consumes the orphan topic as part of a consumer group.
// Messages are committed only after the worker acknowledges them.
type KafkaSource struct {
	reader *kafka.Reader
}

// NewKafkaSource returns a consumer for cfg.Topic in group cfg.GroupID.
func NewKafkaSource(cfg KafkaConfig) *KafkaSource {
	return &KafkaSource{reader: kafka.NewReader(kafka.ReaderConfig{
		Brokers: cfg.Brokers,
		Topic:   cfg.Topic,
		GroupID: cfg.GroupID,
	})}
}

func (s *KafkaSource) Next(ctx context.Context) (Delivery, error) {
	for {
		msg, err := s.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return Delivery{}, ErrClosed
			}
			return Delivery{}, err
		}

		var o Orphan
		if err := json.Unmarshal(msg.Value, &o); err != nil || o.Bucket == "" || o.Key == "" {
			// Poison message: skip it so the partition keeps moving.
			if cerr := s.reader.CommitMessages(ctx, msg); cerr != nil {
				return Delivery{}, fmt.Errorf("commit malformed orphan: %w", cerr)
			}
			continue
		}

		return Delivery{
			Orphan: o,
			Ack: func(ctx context.Context) error {
				return s.reader.CommitMessages(ctx, msg)
			},
		}, nil
	}
}

func (s *KafkaSource) Close() error {
	return s.reader.Close()
}

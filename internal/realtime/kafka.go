package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
)

// KafkaPublisher mirrors changes to one topic per table.
type KafkaPublisher struct {
	writer *kafka.Writer
	prefix string
}

// NewKafkaPublisher returns a publisher writing to brokers. Topics are
// named prefix + table.
func NewKafkaPublisher(brokers []string, prefix string) *KafkaPublisher {
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Balancer:               &kafka.Hash{},
			BatchTimeout:           50 * time.Millisecond,
			RequiredAcks:           kafka.RequireOne,
			AllowAutoTopicCreation: true,
		},
		prefix: prefix,
	}
}

// Topic returns the topic a table's changes go to.
func (p *KafkaPublisher) Topic(table string) string {
	return p.prefix + strings.ReplaceAll(table, "_", "-")
}

// Publish JSON-encodes v and writes it keyed by table so one table's
// changes stay ordered within a partition.
func (p *KafkaPublisher) Publish(ctx context.Context, table string, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("kafka: encoding change: %w", err)
	}
	err = p.writer.WriteMessages(ctx, kafka.Message{
		Topic: p.Topic(table),
		Key:   []byte(table),
		Value: payload,
	})
	if err != nil {
		return fmt.Errorf("kafka: writing to %s: %w", p.Topic(table), err)
	}
	return nil
}

// Close flushes pending messages.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

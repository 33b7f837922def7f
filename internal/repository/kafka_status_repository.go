package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/noah-isme/room-usage-monitor/internal/models"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaStatusRepository emits every report as a message keyed by room.
type KafkaStatusRepository struct {
	writer messageWriter
	roomID string
}

// NewKafkaStatusRepository connects a writer for topic.
func NewKafkaStatusRepository(brokers []string, topic, roomID string) *KafkaStatusRepository {
	return &KafkaStatusRepository{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
		},
		roomID: roomID,
	}
}

// Name identifies the publisher in logs and metrics.
func (r *KafkaStatusRepository) Name() string { return "kafka" }

// Publish writes a single message.
func (r *KafkaStatusRepository) Publish(ctx context.Context, _ models.StatusReport, payload []byte) error {
	msg := kafka.Message{Key: []byte(r.roomID), Value: payload, Time: time.Now()}
	if err := r.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write kafka message: %w", err)
	}
	return nil
}

// Close flushes and releases the writer.
func (r *KafkaStatusRepository) Close() error {
	return r.writer.Close()
}

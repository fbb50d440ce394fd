package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	"lodge-ops/internal/config"
	"lodge-ops/internal/logger"
	"lodge-ops/internal/models"

	"github.com/segmentio/kafka-go"
)

// MessageWriter is the part of *kafka.Writer the producer uses.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Producer struct {
	Writer MessageWriter
	Topics config.TopicConfig
	Logger *logger.Logger
}

// NewProducer returns a producer whose writer is not bound to a topic; every
// message names its own.
func NewProducer(brokers []string, topics config.TopicConfig, log *logger.Logger) *Producer {
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
	}
	if log == nil {
		log = logger.NewDiscard()
	}
	return &Producer{Writer: writer, Topics: topics, Logger: log}
}

func (p *Producer) Publish(ctx context.Context, topic, key string, value []byte) error {
	err := p.Writer.WriteMessages(ctx, kafka.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: value,
	})
	if err != nil {
		return fmt.Errorf("publish to %s: %w", topic, err)
	}
	p.Logger.LogKafka("PUBLISHED", topic, fmt.Sprintf("key=%s", key))
	return nil
}

// PublishSessionFinalized streams the session save to Kafka, keyed by event.
func (p *Producer) PublishSessionFinalized(ctx context.Context, event models.SessionFinalizedEvent) error {
	msgBytes, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return p.Publish(ctx, p.Topics.SessionFinalized, event.EventID, msgBytes)
}

// PublishTransactionCreated streams a new ledger entry to Kafka.
func (p *Producer) PublishTransactionCreated(ctx context.Context, tx models.FinancialTransaction) error {
	msgBytes, err := json.Marshal(tx)
	if err != nil {
		return err
	}
	return p.Publish(ctx, p.Topics.TransactionCreated, tx.ID, msgBytes)
}

func (p *Producer) Close() error {
	return p.Writer.Close()
}

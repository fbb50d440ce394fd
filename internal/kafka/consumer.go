package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"lodge-ops/internal/logger"
	"lodge-ops/internal/models"

	"github.com/segmentio/kafka-go"
)

// MessageReader is the part of *kafka.Reader the consumer uses.
type MessageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// CalendarHandler applies one calendar event locally.
type CalendarHandler func(ctx context.Context, event models.Event) error

const defaultRetryDelay = 2 * time.Second

type Consumer struct {
	Reader MessageReader
	Logger *logger.Logger
	// RetryDelay is the pause after a failed fetch or a failed handler call.
	RetryDelay time.Duration
}

// NewConsumer creates a new Kafka consumer for the given topic and group
func NewConsumer(brokers []string, topic, groupID string, log *logger.Logger) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MinBytes: 10e3, // 10KB
		MaxBytes: 10e6, // 10MB
	})
	if log == nil {
		log = logger.NewDiscard()
	}
	return &Consumer{Reader: reader, Logger: log, RetryDelay: defaultRetryDelay}
}

// DecodeCalendarEvent parses a calendar message. Messages without an event
// id or date are rejected.
func DecodeCalendarEvent(value []byte) (models.Event, error) {
	var msg models.CalendarEventMessage
	if err := json.Unmarshal(value, &msg); err != nil {
		return models.Event{}, fmt.Errorf("decode calendar event: %w", err)
	}
	if msg.EventID == "" || msg.Date == "" {
		return models.Event{}, errors.New("calendar event without id or date")
	}
	if msg.Type == "" {
		msg.Type = models.EventTypeOther
	}
	return msg.ToEvent(), nil
}

// Start consumes calendar events until ctx is cancelled or the reader is
// closed. Undecodable messages are committed and skipped. A handler failure
// is retried on the same message until it succeeds, so the group offset never
// moves past an event that was not applied.
func (c *Consumer) Start(ctx context.Context, handler CalendarHandler) error {
	c.Logger.Info("KAFKA", "Calendar consumer started")

	for {
		msg, err := c.Reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				c.Logger.Info("KAFKA", "Calendar consumer stopped")
				return nil
			}
			if errors.Is(err, io.EOF) {
				c.Logger.Info("KAFKA", "Calendar reader closed")
				return nil
			}
			c.Logger.Error("KAFKA", fmt.Sprintf("Error reading message: %v", err))
			if !c.wait(ctx) {
				return nil
			}
			continue
		}

		event, err := DecodeCalendarEvent(msg.Value)
		if err != nil {
			c.Logger.Warn("KAFKA", fmt.Sprintf("Skipping message at offset %d: %v", msg.Offset, err))
			c.commit(ctx, msg)
			continue
		}

		if !c.apply(ctx, handler, event) {
			c.Logger.Info("KAFKA", "Calendar consumer stopped")
			return nil
		}
		c.Logger.LogKafka("CONSUMED", msg.Topic, fmt.Sprintf("event=%s", event.ID))
		c.commit(ctx, msg)
	}
}

// apply runs handler until it succeeds. It returns false when ctx ends first.
func (c *Consumer) apply(ctx context.Context, handler CalendarHandler, event models.Event) bool {
	for attempt := 1; ; attempt++ {
		err := handler(ctx, event)
		if err == nil {
			return true
		}
		c.Logger.Error("KAFKA", fmt.Sprintf("Failed to apply calendar event %s (attempt %d): %v", event.ID, attempt, err))
		if !c.wait(ctx) {
			return false
		}
	}
}

func (c *Consumer) wait(ctx context.Context) bool {
	delay := c.RetryDelay
	if delay <= 0 {
		delay = defaultRetryDelay
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

func (c *Consumer) commit(ctx context.Context, msg kafka.Message) {
	if err := c.Reader.CommitMessages(ctx, msg); err != nil && ctx.Err() == nil {
		c.Logger.Error("KAFKA", fmt.Sprintf("Commit failed at offset %d: %v", msg.Offset, err))
	}
}

// Close gracefully shuts down the Kafka reader
func (c *Consumer) Close() error {
	return c.Reader.Close()
}

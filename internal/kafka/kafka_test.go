package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"lodge-ops/internal/config"
	"lodge-ops/internal/logger"
	"lodge-ops/internal/models"

	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	messages []kafka.Message
	err      error
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *fakeWriter) Close() error { return nil }

var testTopics = config.TopicConfig{
	SessionFinalized:   "lodge.session.finalized",
	TransactionCreated: "lodge.finance.transaction.created",
	CalendarEvents:     "lodge.calendar.events",
}

func TestPublishSessionFinalized(t *testing.T) {
	w := &fakeWriter{}
	p := &Producer{Writer: w, Topics: testTopics, Logger: logger.NewDiscard()}

	err := p.PublishSessionFinalized(context.Background(), models.SessionFinalizedEvent{
		SessionRecordID:   "rec-1",
		EventID:           "ev-1",
		CharityCollection: "50.00",
		AttendanceCount:   12,
		Created:           true,
	})
	require.NoError(t, err)
	require.Len(t, w.messages, 1)

	msg := w.messages[0]
	assert.Equal(t, "lodge.session.finalized", msg.Topic)
	assert.Equal(t, "ev-1", string(msg.Key))

	var decoded models.SessionFinalizedEvent
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, "rec-1", decoded.SessionRecordID)
	assert.Equal(t, 12, decoded.AttendanceCount)
}

func TestPublishTransactionCreated(t *testing.T) {
	w := &fakeWriter{}
	p := &Producer{Writer: w, Topics: testTopics, Logger: logger.NewDiscard()}

	err := p.PublishTransactionCreated(context.Background(), models.FinancialTransaction{
		ID:     "tx-1",
		Amount: decimal.RequireFromString("42.50"),
	})
	require.NoError(t, err)
	require.Len(t, w.messages, 1)
	assert.Equal(t, "lodge.finance.transaction.created", w.messages[0].Topic)
	assert.Equal(t, "tx-1", string(w.messages[0].Key))
	assert.Contains(t, string(w.messages[0].Value), `"amount":"42.5"`)
}

func TestPublish_WrapsWriterError(t *testing.T) {
	p := &Producer{Writer: &fakeWriter{err: errors.New("no leader")}, Topics: testTopics, Logger: logger.NewDiscard()}

	err := p.Publish(context.Background(), "topic-x", "k", []byte("v"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "topic-x")
	assert.Contains(t, err.Error(), "no leader")
}

func TestDecodeCalendarEvent(t *testing.T) {
	event, err := DecodeCalendarEvent([]byte(`{"event_id":"ev-9","date":"2025-07-01","title":"Sessão Magna","type":"session"}`))
	require.NoError(t, err)
	assert.Equal(t, models.Event{ID: "ev-9", Date: "2025-07-01", Title: "Sessão Magna", Type: models.EventTypeSession}, event)

	event, err = DecodeCalendarEvent([]byte(`{"event_id":"ev-10","date":"2025-07-02"}`))
	require.NoError(t, err)
	assert.Equal(t, models.EventTypeOther, event.Type)

	_, err = DecodeCalendarEvent([]byte(`{"title":"no id"}`))
	assert.Error(t, err)

	_, err = DecodeCalendarEvent([]byte(`not json`))
	assert.Error(t, err)
}

// fakeReader serves queued messages, then blocks until the context ends.
type fakeReader struct {
	mu        sync.Mutex
	queue     []kafka.Message
	committed []int64
	drained   chan struct{}
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	r.mu.Lock()
	if len(r.queue) > 0 {
		msg := r.queue[0]
		r.queue = r.queue[1:]
		r.mu.Unlock()
		return msg, nil
	}
	r.mu.Unlock()
	select {
	case r.drained <- struct{}{}:
	default:
	}
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range msgs {
		r.committed = append(r.committed, m.Offset)
	}
	return nil
}

func (r *fakeReader) Close() error { return nil }

func TestConsumer_AppliesCalendarEvents(t *testing.T) {
	reader := &fakeReader{
		drained: make(chan struct{}, 1),
		queue: []kafka.Message{
			{Offset: 1, Value: []byte(`{"event_id":"ev-1","date":"2025-07-01","title":"A","type":"session"}`)},
			{Offset: 2, Value: []byte(`garbage`)},
			{Offset: 3, Value: []byte(`{"event_id":"ev-2","date":"2025-07-03","title":"C","type":"meeting"}`)},
		},
	}
	c := &Consumer{Reader: reader, Logger: logger.NewDiscard(), RetryDelay: time.Millisecond}

	var applied []string
	handler := func(_ context.Context, e models.Event) error {
		applied = append(applied, e.ID)
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Start(ctx, handler) }()

	<-reader.drained
	cancel()
	require.NoError(t, <-done)

	assert.Equal(t, []string{"ev-1", "ev-2"}, applied)
	assert.Equal(t, []int64{1, 2, 3}, reader.committed)
}

func TestConsumer_HandlerFailureRetriesSameMessage(t *testing.T) {
	reader := &fakeReader{
		drained: make(chan struct{}, 1),
		queue: []kafka.Message{
			{Offset: 3, Value: []byte(`{"event_id":"ev-flaky","date":"2025-07-02","title":"B","type":"meeting"}`)},
			{Offset: 4, Value: []byte(`{"event_id":"ev-2","date":"2025-07-03","title":"C","type":"meeting"}`)},
		},
	}
	c := &Consumer{Reader: reader, Logger: logger.NewDiscard(), RetryDelay: time.Millisecond}

	attempts := 0
	var applied []string
	handler := func(_ context.Context, e models.Event) error {
		if e.ID == "ev-flaky" {
			attempts++
			if attempts < 3 {
				return errors.New("db down")
			}
		}
		applied = append(applied, e.ID)
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Start(ctx, handler) }()

	<-reader.drained
	cancel()
	require.NoError(t, <-done)

	assert.Equal(t, 3, attempts)
	assert.Equal(t, []string{"ev-flaky", "ev-2"}, applied)
	assert.Equal(t, []int64{3, 4}, reader.committed)
}

func TestConsumer_NothingCommittedPastFailingMessage(t *testing.T) {
	reader := &fakeReader{
		drained: make(chan struct{}, 1),
		queue: []kafka.Message{
			{Offset: 3, Value: []byte(`{"event_id":"ev-fail","date":"2025-07-02","title":"B","type":"meeting"}`)},
			{Offset: 4, Value: []byte(`{"event_id":"ev-2","date":"2025-07-03","title":"C","type":"meeting"}`)},
		},
	}
	c := &Consumer{Reader: reader, Logger: logger.NewDiscard(), RetryDelay: time.Millisecond}

	failing := make(chan struct{}, 1)
	handler := func(_ context.Context, e models.Event) error {
		select {
		case failing <- struct{}{}:
		default:
		}
		return errors.New("db down")
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Start(ctx, handler) }()

	<-failing
	time.Sleep(20 * time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	reader.mu.Lock()
	defer reader.mu.Unlock()
	assert.Empty(t, reader.committed)
	assert.Len(t, reader.queue, 1, "offset 4 is never fetched while offset 3 fails")
}

// erroringReader always fails to fetch and counts the calls.
type erroringReader struct {
	mu    sync.Mutex
	err   error
	calls int
}

func (r *erroringReader) FetchMessage(context.Context) (kafka.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	return kafka.Message{}, r.err
}

func (r *erroringReader) CommitMessages(context.Context, ...kafka.Message) error { return nil }

func (r *erroringReader) Close() error { return nil }

func TestConsumer_ReturnsWhenReaderClosed(t *testing.T) {
	reader := &erroringReader{err: io.EOF}
	c := &Consumer{Reader: reader, Logger: logger.NewDiscard()}

	err := c.Start(context.Background(), func(context.Context, models.Event) error { return nil })
	require.NoError(t, err)
	assert.Equal(t, 1, reader.calls)
}

func TestConsumer_FetchErrorsBackOff(t *testing.T) {
	reader := &erroringReader{err: errors.New("broker unreachable")}
	c := &Consumer{Reader: reader, Logger: logger.NewDiscard(), RetryDelay: 50 * time.Millisecond}

	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Millisecond)
	defer cancel()
	require.NoError(t, c.Start(ctx, func(context.Context, models.Event) error { return nil }))

	reader.mu.Lock()
	defer reader.mu.Unlock()
	assert.LessOrEqual(t, reader.calls, 4)
}

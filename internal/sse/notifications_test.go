package sse

import (
	"context"
	"testing"
	"time"

	"lodge-ops/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotify_ReachesEverySubscriber(t *testing.T) {
	hub := NewNotificationHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a := hub.Subscribe(ctx)
	b := hub.Subscribe(ctx)
	require.Equal(t, 2, hub.ClientCount())

	hub.Notify(models.NotificationSuccess, "Session saved", "ok")

	for _, ch := range []<-chan models.Notification{a, b} {
		select {
		case n := <-ch:
			assert.Equal(t, models.NotificationSuccess, n.Kind)
			assert.Equal(t, "Session saved", n.Title)
			assert.False(t, n.SentAt.IsZero())
		case <-time.After(time.Second):
			t.Fatal("notification not delivered")
		}
	}
}

func TestNotify_SlowClientDoesNotBlock(t *testing.T) {
	hub := NewNotificationHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch := hub.Subscribe(ctx)
	for i := 0; i < clientBuffer*3; i++ {
		hub.Notify(models.NotificationError, "Save failed", "x")
	}
	assert.Len(t, ch, clientBuffer)
}

func TestSubscribe_ClosedWhenContextDone(t *testing.T) {
	hub := NewNotificationHub()
	ctx, cancel := context.WithCancel(context.Background())

	ch := hub.Subscribe(ctx)
	cancel()

	select {
	case _, ok := <-ch:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("channel not closed after cancel")
	}
	assert.Eventually(t, func() bool { return hub.ClientCount() == 0 }, time.Second, 10*time.Millisecond)

	// Notifying after removal must not panic on the closed channel.
	hub.Notify(models.NotificationSuccess, "late", "")
}

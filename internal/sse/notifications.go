package sse

import (
	"context"
	"sync"
	"time"

	"lodge-ops/internal/models"
)

const clientBuffer = 10

// NotificationHub fans notifications out to every connected dashboard stream.
type NotificationHub struct {
	clients map[chan models.Notification]struct{}
	mu      sync.RWMutex
	now     func() time.Time
}

func NewNotificationHub() *NotificationHub {
	return &NotificationHub{
		clients: make(map[chan models.Notification]struct{}),
		now:     time.Now,
	}
}

// Subscribe registers a client until ctx is done, after which the returned
// channel is closed.
func (h *NotificationHub) Subscribe(ctx context.Context) <-chan models.Notification {
	clientChan := make(chan models.Notification, clientBuffer)

	h.mu.Lock()
	h.clients[clientChan] = struct{}{}
	h.mu.Unlock()

	go func() {
		<-ctx.Done()
		h.remove(clientChan)
	}()

	return clientChan
}

// Notify broadcasts without blocking; a client whose buffer is full misses
// the notification.
func (h *NotificationHub) Notify(kind models.NotificationKind, title, message string) {
	n := models.Notification{Kind: kind, Title: title, Message: message, SentAt: h.now()}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for clientChan := range h.clients {
		select {
		case clientChan <- n:
		default:
		}
	}
}

func (h *NotificationHub) remove(clientChan chan models.Notification) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[clientChan]; ok {
		delete(h.clients, clientChan)
		close(clientChan)
	}
}

// ClientCount returns the number of connected streams.
func (h *NotificationHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

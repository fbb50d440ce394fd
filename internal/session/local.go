package session

import (
	"context"
	"sync"

	"lodge-ops/internal/attendance"
)

// LocalGuard is an in-process save guard for single-instance runs without
// redis.
type LocalGuard struct {
	mu       sync.Mutex
	inFlight map[string]string
}

func NewLocalGuard() *LocalGuard {
	return &LocalGuard{inFlight: make(map[string]string)}
}

func (g *LocalGuard) AcquireSave(_ context.Context, eventID, token string) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, busy := g.inFlight[eventID]; busy {
		return false, nil
	}
	g.inFlight[eventID] = token
	return true, nil
}

func (g *LocalGuard) ReleaseSave(_ context.Context, eventID, token string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.inFlight[eventID] == token {
		delete(g.inFlight, eventID)
	}
	return nil
}

// MemoryReviews adapts the in-memory review controller to ReviewStore.
type MemoryReviews struct {
	Reviews *attendance.Reviews
}

func NewMemoryReviews() *MemoryReviews {
	return &MemoryReviews{Reviews: attendance.NewReviews()}
}

func (m *MemoryReviews) MarkReviewed(_ context.Context, memberID string) error {
	m.Reviews.Mark(memberID)
	return nil
}

func (m *MemoryReviews) UnmarkReviewed(_ context.Context, memberID string) error {
	m.Reviews.Unmark(memberID)
	return nil
}

func (m *MemoryReviews) Reviewed(_ context.Context) (attendance.ReviewSet, error) {
	return m.Reviews.Snapshot(), nil
}

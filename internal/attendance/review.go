package attendance

import (
	"slices"
	"sync"
)

// ReviewSet holds the IDs of members an officer has already reviewed. A nil
// set contains nothing.
type ReviewSet map[string]struct{}

func NewReviewSet(ids ...string) ReviewSet {
	set := make(ReviewSet, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

func (s ReviewSet) Contains(memberID string) bool {
	_, ok := s[memberID]
	return ok
}

// IDs returns the member IDs in sorted order.
func (s ReviewSet) IDs() []string {
	ids := make([]string, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Reviews is an in-memory review controller. Reviews never expire; a member
// leaves the set only through Unmark.
type Reviews struct {
	mu  sync.RWMutex
	ids ReviewSet
}

func NewReviews() *Reviews {
	return &Reviews{ids: make(ReviewSet)}
}

func (r *Reviews) Mark(memberID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ids[memberID] = struct{}{}
}

func (r *Reviews) Unmark(memberID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.ids, memberID)
}

// Snapshot copies the current set so callers can compute alerts without
// holding the lock.
func (r *Reviews) Snapshot() ReviewSet {
	r.mu.RLock()
	defer r.mu.RUnlock()
	snapshot := make(ReviewSet, len(r.ids))
	for id := range r.ids {
		snapshot[id] = struct{}{}
	}
	return snapshot
}

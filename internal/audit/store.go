package audit

import (
	"context"
	"errors"
	"slices"
	"sync"
)

// Sink persists or forwards audit events.
type Sink interface {
	Append(ctx context.Context, event Event) error
}

// FanOut appends each event to every sink and joins their errors.
type FanOut []Sink

func (f FanOut) Append(ctx context.Context, event Event) error {
	var errs []error
	for _, s := range f {
		if err := s.Append(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// MemoryStore keeps events in process, indexed by application.
type MemoryStore struct {
	mu     sync.RWMutex
	events []Event
	byApp  map[string][]int
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{byApp: make(map[string][]int)}
}

func (s *MemoryStore) Append(_ context.Context, event Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	if event.ApplicationID != "" {
		s.byApp[event.ApplicationID] = append(s.byApp[event.ApplicationID], len(s.events)-1)
	}
	return nil
}

// ListByApplication returns the events of one application in append order.
func (s *MemoryStore) ListByApplication(_ context.Context, applicationID string) ([]Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx := s.byApp[applicationID]
	out := make([]Event, 0, len(idx))
	for _, i := range idx {
		out = append(out, s.events[i])
	}
	return out, nil
}

// ListRecent returns up to limit events, most recent first.
func (s *MemoryStore) ListRecent(_ context.Context, limit int) ([]Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	start := max(len(s.events)-limit, 0)
	out := slices.Clone(s.events[start:])
	slices.Reverse(out)
	return out, nil
}

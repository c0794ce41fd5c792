package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"accountflow/internal/application"
	"accountflow/pkg/platform/sentinel"
)

// InMemoryStore keeps applications in a map guarded by one coarse RWMutex,
// so no reader observes a partially applied update.
type InMemoryStore struct {
	mu   sync.RWMutex
	apps map[string]*application.Application
}

// NewInMemoryStore creates an empty store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{apps: make(map[string]*application.Application)}
}

// Create inserts app. Returns sentinel.ErrConflict if the id already exists.
func (s *InMemoryStore) Create(_ context.Context, app *application.Application) error {
	if app == nil {
		return errors.New("nil application")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.apps[app.ID]; ok {
		return fmt.Errorf("application %s: %w", app.ID, sentinel.ErrConflict)
	}
	s.apps[app.ID] = app.Clone()
	return nil
}

// Get returns a copy of the application.
func (s *InMemoryStore) Get(_ context.Context, id string) (*application.Application, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	app, ok := s.apps[id]
	if !ok {
		return nil, fmt.Errorf("application %s: %w", id, sentinel.ErrNotFound)
	}
	return app.Clone(), nil
}

// List returns copies ordered by creation time, oldest first.
func (s *InMemoryStore) List(_ context.Context, filter application.ListFilter) ([]*application.Application, error) {
	s.mu.RLock()
	out := make([]*application.Application, 0, len(s.apps))
	for _, app := range s.apps {
		if filter.Status != "" && app.Status != filter.Status {
			continue
		}
		out = append(out, app.Clone())
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

// Update applies fn to a copy under the write lock and commits it only when
// fn succeeds. The committed state is returned as a fresh copy.
func (s *InMemoryStore) Update(_ context.Context, id string, fn func(app *application.Application) error) (*application.Application, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.apps[id]
	if !ok {
		return nil, fmt.Errorf("application %s: %w", id, sentinel.ErrNotFound)
	}
	working := current.Clone()
	if err := fn(working); err != nil {
		return nil, err
	}
	s.apps[id] = working
	return working.Clone(), nil
}

// Count returns the number of stored applications.
func (s *InMemoryStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.apps), nil
}

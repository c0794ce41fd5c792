// Package lock provides per-application exclusive locks that guard pipeline
// runs. Registry serves a single process; RedisLocker coordinates several
// instances through a shared Redis.
package lock

import (
	"context"
	"sync"
)

// Locker grants exclusive ownership of a key. Acquire blocks until the key
// is free or ctx is done.
type Locker interface {
	Acquire(ctx context.Context, key string) (Lease, error)
}

// Lease is held ownership of a key. Release is idempotent.
type Lease interface {
	Release(ctx context.Context) error
}

// Registry keeps one lock per key and discards it once no goroutine holds or
// waits for it. The registry mutex only guards the map and is never held
// while waiting for a key.
type Registry struct {
	mu    sync.Mutex
	locks map[string]*entry
}

type entry struct {
	sem  chan struct{}
	refs int
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{locks: make(map[string]*entry)}
}

var _ Locker = (*Registry)(nil)

// Acquire waits for exclusive ownership of key.
func (r *Registry) Acquire(ctx context.Context, key string) (Lease, error) {
	e := r.ref(key)
	select {
	case e.sem <- struct{}{}:
		return &registryLease{registry: r, key: key, entry: e}, nil
	case <-ctx.Done():
		r.unref(key, e)
		return nil, ctx.Err()
	}
}

// Len reports how many keys currently have a lock allocated.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.locks)
}

func (r *Registry) ref(key string) *entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.locks[key]
	if !ok {
		e = &entry{sem: make(chan struct{}, 1)}
		r.locks[key] = e
	}
	e.refs++
	return e
}

func (r *Registry) unref(key string, e *entry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e.refs--
	if e.refs == 0 {
		delete(r.locks, key)
	}
}

type registryLease struct {
	registry *Registry
	key      string
	entry    *entry
	once     sync.Once
}

func (l *registryLease) Release(context.Context) error {
	l.once.Do(func() {
		<-l.entry.sem
		l.registry.unref(l.key, l.entry)
	})
	return nil
}

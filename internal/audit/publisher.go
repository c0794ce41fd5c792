package audit

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrBufferFull is returned by an async publisher that cannot accept more events.
var ErrBufferFull = errors.New("audit buffer full")

// ErrClosed is returned by Emit after Close.
var ErrClosed = errors.New("audit publisher closed")

// Publisher stamps events and hands them to a sink, either inline or through
// a bounded buffer drained by a Worker.
type Publisher struct {
	sink    Sink
	logger  *slog.Logger
	metrics *Metrics
	now     func() time.Time

	mu     sync.RWMutex
	closed bool
	inbox  chan Event
	done   chan struct{}
}

// Option configures the Publisher.
type Option func(*Publisher)

// WithAsyncBuffer makes Emit non-blocking with a buffer of size n.
func WithAsyncBuffer(n int) Option {
	return func(p *Publisher) {
		if n > 0 {
			p.inbox = make(chan Event, n)
		}
	}
}

// WithLogger sets a logger for delivery failures.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		p.logger = logger
	}
}

// WithMetrics sets the metrics collector.
func WithMetrics(m *Metrics) Option {
	return func(p *Publisher) {
		p.metrics = m
	}
}

// NewPublisher creates a publisher over sink. Async publishers start their
// worker immediately; call Close to drain it.
func NewPublisher(sink Sink, opts ...Option) *Publisher {
	p := &Publisher{
		sink:   sink,
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.inbox != nil {
		p.done = make(chan struct{})
		w := NewWorker(sink, p.inbox, p.logger, p.metrics)
		go func() {
			defer close(p.done)
			w.Run()
		}()
	}
	return p
}

// Emit records event. Missing id, timestamp and category are filled in.
func (p *Publisher) Emit(ctx context.Context, event Event) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = p.now()
	}
	if event.Category == "" {
		event.Category = event.Action.Category()
	}

	if p.inbox == nil {
		if err := p.sink.Append(ctx, event); err != nil {
			p.metrics.IncFailures()
			return err
		}
		p.metrics.IncEmitted(event.Category)
		return nil
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrClosed
	}
	select {
	case p.inbox <- event:
		p.metrics.IncEmitted(event.Category)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		p.metrics.IncDropped()
		p.logger.WarnContext(ctx, "audit buffer full, dropping event",
			"action", string(event.Action),
			"application_id", event.ApplicationID,
		)
		return ErrBufferFull
	}
}

// Close stops accepting events and waits until buffered events are delivered.
func (p *Publisher) Close() {
	if p.inbox == nil {
		return
	}
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.inbox)
	p.mu.Unlock()
	<-p.done
}

package audit

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingSink struct{}

func (failingSink) Append(context.Context, Event) error { return errors.New("disk full") }

// blockingSink holds every Append until release is closed.
type blockingSink struct {
	release chan struct{}
	store   *MemoryStore
}

func (b *blockingSink) Append(ctx context.Context, e Event) error {
	<-b.release
	return b.store.Append(ctx, e)
}

func TestPublisher_SyncMode(t *testing.T) {
	store := NewMemoryStore()
	pub := NewPublisher(store)
	defer pub.Close()

	err := pub.Emit(context.Background(), Event{
		ApplicationID: "APP-000000000001",
		Action:        ActionApplicationSubmitted,
	})
	require.NoError(t, err)

	events, err := store.ListByApplication(context.Background(), "APP-000000000001")
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, ActionApplicationSubmitted, events[0].Action)
	assert.Equal(t, CategoryOperations, events[0].Category)
	assert.NotEmpty(t, events[0].ID)
}

func TestPublisher_AsyncDrainsOnClose(t *testing.T) {
	store := NewMemoryStore()
	pub := NewPublisher(store, WithAsyncBuffer(100))

	for range 10 {
		err := pub.Emit(context.Background(), Event{
			ApplicationID: "APP-000000000002",
			Action:        ActionApplicationDecided,
		})
		require.NoError(t, err)
	}

	pub.Close()

	events, err := store.ListByApplication(context.Background(), "APP-000000000002")
	require.NoError(t, err)
	assert.Len(t, events, 10, "all events should be drained on close")
	assert.Equal(t, CategoryCompliance, events[0].Category)
}

func TestPublisher_BufferFull_DropsEvent(t *testing.T) {
	sink := &blockingSink{release: make(chan struct{}), store: NewMemoryStore()}
	metrics := NewMetrics(prometheus.NewRegistry())
	pub := NewPublisher(sink, WithAsyncBuffer(1), WithMetrics(metrics))

	var dropped int
	var mu sync.Mutex
	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := pub.Emit(context.Background(), Event{Action: ActionApplicationCreated}); errors.Is(err, ErrBufferFull) {
				mu.Lock()
				dropped++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	close(sink.release)
	pub.Close()

	assert.GreaterOrEqual(t, dropped, 8)
	assert.Equal(t, float64(dropped), testutil.ToFloat64(metrics.dropped))
}

func TestPublisher_EmitAfterClose(t *testing.T) {
	pub := NewPublisher(NewMemoryStore(), WithAsyncBuffer(1))
	pub.Close()
	pub.Close()

	err := pub.Emit(context.Background(), Event{Action: ActionRuleAdded})
	assert.ErrorIs(t, err, ErrClosed)
}

func TestPublisher_SetsTimestamp(t *testing.T) {
	store := NewMemoryStore()
	pub := NewPublisher(store)

	before := time.Now()
	require.NoError(t, pub.Emit(context.Background(), Event{ApplicationID: "APP-1", Action: ActionApplicationCreated}))
	after := time.Now()

	events, err := store.ListByApplication(context.Background(), "APP-1")
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.False(t, events[0].Timestamp.Before(before))
	assert.False(t, events[0].Timestamp.After(after))
}

func TestPublisher_PreservesExistingTimestamp(t *testing.T) {
	store := NewMemoryStore()
	pub := NewPublisher(store)
	custom := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, pub.Emit(context.Background(), Event{ApplicationID: "APP-1", Action: ActionApplicationCreated, Timestamp: custom}))

	events, err := store.ListByApplication(context.Background(), "APP-1")
	require.NoError(t, err)
	assert.Equal(t, custom, events[0].Timestamp)
}

func TestPublisher_SyncFailureIsReturned(t *testing.T) {
	metrics := NewMetrics(prometheus.NewRegistry())
	pub := NewPublisher(failingSink{}, WithMetrics(metrics))

	err := pub.Emit(context.Background(), Event{Action: ActionRuleRemoved})

	require.Error(t, err)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.failures))
}

func TestFanOut(t *testing.T) {
	a, b := NewMemoryStore(), NewMemoryStore()

	err := FanOut{a, failingSink{}, b}.Append(context.Background(), Event{ApplicationID: "APP-1"})

	require.Error(t, err)
	for _, s := range []*MemoryStore{a, b} {
		events, _ := s.ListByApplication(context.Background(), "APP-1")
		assert.Len(t, events, 1)
	}
}

func TestMemoryStore_ListRecent(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	for _, a := range []Action{ActionApplicationCreated, ActionApplicationSubmitted, ActionApplicationDecided} {
		require.NoError(t, store.Append(ctx, Event{Action: a}))
	}

	recent, err := store.ListRecent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, ActionApplicationDecided, recent[0].Action)
	assert.Equal(t, ActionApplicationSubmitted, recent[1].Action)

	all, err := store.ListRecent(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestNewRecord(t *testing.T) {
	event := Event{
		ID:            "0b7c6f2e-1111-2222-3333-444455556666",
		Category:      CategoryCompliance,
		Action:        ActionApplicationDecided,
		ApplicationID: "APP-000000000003",
		Decision:      "approved",
	}

	record, err := newRecord("accountflow.audit", event)
	require.NoError(t, err)

	assert.Equal(t, "accountflow.audit", record.Topic)
	assert.Equal(t, []byte(event.ID), record.Key)
	require.Len(t, record.Headers, 2)
	assert.Equal(t, "compliance", string(record.Headers[0].Value))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(record.Value, &decoded))
	assert.Equal(t, "application_decided", decoded["action"])
	assert.Equal(t, "APP-000000000003", decoded["application_id"])
	assert.NotContains(t, decoded, "reason")
}

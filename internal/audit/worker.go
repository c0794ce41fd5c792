package audit

import (
	"context"
	"log/slog"
	"time"
)

const deliveryTimeout = 5 * time.Second

// Worker drains an event channel into a sink until the channel is closed.
// Delivery failures are logged and counted; they never stop the worker.
type Worker struct {
	sink    Sink
	inbox   <-chan Event
	logger  *slog.Logger
	metrics *Metrics
}

func NewWorker(sink Sink, inbox <-chan Event, logger *slog.Logger, metrics *Metrics) *Worker {
	return &Worker{sink: sink, inbox: inbox, logger: logger, metrics: metrics}
}

func (w *Worker) Run() {
	for event := range w.inbox {
		ctx, cancel := context.WithTimeout(context.Background(), deliveryTimeout)
		err := w.sink.Append(ctx, event)
		cancel()
		if err != nil {
			w.metrics.IncFailures()
			w.logger.Error("audit delivery failed",
				"event_id", event.ID,
				"action", string(event.Action),
				"error", err,
			)
		}
	}
}

package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/crop-advisor-service/internal/domain"
	"github.com/couchcryptid/crop-advisor-service/internal/observability"
)

// finalFlushTimeout bounds the last write attempted after Run's context ends.
const finalFlushTimeout = 5 * time.Second

// BatchLoader writes multiple events to the destination.
type BatchLoader interface {
	LoadBatch(ctx context.Context, events []domain.Event) error
}

// Dispatcher decouples request handlers from the event sink. Handlers enqueue
// with Publish; Run batches queued events and writes them through the loader.
type Dispatcher struct {
	loader        BatchLoader
	logger        *slog.Logger
	metrics       *observability.Metrics
	events        chan domain.Event
	running       atomic.Bool
	batchSize     int
	flushInterval time.Duration

	// mu guards stopped. Publish holds the read lock across its send so that
	// no event can land in the queue after the final drain.
	mu      sync.RWMutex
	stopped bool
}

// New creates a Dispatcher with a queue of bufferSize events.
func New(l BatchLoader, logger *slog.Logger, metrics *observability.Metrics, batchSize int, flushInterval time.Duration, bufferSize int) *Dispatcher {
	return &Dispatcher{
		loader:        l,
		logger:        logger,
		metrics:       metrics,
		events:        make(chan domain.Event, bufferSize),
		batchSize:     batchSize,
		flushInterval: flushInterval,
	}
}

// Publish enqueues an event without blocking. It reports false and drops the
// event when the queue is full or Run has already shut down.
func (d *Dispatcher) Publish(event domain.Event) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.stopped {
		d.metrics.EventsDropped.Inc()
		d.logger.Warn("event dispatcher stopped, dropping event", "event_id", event.ID, "event_type", event.Type)
		return false
	}

	select {
	case d.events <- event:
		return true
	default:
		d.metrics.EventsDropped.Inc()
		d.logger.Warn("event queue full, dropping event", "event_id", event.ID, "event_type", event.Type)
		return false
	}
}

// CheckReadiness returns nil while the dispatch loop is running.
func (d *Dispatcher) CheckReadiness(_ context.Context) error {
	if !d.running.Load() {
		return errors.New("event dispatcher is not running")
	}
	return nil
}

// Run executes the batch dispatch loop until the context is cancelled, then
// drains the queue and makes one final write attempt. Publish rejects events
// from that point on, so Run is called at most once per Dispatcher.
func (d *Dispatcher) Run(ctx context.Context) error {
	d.logger.Info("event dispatcher started", "batch_size", d.batchSize, "flush_interval", d.flushInterval)
	d.running.Store(true)
	d.metrics.DispatcherRunning.Set(1)
	defer func() {
		d.running.Store(false)
		d.metrics.DispatcherRunning.Set(0)
	}()

	ticker := time.NewTicker(d.flushInterval)
	defer ticker.Stop()

	batch := make([]domain.Event, 0, d.batchSize)
	for {
		select {
		case <-ctx.Done():
			d.logger.Info("event dispatcher stopping", "reason", ctx.Err())
			d.shutdown(ctx, batch)
			return nil
		case event := <-d.events:
			batch = append(batch, event)
			if len(batch) < d.batchSize {
				continue
			}
			if !d.loadWithBackoff(ctx, batch) {
				d.shutdown(ctx, batch)
				return nil
			}
			batch = make([]domain.Event, 0, d.batchSize)
		case <-ticker.C:
			if len(batch) == 0 {
				continue
			}
			if !d.loadWithBackoff(ctx, batch) {
				d.shutdown(ctx, batch)
				return nil
			}
			batch = make([]domain.Event, 0, d.batchSize)
		}
	}
}

// loadWithBackoff writes the batch, retrying with exponential backoff until it
// succeeds. Returns false if the context ended first.
func (d *Dispatcher) loadWithBackoff(ctx context.Context, batch []domain.Event) bool {
	// Exponential backoff: start at 200ms, double each retry, cap at 5s.
	backoff := 200 * time.Millisecond
	maxBackoff := 5 * time.Second

	for {
		err := d.load(ctx, batch)
		if err == nil {
			return true
		}
		if ctx.Err() != nil {
			return false
		}
		d.logger.Error("load event batch failed", "error", err, "batch_size", len(batch))
		if !sleepWithContext(ctx, backoff) {
			return false
		}
		backoff = nextBackoff(backoff, maxBackoff)
	}
}

func (d *Dispatcher) load(ctx context.Context, batch []domain.Event) error {
	if err := d.loader.LoadBatch(ctx, batch); err != nil {
		d.metrics.EventLoadErrors.Inc()
		return err
	}
	d.metrics.EventBatchSize.Observe(float64(len(batch)))
	d.metrics.EventsPublished.Add(float64(len(batch)))
	return nil
}

// shutdown closes the queue to new events, drains it into the pending batch
// and writes them once with a bounded timeout. Events that still cannot be
// written are dropped.
func (d *Dispatcher) shutdown(ctx context.Context, pending []domain.Event) {
	d.mu.Lock()
	d.stopped = true
	d.mu.Unlock()

	pending = d.drain(pending)
	if len(pending) == 0 {
		return
	}

	flushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), finalFlushTimeout)
	defer cancel()

	for start := 0; start < len(pending); start += d.batchSize {
		end := min(start+d.batchSize, len(pending))
		if err := d.load(flushCtx, pending[start:end]); err != nil {
			dropped := len(pending) - start
			d.metrics.EventsDropped.Add(float64(dropped))
			d.logger.Error("final event flush failed", "error", err, "dropped", dropped)
			return
		}
	}
	d.logger.Info("final event flush complete", "events", len(pending))
}

func (d *Dispatcher) drain(pending []domain.Event) []domain.Event {
	for {
		select {
		case event := <-d.events:
			pending = append(pending, event)
		default:
			return pending
		}
	}
}

func nextBackoff(current, maxBackoff time.Duration) time.Duration {
	next := current * 2
	if next > maxBackoff {
		return maxBackoff
	}
	return next
}

func sleepWithContext(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

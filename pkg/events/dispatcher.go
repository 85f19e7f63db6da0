package events

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/example/airdistance/internal/distance/domain"
)

var (
	eventsPublishTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "events_publish_total",
		Help: "Total number of successfully published distance events.",
	})
	eventsFailTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "events_fail_total",
		Help: "Total number of distance events dropped after exhausting retries.",
	})
	eventsDroppedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "events_dropped_total",
		Help: "Total number of distance events rejected because the queue was full or closed.",
	})
	eventsQueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "events_queue_depth",
		Help: "Events waiting to be published.",
	})
)

var (
	// ErrQueueFull is returned by Dispatcher.Publish when the buffer is exhausted.
	ErrQueueFull = errors.New("event queue is full")
	// ErrDispatcherClosed is returned by Dispatcher.Publish once Run has stopped.
	ErrDispatcherClosed = errors.New("event dispatcher is closed")
)

// Sink delivers a single event synchronously.
type Sink interface {
	Publish(ctx context.Context, event domain.DistanceEvent) error
}

// DispatcherConfig defines tunables for the dispatcher.
type DispatcherConfig struct {
	QueueSize int
	RetryMax  int
	Backoff   time.Duration
}

type pending struct {
	event domain.DistanceEvent
	span  trace.SpanContext
}

// Dispatcher buffers events and publishes them from a background loop, so
// callers never wait on the broker.
type Dispatcher struct {
	sink   Sink
	queue  chan pending
	mu     sync.RWMutex
	closed bool
	logger *zap.Logger
	cfg    DispatcherConfig
	tracer trace.Tracer
}

// NewDispatcher constructs a dispatcher. Run must be started for events to
// leave the queue.
func NewDispatcher(sink Sink, logger *zap.Logger, cfg DispatcherConfig) *Dispatcher {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 256
	}
	if cfg.RetryMax <= 0 {
		cfg.RetryMax = 3
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = 100 * time.Millisecond
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		sink:   sink,
		queue:  make(chan pending, cfg.QueueSize),
		logger: logger,
		cfg:    cfg,
		tracer: otel.Tracer("events-dispatcher"),
	}
}

// Publish enqueues the event without blocking.
func (d *Dispatcher) Publish(ctx context.Context, event domain.DistanceEvent) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		eventsDroppedTotal.Inc()
		return ErrDispatcherClosed
	}
	select {
	case d.queue <- pending{event: event, span: trace.SpanContextFromContext(ctx)}:
		eventsQueueDepth.Set(float64(len(d.queue)))
		return nil
	default:
		eventsDroppedTotal.Inc()
		return ErrQueueFull
	}
}

// Run publishes queued events until ctx is cancelled. Events still queued at
// that point get one final attempt each, and later Publish calls fail with
// ErrDispatcherClosed. Cancel ctx only after producers have stopped.
func (d *Dispatcher) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			d.drain()
			return ctx.Err()
		case item := <-d.queue:
			eventsQueueDepth.Set(float64(len(d.queue)))
			err := d.publishWithRetry(ctx, item)
			switch {
			case err == nil:
			case ctx.Err() != nil:
				d.lastAttempt(item)
			default:
				d.logger.Error("dispatch event", zap.Error(err), zap.String("event_id", item.event.ID.String()))
			}
		}
	}
}

func (d *Dispatcher) drain() {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()

	for {
		select {
		case item := <-d.queue:
			d.lastAttempt(item)
		default:
			eventsQueueDepth.Set(0)
			return
		}
	}
}

func (d *Dispatcher) lastAttempt(item pending) {
	ctx := trace.ContextWithRemoteSpanContext(context.Background(), item.span)
	if err := d.sink.Publish(ctx, item.event); err != nil {
		eventsFailTotal.Inc()
		d.logger.Warn("drop event on shutdown", zap.Error(err), zap.String("event_id", item.event.ID.String()))
		return
	}
	eventsPublishTotal.Inc()
}

func (d *Dispatcher) publishWithRetry(ctx context.Context, item pending) error {
	if item.span.IsValid() {
		ctx = trace.ContextWithRemoteSpanContext(ctx, item.span)
	}
	ctx, span := d.tracer.Start(ctx, "events.publish")
	defer span.End()

	var attempt int
	for {
		attempt++
		err := d.sink.Publish(ctx, item.event)
		if err == nil {
			eventsPublishTotal.Inc()
			return nil
		}
		d.logger.Warn("publish failed", zap.Error(err), zap.Int("attempt", attempt), zap.String("event_id", item.event.ID.String()))
		if attempt >= d.cfg.RetryMax {
			eventsFailTotal.Inc()
			return fmt.Errorf("publish event %s: %w", item.event.ID, err)
		}
		backoff := time.Duration(attempt*attempt) * d.cfg.Backoff
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

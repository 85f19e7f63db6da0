package events

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/example/airdistance/internal/distance/domain"
)

type flakySink struct {
	mu       sync.Mutex
	failures int
	calls    int
	events   []domain.DistanceEvent
}

func (f *flakySink) Publish(_ context.Context, event domain.DistanceEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.calls <= f.failures {
		return errors.New("broker unavailable")
	}
	f.events = append(f.events, event)
	return nil
}

func (f *flakySink) published() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.events)
}

func (f *flakySink) attempts() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func TestDispatcherRetriesUntilPublished(t *testing.T) {
	sink := &flakySink{failures: 2}
	d := NewDispatcher(sink, zap.NewNop(), DispatcherConfig{RetryMax: 3, Backoff: time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()

	require.NoError(t, d.Publish(context.Background(), sampleEvent()))
	require.Eventually(t, func() bool { return sink.published() == 1 }, time.Second, 5*time.Millisecond)
	require.Equal(t, 3, sink.attempts())

	cancel()
	require.ErrorIs(t, <-done, context.Canceled)
}

func TestDispatcherGivesUpAfterRetryMax(t *testing.T) {
	sink := &flakySink{failures: 10}
	d := NewDispatcher(sink, nil, DispatcherConfig{RetryMax: 2, Backoff: time.Millisecond})

	err := d.publishWithRetry(context.Background(), pending{event: sampleEvent()})
	require.ErrorContains(t, err, "broker unavailable")
	require.Equal(t, 2, sink.attempts())
}

func TestDispatcherRejectsWhenFull(t *testing.T) {
	d := NewDispatcher(&flakySink{}, nil, DispatcherConfig{QueueSize: 1})
	require.NoError(t, d.Publish(context.Background(), sampleEvent()))
	require.ErrorIs(t, d.Publish(context.Background(), sampleEvent()), ErrQueueFull)
}

func TestDispatcherDrainsOnShutdown(t *testing.T) {
	sink := &flakySink{}
	d := NewDispatcher(sink, nil, DispatcherConfig{QueueSize: 4})
	for i := 0; i < 3; i++ {
		require.NoError(t, d.Publish(context.Background(), sampleEvent()))
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, d.Run(ctx), context.Canceled)
	require.Equal(t, 3, sink.published())
}

func TestDispatcherRejectsAfterRun(t *testing.T) {
	sink := &flakySink{}
	d := NewDispatcher(sink, nil, DispatcherConfig{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()
	cancel()
	require.ErrorIs(t, <-done, context.Canceled)

	require.ErrorIs(t, d.Publish(context.Background(), sampleEvent()), ErrDispatcherClosed)
	require.Zero(t, len(d.queue))
	require.Zero(t, sink.attempts())
}

func TestDispatcherRetriesOnceMoreWhenCancelledDuringBackoff(t *testing.T) {
	sink := &flakySink{failures: 1}
	d := NewDispatcher(sink, nil, DispatcherConfig{RetryMax: 5, Backoff: time.Hour})
	require.NoError(t, d.Publish(context.Background(), sampleEvent()))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()
	require.Eventually(t, func() bool { return sink.attempts() == 1 }, time.Second, 5*time.Millisecond)
	cancel()

	require.ErrorIs(t, <-done, context.Canceled)
	require.Equal(t, 1, sink.published())
}

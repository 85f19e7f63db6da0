package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"

	"github.com/example/airdistance/internal/distance/domain"
)

type recordingConn struct {
	msgs []*nats.Msg
	err  error
}

func (r *recordingConn) PublishMsg(msg *nats.Msg) error {
	if r.err != nil {
		return r.err
	}
	r.msgs = append(r.msgs, msg)
	return nil
}

func sampleEvent() domain.DistanceEvent {
	return domain.DistanceEvent{
		ID:           uuid.New(),
		Type:         domain.EventDistanceCalculated,
		From:         "DME",
		To:           "VKO",
		Miles:        27.125932088178207,
		CalculatedAt: time.Unix(0, 0).UTC(),
	}
}

func TestPublisherWithoutConnectionIsNoop(t *testing.T) {
	p := NewPublisher(nil, "")
	require.NoError(t, p.Publish(context.Background(), sampleEvent()))
	require.Equal(t, DefaultSubject, p.subject)
}

func TestPublisherSendsEvent(t *testing.T) {
	conn := &recordingConn{}
	p := &Publisher{conn: conn, subject: "distance.test"}

	traceID, err := trace.TraceIDFromHex("0af7651916cd43dd8448eb211c80319c")
	require.NoError(t, err)
	spanID, err := trace.SpanIDFromHex("b7ad6b7169203331")
	require.NoError(t, err)
	ctx := trace.ContextWithSpanContext(context.Background(), trace.NewSpanContext(trace.SpanContextConfig{TraceID: traceID, SpanID: spanID}))

	event := sampleEvent()
	require.NoError(t, p.Publish(ctx, event))
	require.Len(t, conn.msgs, 1)

	msg := conn.msgs[0]
	require.Equal(t, "distance.test", msg.Subject)
	require.Equal(t, "DistanceCalculated", msg.Header.Get("x-event-type"))
	require.Equal(t, traceID.String(), msg.Header.Get("x-trace-id"))

	var decoded domain.DistanceEvent
	require.NoError(t, json.Unmarshal(msg.Data, &decoded))
	require.Equal(t, event.ID, decoded.ID)
	require.Equal(t, event.Miles, decoded.Miles)
}

func TestPublisherWrapsFailure(t *testing.T) {
	p := &Publisher{conn: &recordingConn{err: errors.New("no responders")}, subject: "distance.test"}
	err := p.Publish(context.Background(), sampleEvent())
	require.ErrorContains(t, err, "nats publish")
}

package notify

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSink struct {
	mu    sync.Mutex
	got   []Message
	err   error
	block chan struct{}
}

func (s *recordingSink) Send(ctx context.Context, msg Message) error {
	if s.block != nil {
		select {
		case <-s.block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.got = append(s.got, msg)
	return s.err
}

func (s *recordingSink) messages() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Message(nil), s.got...)
}

func TestDispatcherDelivers(t *testing.T) {
	sink := &recordingSink{}
	d := NewDispatcher(sink, nil, DispatcherOptions{Buffer: 4})

	d.Dispatch(Message{Event: EventReportSubmitted, Title: "New report"})
	d.Dispatch(Message{Event: EventReportApproved, Title: "Approved"})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, d.Close(ctx))

	got := sink.messages()
	require.Len(t, got, 2)
	assert.Equal(t, EventReportSubmitted, got[0].Event)
	assert.False(t, got[0].SentAt.IsZero())
}

func TestDispatchNeverBlocksWhenFull(t *testing.T) {
	sink := &recordingSink{block: make(chan struct{})}
	d := NewDispatcher(sink, nil, DispatcherOptions{Buffer: 1, SendTimeout: time.Second})

	done := make(chan struct{})
	go func() {
		for i := 0; i < 50; i++ {
			d.Dispatch(Message{Event: EventPayoutRequested})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Dispatch blocked on a full queue")
	}
	close(sink.block)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, d.Close(ctx))
	assert.LessOrEqual(t, len(sink.messages()), 2)
}

func TestSinkFailureIsSwallowed(t *testing.T) {
	sink := &recordingSink{err: errors.New("telegram: 502 bad gateway")}
	d := NewDispatcher(sink, nil, DispatcherOptions{})
	d.Dispatch(Message{Event: EventReportRejected})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, d.Close(ctx))
	assert.Len(t, sink.messages(), 1)

	// dispatching after close is a silent drop
	d.Dispatch(Message{Event: EventReportRejected})
}

func TestMultiJoinsErrors(t *testing.T) {
	ok := &recordingSink{}
	bad := &recordingSink{err: errors.New("amqp down")}
	err := Multi{ok, bad}.Send(context.Background(), Message{Event: EventPayoutDecided})
	assert.EqualError(t, err, "amqp down")
	assert.Len(t, ok.messages(), 1)
}

func TestFormatText(t *testing.T) {
	text := FormatText(Message{
		Title:  "Report approved",
		Text:   "Shares distributed",
		Fields: map[string]string{"value": "10000", "participants": "2"},
	})
	assert.Equal(t, "Report approved\nShares distributed\nparticipants: 2\nvalue: 10000", text)
}

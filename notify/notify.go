// Package notify delivers workflow events to outside channels. Delivery is
// best-effort and at-most-once: nothing here ever blocks or fails the caller.
package notify

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

const (
	EventReportSubmitted = "report.submitted"
	EventReportApproved  = "report.approved"
	EventReportRejected  = "report.rejected"
	EventPayoutRequested = "payout.requested"
	EventPayoutDecided   = "payout.decided"
	EventMemberApplied   = "member.applied"
)

type Message struct {
	Event  string            `json:"event"`
	Title  string            `json:"title"`
	Text   string            `json:"text"`
	Fields map[string]string `json:"fields,omitempty"`
	SentAt time.Time         `json:"sent_at"`
}

type Sink interface {
	Send(ctx context.Context, msg Message) error
}

// Notifier is what services depend on.
type Notifier interface {
	Dispatch(msg Message)
}

// Nop drops every message.
type Nop struct{}

func (Nop) Dispatch(Message) {}

type DispatcherOptions struct {
	Buffer      int
	SendTimeout time.Duration
}

// Dispatcher hands messages to a sink from a single background worker.
type Dispatcher struct {
	sink    Sink
	logger  *slog.Logger
	timeout time.Duration

	queue chan Message
	done  chan struct{}

	mu     sync.RWMutex
	closed bool
}

func NewDispatcher(sink Sink, logger *slog.Logger, opts DispatcherOptions) *Dispatcher {
	if opts.Buffer <= 0 {
		opts.Buffer = 256
	}
	if opts.SendTimeout <= 0 {
		opts.SendTimeout = 5 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	d := &Dispatcher{
		sink:    sink,
		logger:  logger.With("system", "notify"),
		timeout: opts.SendTimeout,
		queue:   make(chan Message, opts.Buffer),
		done:    make(chan struct{}),
	}
	go d.run()
	return d
}

// Dispatch enqueues msg. If the buffer is full or the dispatcher is closed
// the message is dropped.
func (d *Dispatcher) Dispatch(msg Message) {
	if msg.SentAt.IsZero() {
		msg.SentAt = time.Now().UTC()
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		notificationsTotal.WithLabelValues("dropped").Inc()
		return
	}
	select {
	case d.queue <- msg:
	default:
		notificationsTotal.WithLabelValues("dropped").Inc()
		d.logger.Warn("notification queue full, dropping message", "event", msg.Event)
	}
}

func (d *Dispatcher) run() {
	defer close(d.done)
	for msg := range d.queue {
		d.deliver(msg)
	}
}

func (d *Dispatcher) deliver(msg Message) {
	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()
	start := time.Now()
	err := d.sink.Send(ctx, msg)
	sendDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		notificationsTotal.WithLabelValues("failed").Inc()
		d.logger.Warn("notification delivery failed", "event", msg.Event, "err", err)
		return
	}
	notificationsTotal.WithLabelValues("sent").Inc()
}

// Close stops accepting messages and waits for queued ones to drain or for
// ctx to expire.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()

	select {
	case <-d.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Multi fans a message out to every sink and joins their errors.
type Multi []Sink

func (m Multi) Send(ctx context.Context, msg Message) error {
	var errs []error
	for _, s := range m {
		if err := s.Send(ctx, msg); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// LogSink writes messages to the log. Used when no real channel is configured.
type LogSink struct {
	Logger *slog.Logger
}

func (s LogSink) Send(_ context.Context, msg Message) error {
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}
	args := []any{"event", msg.Event, "title", msg.Title}
	for k, v := range msg.Fields {
		args = append(args, k, v)
	}
	logger.Info("notification", args...)
	return nil
}

package eventpublisher

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/nats-io/nats.go"

	"github.com/iho/lendledger/internal/domain"
	"github.com/iho/lendledger/internal/infrastructure/metrics"
)

// Sink receives lifecycle events for one downstream surface.
type Sink interface {
	Name() string
	Deliver(ctx context.Context, event *domain.Event) error
}

// Relay decouples event emission from delivery: Emit enqueues onto a
// buffered channel and returns immediately, a worker drains the channel and
// fans each event out to every sink. Sinks are observability surfaces; a
// delivery failure never reaches the caller.
type Relay struct {
	sinks   []Sink
	buffer  chan *domain.Event
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// Config for Relay.
type Config struct {
	Sinks      []Sink
	BufferSize int // Pending events held before Emit starts dropping
	Logger     *slog.Logger
	Metrics    *metrics.Metrics
}

// NewRelay creates a new Relay.
func NewRelay(cfg Config) *Relay {
	if cfg.BufferSize == 0 {
		cfg.BufferSize = 1024
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &Relay{
		sinks:   cfg.Sinks,
		buffer:  make(chan *domain.Event, cfg.BufferSize),
		logger:  cfg.Logger,
		metrics: cfg.Metrics,
	}
}

// Emit enqueues an event for delivery. Never blocks: when the buffer is full
// the event is dropped with a warning.
func (r *Relay) Emit(event *domain.Event) {
	select {
	case r.buffer <- event:
	default:
		r.logger.Warn("event buffer full, dropping event",
			slog.String("event_id", event.ID),
			slog.String("event_type", event.Type))
	}
}

// Start runs the delivery worker until the context is cancelled. Events
// still buffered at cancellation are delivered before returning.
func (r *Relay) Start(ctx context.Context) error {
	r.logger.Info("event relay started",
		slog.Int("buffer_size", cap(r.buffer)),
		slog.Int("sinks", len(r.sinks)))

	for {
		select {
		case <-ctx.Done():
			r.drain()
			r.logger.Info("event relay shutting down")
			return ctx.Err()
		case event := <-r.buffer:
			r.dispatch(ctx, event)
		}
	}
}

// drain delivers whatever is still buffered, without blocking for more.
func (r *Relay) drain() {
	for {
		select {
		case event := <-r.buffer:
			r.dispatch(context.Background(), event)
		default:
			return
		}
	}
}

// dispatch fans one event out to every sink.
func (r *Relay) dispatch(ctx context.Context, event *domain.Event) {
	for _, sink := range r.sinks {
		if err := sink.Deliver(ctx, event); err != nil {
			r.logger.Error("failed to deliver event",
				slog.String("sink", sink.Name()),
				slog.String("event_id", event.ID),
				slog.String("event_type", event.Type),
				slog.String("error", err.Error()))
			// Continue delivering to the remaining sinks
			continue
		}

		if r.metrics != nil {
			r.metrics.EventsPublished.WithLabelValues(sink.Name()).Inc()
		}
	}
}

// LogSink is a simple sink that logs events.
type LogSink struct {
	logger *slog.Logger
}

// NewLogSink creates a new LogSink.
func NewLogSink(logger *slog.Logger) *LogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSink{logger: logger}
}

// Name implements Sink.
func (s *LogSink) Name() string { return "log" }

// Deliver logs the event.
func (s *LogSink) Deliver(ctx context.Context, event *domain.Event) error {
	attributes, err := json.Marshal(event.Attributes)
	if err != nil {
		return err
	}

	s.logger.Info("EVENT PUBLISHED",
		slog.String("event_id", event.ID),
		slog.String("event_type", event.Type),
		slog.Uint64("loan_id", event.LoanID),
		slog.String("attributes", string(attributes)))

	return nil
}

// NATSSink publishes events to a NATS subject tree: the configured base
// subject with the event type appended, e.g. lendledger.events.loan.repaid.
type NATSSink struct {
	conn    *nats.Conn
	subject string
}

// NewNATSSink creates a new NATSSink.
func NewNATSSink(conn *nats.Conn, subject string) *NATSSink {
	return &NATSSink{conn: conn, subject: subject}
}

// Name implements Sink.
func (s *NATSSink) Name() string { return "nats" }

// Deliver publishes the event as JSON.
func (s *NATSSink) Deliver(ctx context.Context, event *domain.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	return s.conn.Publish(s.subject+"."+event.Type, payload)
}

// EventStore appends events to a durable journal.
type EventStore interface {
	Insert(ctx context.Context, event *domain.Event) error
}

// Retrier retries transient store failures.
type Retrier interface {
	Retry(ctx context.Context, operation func() error) error
}

// JournalSink appends events to the persistent journal, retrying transient
// database failures.
type JournalSink struct {
	store   EventStore
	retrier Retrier
	metrics *metrics.Metrics
}

// NewJournalSink creates a new JournalSink.
func NewJournalSink(store EventStore, retrier Retrier, m *metrics.Metrics) *JournalSink {
	return &JournalSink{store: store, retrier: retrier, metrics: m}
}

// Name implements Sink.
func (s *JournalSink) Name() string { return "journal" }

// Deliver appends the event to the journal.
func (s *JournalSink) Deliver(ctx context.Context, event *domain.Event) error {
	insert := func() error {
		return s.store.Insert(ctx, event)
	}

	var err error
	if s.retrier != nil {
		err = s.retrier.Retry(ctx, insert)
	} else {
		err = insert()
	}

	if err != nil {
		return err
	}

	if s.metrics != nil {
		s.metrics.EventsStored.WithLabelValues(event.Type).Inc()
	}

	return nil
}

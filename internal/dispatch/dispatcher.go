// Package dispatch publishes booking events after the booking change that
// caused them has been persisted. Delivery is at-least-once and best-effort:
// failures are retried a bounded number of times, then logged and dropped.
// Callers never wait for, or see, the outcome.
package dispatch

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

const (
	DefaultMaxRetries     = 10
	defaultPublishTimeout = 10 * time.Second
)

// Publisher publishes one event and returns once the broker confirmed it.
// A non-nil error is a negative or missing confirmation.
type Publisher interface {
	Publish(ctx context.Context, exchange, routingKey, bookingID string) error
}

// Recorder observes dispatch attempts.
type Recorder interface {
	Published(exchange, routingKey string)
	PublishFailed(exchange, routingKey string)
	Dropped(exchange, routingKey string)
}

type Event struct {
	Exchange   string
	RoutingKey string
	BookingID  string
}

// Outcome is the result of dispatching one event.
type Outcome struct {
	Event    Event
	Attempts int
	Err      error
}

func (o Outcome) Delivered() bool {
	return o.Err == nil
}

type Dispatcher struct {
	publisher      Publisher
	recorder       Recorder
	logger         *slog.Logger
	maxRetries     int
	backoff        time.Duration
	publishTimeout time.Duration

	wg sync.WaitGroup
}

type Option func(*Dispatcher)

// WithMaxRetries sets how many times a failed publish is retried. The event
// is attempted at most n+1 times.
func WithMaxRetries(n int) Option {
	return func(d *Dispatcher) {
		if n >= 0 {
			d.maxRetries = n
		}
	}
}

// WithBackoff sets a fixed delay between attempts. Zero retries immediately.
func WithBackoff(backoff time.Duration) Option {
	return func(d *Dispatcher) {
		d.backoff = backoff
	}
}

func WithPublishTimeout(timeout time.Duration) Option {
	return func(d *Dispatcher) {
		if timeout > 0 {
			d.publishTimeout = timeout
		}
	}
}

func WithRecorder(r Recorder) Option {
	return func(d *Dispatcher) {
		d.recorder = r
	}
}

func New(publisher Publisher, logger *slog.Logger, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		publisher:      publisher,
		logger:         logger,
		maxRetries:     DefaultMaxRetries,
		publishTimeout: defaultPublishTimeout,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Queue dispatches the event in the background and returns immediately. The
// dispatch outlives ctx cancellation.
func (d *Dispatcher) Queue(ctx context.Context, exchange, routingKey, bookingID string) {
	ev := Event{Exchange: exchange, RoutingKey: routingKey, BookingID: bookingID}
	detached := context.WithoutCancel(ctx)

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.Dispatch(detached, ev)
	}()
}

// Dispatch publishes ev, retrying unconfirmed attempts up to the configured
// limit. Exhaustion is logged and reported in the outcome only.
func (d *Dispatcher) Dispatch(ctx context.Context, ev Event) Outcome {
	log := d.logger.With("booking_id", ev.BookingID, "exchange", ev.Exchange, "routing_key", ev.RoutingKey)
	attempts := d.maxRetries + 1

	var (
		lastErr error
		tried   int
	)
	for attempt := 1; attempt <= attempts; attempt++ {
		tried = attempt
		err := d.publish(ctx, ev)
		if err == nil {
			d.record(func(r Recorder) { r.Published(ev.Exchange, ev.RoutingKey) })
			log.Info("event queued", "attempt", attempt)
			return Outcome{Event: ev, Attempts: attempt}
		}

		lastErr = err
		d.record(func(r Recorder) { r.PublishFailed(ev.Exchange, ev.RoutingKey) })
		if attempt == attempts {
			break
		}

		log.Warn("event not confirmed, retrying", "attempt", attempt, "remaining", attempts-attempt, "error", err)
		if err := d.wait(ctx); err != nil {
			lastErr = err
			break
		}
	}

	d.record(func(r Recorder) { r.Dropped(ev.Exchange, ev.RoutingKey) })
	log.Error("could not queue event, dropping it", "attempts", tried, "error", lastErr)
	return Outcome{Event: ev, Attempts: tried, Err: lastErr}
}

// Close waits for queued dispatches to finish.
func (d *Dispatcher) Close() {
	d.wg.Wait()
}

func (d *Dispatcher) publish(ctx context.Context, ev Event) error {
	ctx, cancel := context.WithTimeout(ctx, d.publishTimeout)
	defer cancel()
	return d.publisher.Publish(ctx, ev.Exchange, ev.RoutingKey, ev.BookingID)
}

func (d *Dispatcher) wait(ctx context.Context) error {
	if d.backoff <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d.backoff)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Dispatcher) record(fn func(Recorder)) {
	if d.recorder != nil {
		fn(d.recorder)
	}
}

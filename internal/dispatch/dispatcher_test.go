package dispatch

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, exchange, routingKey, bookingID string) error {
	args := m.Called(ctx, exchange, routingKey, bookingID)
	return args.Error(0)
}

type countingRecorder struct {
	mu        sync.Mutex
	published int
	failed    int
	dropped   int
}

func (r *countingRecorder) Published(string, string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.published++
}

func (r *countingRecorder) PublishFailed(string, string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failed++
}

func (r *countingRecorder) Dropped(string, string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.dropped++
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var nack = errors.New("nack")

func TestDispatcher_Dispatch_FirstAttempt(t *testing.T) {
	pub := &MockPublisher{}
	pub.On("Publish", mock.Anything, "ticket", "ticket.booking", "b-1").Return(nil).Once()

	d := New(pub, discardLogger())
	out := d.Dispatch(context.Background(), Event{Exchange: "ticket", RoutingKey: "ticket.booking", BookingID: "b-1"})

	assert.True(t, out.Delivered())
	assert.Equal(t, 1, out.Attempts)
	pub.AssertExpectations(t)
}

func TestDispatcher_Dispatch_RetriesUntilConfirmed(t *testing.T) {
	for _, failures := range []int{1, 5, 10} {
		pub := &MockPublisher{}
		pub.On("Publish", mock.Anything, "email", "email.booking.ticket", "b-1").Return(nack).Times(failures)
		pub.On("Publish", mock.Anything, "email", "email.booking.ticket", "b-1").Return(nil).Once()
		rec := &countingRecorder{}

		d := New(pub, discardLogger(), WithMaxRetries(10), WithRecorder(rec))
		out := d.Dispatch(context.Background(), Event{Exchange: "email", RoutingKey: "email.booking.ticket", BookingID: "b-1"})

		assert.True(t, out.Delivered())
		assert.Equal(t, failures+1, out.Attempts)
		assert.Equal(t, 1, rec.published)
		assert.Equal(t, failures, rec.failed)
		assert.Equal(t, 0, rec.dropped)
		pub.AssertExpectations(t)
	}
}

func TestDispatcher_Dispatch_DropsAfterExhaustion(t *testing.T) {
	pub := &MockPublisher{}
	pub.On("Publish", mock.Anything, "email", "email.booking.cancel", "b-1").Return(nack).Times(4)
	rec := &countingRecorder{}

	d := New(pub, discardLogger(), WithMaxRetries(3), WithRecorder(rec))
	out := d.Dispatch(context.Background(), Event{Exchange: "email", RoutingKey: "email.booking.cancel", BookingID: "b-1"})

	assert.False(t, out.Delivered())
	assert.ErrorIs(t, out.Err, nack)
	assert.Equal(t, 4, out.Attempts)
	assert.Equal(t, 0, rec.published)
	assert.Equal(t, 1, rec.dropped)
	pub.AssertExpectations(t)
	pub.AssertNumberOfCalls(t, "Publish", 4)
}

func TestDispatcher_Dispatch_ZeroRetries(t *testing.T) {
	pub := &MockPublisher{}
	pub.On("Publish", mock.Anything, "ticket", "ticket.booking", "b-1").Return(nack).Once()

	d := New(pub, discardLogger(), WithMaxRetries(0))
	out := d.Dispatch(context.Background(), Event{Exchange: "ticket", RoutingKey: "ticket.booking", BookingID: "b-1"})

	assert.False(t, out.Delivered())
	assert.Equal(t, 1, out.Attempts)
}

func TestDispatcher_Dispatch_BackoffStopsOnCancel(t *testing.T) {
	pub := &MockPublisher{}
	pub.On("Publish", mock.Anything, "ticket", "ticket.booking", "b-1").Return(nack).Once()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	d := New(pub, discardLogger(), WithMaxRetries(5), WithBackoff(time.Hour))
	out := d.Dispatch(ctx, Event{Exchange: "ticket", RoutingKey: "ticket.booking", BookingID: "b-1"})

	assert.ErrorIs(t, out.Err, context.Canceled)
	assert.Equal(t, 1, out.Attempts)
	pub.AssertNumberOfCalls(t, "Publish", 1)
}

// blockingPublisher fails every attempt, but only after release is closed.
type blockingPublisher struct {
	release chan struct{}
	mu      sync.Mutex
	calls   int
}

func (p *blockingPublisher) Publish(ctx context.Context, exchange, routingKey, bookingID string) error {
	<-p.release
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	return nack
}

func TestDispatcher_Queue_DoesNotBlockCaller(t *testing.T) {
	pub := &blockingPublisher{release: make(chan struct{})}
	rec := &countingRecorder{}
	d := New(pub, discardLogger(), WithMaxRetries(2), WithRecorder(rec))

	ctx, cancel := context.WithCancel(context.Background())
	returned := make(chan struct{})
	go func() {
		d.Queue(ctx, "ticket", "ticket.booking", "b-1")
		close(returned)
	}()

	select {
	case <-returned:
	case <-time.After(time.Second):
		t.Fatal("Queue blocked on the publish outcome")
	}

	// request cancellation does not abort a queued dispatch
	cancel()
	close(pub.release)
	d.Close()

	assert.Equal(t, 3, pub.calls)
	assert.Equal(t, 1, rec.dropped)
}

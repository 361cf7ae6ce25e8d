// Package ticketing issues tickets for newly created bookings.
package ticketing

import (
	"context"
	"log/slog"
	"time"

	"github.com/Domenick1991/skyline/internal/kafka"
)

// Issuer performs the conditional PENDING to ISSUED write.
type Issuer interface {
	IssueTicket(ctx context.Context, id string, issuedAt time.Time) (bool, error)
}

type Dispatcher interface {
	Queue(ctx context.Context, exchange, routingKey, bookingID string)
}

// Recorder counts ticket outcomes. It may be nil.
type Recorder interface {
	TicketIssued()
	TicketSkipped()
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

func WithRecorder(r Recorder) Option {
	return func(s *Service) {
		s.recorder = r
	}
}

type Service struct {
	issuer        Issuer
	dispatcher    Dispatcher
	emailExchange string
	emailTicket   string
	recorder      Recorder
	logger        *slog.Logger
	now           func() time.Time
}

// NewService builds the handler. Issued tickets are announced on
// emailExchange with the emailTicket routing key.
func NewService(issuer Issuer, dispatcher Dispatcher, emailExchange, emailTicket string, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{
		issuer:        issuer,
		dispatcher:    dispatcher,
		emailExchange: emailExchange,
		emailTicket:   emailTicket,
		logger:        logger,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handle is a kafka.Handler. Redelivered, canceled and unknown bookings match
// no pending booking and are rejected.
func (s *Service) Handle(ctx context.Context, msg kafka.Message) kafka.Decision {
	m, ok := msg.(kafka.TicketBooking)
	if !ok {
		s.logger.Warn("unexpected message on ticket queue", "kind", msg.Kind().String(), "booking_id", msg.Booking())
		return kafka.Reject
	}

	log := s.logger.With("booking_id", m.BookingID)
	issued, err := s.issuer.IssueTicket(ctx, m.BookingID, s.now().UTC())
	if err != nil {
		log.Error("failed to issue ticket", "error", err)
		return kafka.Reject
	}
	if !issued {
		log.Info("no pending booking to ticket")
		if s.recorder != nil {
			s.recorder.TicketSkipped()
		}
		return kafka.Reject
	}

	log.Info("ticket issued")
	if s.recorder != nil {
		s.recorder.TicketIssued()
	}
	s.dispatcher.Queue(ctx, s.emailExchange, s.emailTicket, m.BookingID)
	return kafka.Ack
}

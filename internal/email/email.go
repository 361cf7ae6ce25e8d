// Package email consumes email events. Rendering and delivery belong to the
// mail provider; this consumer records which notification a booking needs.
package email

import (
	"context"
	"log/slog"

	"github.com/Domenick1991/skyline/internal/kafka"
)

// Notification names the email template an event asks for.
type Notification string

const (
	BookingConfirmation Notification = "booking_confirmation"
	BookingCancellation Notification = "booking_cancellation"
	BoardingPass        Notification = "boarding_pass"
	Ticket              Notification = "ticket"
)

// Sender delivers one notification for a booking.
type Sender interface {
	Send(ctx context.Context, n Notification, bookingID string) error
}

// LogSender only logs what would be sent.
type LogSender struct {
	logger *slog.Logger
}

func NewLogSender(logger *slog.Logger) *LogSender {
	return &LogSender{logger: logger}
}

func (s *LogSender) Send(ctx context.Context, n Notification, bookingID string) error {
	s.logger.InfoContext(ctx, "send email", "notification", string(n), "booking_id", bookingID)
	return nil
}

type Consumer struct {
	sender Sender
	logger *slog.Logger
}

func NewConsumer(sender Sender, logger *slog.Logger) *Consumer {
	return &Consumer{sender: sender, logger: logger}
}

// Handle is a kafka.Handler for the email queue.
func (c *Consumer) Handle(ctx context.Context, msg kafka.Message) kafka.Decision {
	n, ok := notificationFor(msg)
	if !ok {
		c.logger.Warn("unexpected message on email queue", "kind", msg.Kind().String(), "booking_id", msg.Booking())
		return kafka.Reject
	}

	if err := c.sender.Send(ctx, n, msg.Booking()); err != nil {
		c.logger.Error("failed to send email", "notification", string(n), "booking_id", msg.Booking(), "error", err)
		return kafka.Reject
	}
	return kafka.Ack
}

func notificationFor(msg kafka.Message) (Notification, bool) {
	switch msg.(type) {
	case kafka.EmailBookingConfirmation:
		return BookingConfirmation, true
	case kafka.EmailBookingCancellation:
		return BookingCancellation, true
	case kafka.EmailBoardingPass:
		return BoardingPass, true
	case kafka.EmailTicket:
		return Ticket, true
	default:
		return "", false
	}
}

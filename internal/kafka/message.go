package kafka

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/segmentio/kafka-go"
)

const (
	HeaderType            = "type"
	HeaderContentType     = "content-type"
	HeaderContentEncoding = "content-encoding"
	HeaderRoutingKey      = "routing-key"
	HeaderRejectReason    = "x-rejected-reason"

	ContentTypeJSON = "application/json"
	EncodingUTF8    = "utf-8"
)

var ErrUnsupportedFormat = errors.New("unsupported message format")

// Envelope is the JSON body of every booking event.
type Envelope struct {
	BookingID string `json:"bookingId"`
}

// Kind identifies a message independently of the topic it arrived on.
type Kind int

const (
	KindUnknown Kind = iota
	KindTicketBooking
	KindEmailBookingConfirmation
	KindEmailBookingCancellation
	KindEmailBoardingPass
	KindEmailTicket
)

func (k Kind) String() string {
	switch k {
	case KindTicketBooking:
		return "ticket_booking"
	case KindEmailBookingConfirmation:
		return "email_booking_confirmation"
	case KindEmailBookingCancellation:
		return "email_booking_cancellation"
	case KindEmailBoardingPass:
		return "email_boarding_pass"
	case KindEmailTicket:
		return "email_ticket"
	default:
		return "unknown"
	}
}

// Message is the closed set of decoded messages. Handlers switch on the
// concrete type.
type Message interface {
	Kind() Kind
	Booking() string
}

type TicketBooking struct{ BookingID string }

type EmailBookingConfirmation struct{ BookingID string }

type EmailBookingCancellation struct{ BookingID string }

type EmailBoardingPass struct{ BookingID string }

type EmailTicket struct{ BookingID string }

func (m TicketBooking) Kind() Kind { return KindTicketBooking }
func (m TicketBooking) Booking() string { return m.BookingID }
func (m EmailBookingConfirmation) Kind() Kind { return KindEmailBookingConfirmation }
func (m EmailBookingConfirmation) Booking() string { return m.BookingID }
func (m EmailBookingCancellation) Kind() Kind { return KindEmailBookingCancellation }
func (m EmailBookingCancellation) Booking() string { return m.BookingID }
func (m EmailBoardingPass) Kind() Kind { return KindEmailBoardingPass }
func (m EmailBoardingPass) Booking() string { return m.BookingID }
func (m EmailTicket) Kind() Kind { return KindEmailTicket }
func (m EmailTicket) Booking() string { return m.BookingID }

// Codec maps message type tags (the routing keys the producer stamps on each
// message) to kinds and decodes raw Kafka messages.
type Codec struct {
	kinds  map[string]Kind
	logger *slog.Logger
}

func NewCodec(kinds map[string]Kind, logger *slog.Logger) *Codec {
	return &Codec{kinds: kinds, logger: logger}
}

// NewMessage builds the Kafka message for an event published to exchange with
// routingKey. The type tag equals the routing key.
func NewMessage(exchange, routingKey, bookingID string) (kafka.Message, error) {
	body, err := json.Marshal(Envelope{BookingID: bookingID})
	if err != nil {
		return kafka.Message{}, fmt.Errorf("marshal envelope: %w", err)
	}

	return kafka.Message{
		Topic: exchange,
		Key:   []byte(bookingID),
		Value: body,
		Time:  time.Now(),
		Headers: []kafka.Header{
			{Key: HeaderType, Value: []byte(routingKey)},
			{Key: HeaderRoutingKey, Value: []byte(routingKey)},
			{Key: HeaderContentType, Value: []byte(ContentTypeJSON)},
			{Key: HeaderContentEncoding, Value: []byte(EncodingUTF8)},
		},
	}, nil
}

// Decode validates the message metadata and body and returns the typed message.
// Missing metadata falls back to the routing key, utf-8 and application/json.
func (c *Codec) Decode(msg kafka.Message) (Message, error) {
	tag := header(msg, HeaderType)
	if tag == "" {
		tag = header(msg, HeaderRoutingKey)
		c.logger.Warn("message without type header, using routing key instead",
			"topic", msg.Topic, "offset", msg.Offset, "routing_key", tag)
	}

	encoding := header(msg, HeaderContentEncoding)
	if encoding == "" {
		encoding = EncodingUTF8
		c.logger.Warn("message without content encoding, assuming utf-8", "topic", msg.Topic, "offset", msg.Offset)
	}

	contentType := header(msg, HeaderContentType)
	if contentType == "" {
		contentType = ContentTypeJSON
		c.logger.Warn("message without content type, assuming application/json", "topic", msg.Topic, "offset", msg.Offset)
	}

	if !strings.EqualFold(encoding, EncodingUTF8) {
		return nil, fmt.Errorf("%w: content encoding %q", ErrUnsupportedFormat, encoding)
	}
	if contentType != ContentTypeJSON {
		return nil, fmt.Errorf("%w: content type %q", ErrUnsupportedFormat, contentType)
	}
	if !utf8.Valid(msg.Value) {
		return nil, fmt.Errorf("%w: body is not valid utf-8", ErrUnsupportedFormat)
	}

	kind, ok := c.kinds[tag]
	if !ok {
		return nil, fmt.Errorf("%w: message type %q", ErrUnsupportedFormat, tag)
	}

	var env Envelope
	if err := json.Unmarshal(msg.Value, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedFormat, err)
	}
	if env.BookingID == "" {
		return nil, fmt.Errorf("%w: missing bookingId", ErrUnsupportedFormat)
	}

	switch kind {
	case KindTicketBooking:
		return TicketBooking{BookingID: env.BookingID}, nil
	case KindEmailBookingConfirmation:
		return EmailBookingConfirmation{BookingID: env.BookingID}, nil
	case KindEmailBookingCancellation:
		return EmailBookingCancellation{BookingID: env.BookingID}, nil
	case KindEmailBoardingPass:
		return EmailBoardingPass{BookingID: env.BookingID}, nil
	case KindEmailTicket:
		return EmailTicket{BookingID: env.BookingID}, nil
	default:
		return nil, fmt.Errorf("%w: message type %q", ErrUnsupportedFormat, tag)
	}
}

func header(msg kafka.Message, key string) string {
	for _, h := range msg.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

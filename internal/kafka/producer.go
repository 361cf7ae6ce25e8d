package kafka

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer publishes with publisher confirmation: WriteMessages returns only
// after every in-sync replica acknowledged the write, or with the error the
// broker reported. Retries belong to the caller.
type Producer struct {
	brokers []string
	writer  messageWriter
	logger  *slog.Logger
}

func NewProducer(brokers []string, logger *slog.Logger) *Producer {
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Balancer:               &kafka.Hash{},
		BatchTimeout:           10 * time.Millisecond,
		RequiredAcks:           kafka.RequireAll,
		MaxAttempts:            1,
		Async:                  false,
		AllowAutoTopicCreation: true,
	}

	return &Producer{
		brokers: brokers,
		writer:  writer,
		logger:  logger,
	}
}

// Publish sends the booking envelope to exchange and waits for the broker
// confirmation.
func (p *Producer) Publish(ctx context.Context, exchange, routingKey, bookingID string) error {
	msg, err := NewMessage(exchange, routingKey, bookingID)
	if err != nil {
		return err
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to write message to Kafka: %w", err)
	}

	p.logger.Debug("message confirmed by broker", "exchange", exchange, "routing_key", routingKey, "booking_id", bookingID)
	return nil
}

// Forward re-publishes a consumed message unchanged to topic, tagging it with
// the reason it was rejected.
func (p *Producer) Forward(ctx context.Context, topic string, msg kafka.Message, reason string) error {
	headers := make([]kafka.Header, 0, len(msg.Headers)+1)
	for _, h := range msg.Headers {
		if h.Key != HeaderRejectReason {
			headers = append(headers, h)
		}
	}
	headers = append(headers, kafka.Header{Key: HeaderRejectReason, Value: []byte(reason)})

	forwarded := kafka.Message{
		Topic:   topic,
		Key:     msg.Key,
		Value:   msg.Value,
		Headers: headers,
		Time:    time.Now(),
	}
	if err := p.writer.WriteMessages(ctx, forwarded); err != nil {
		return fmt.Errorf("failed to forward message to %s: %w", topic, err)
	}
	return nil
}

func (p *Producer) Close() error {
	if p.writer != nil {
		return p.writer.Close()
	}
	return nil
}

// CheckConnection dials the first broker and lists partitions.
func (p *Producer) CheckConnection(ctx context.Context) error {
	if len(p.brokers) == 0 {
		return fmt.Errorf("no Kafka brokers configured")
	}
	conn, err := kafka.DialContext(ctx, "tcp", p.brokers[0])
	if err != nil {
		return fmt.Errorf("failed to connect to Kafka: %w", err)
	}
	defer conn.Close()

	partitions, err := conn.ReadPartitions()
	if err != nil {
		return fmt.Errorf("failed to read partitions: %w", err)
	}

	p.logger.Info("connected to Kafka", "partitions", len(partitions))
	return nil
}

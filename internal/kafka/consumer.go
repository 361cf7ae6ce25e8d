package kafka

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"
)

// Decision is the handler's verdict for one delivered message.
type Decision int

const (
	// Ack commits the message.
	Ack Decision = iota
	// Reject dead-letters the message without requeueing it.
	Reject
)

func (d Decision) String() string {
	if d == Ack {
		return "ack"
	}
	return "reject"
}

// Handler processes one decoded message.
type Handler func(ctx context.Context, msg Message) Decision

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type deadLetterer interface {
	Forward(ctx context.Context, topic string, msg kafka.Message, reason string) error
}

// Observer receives the outcome of every delivery. It may be nil.
type Observer interface {
	Delivered(topic string, d Decision)
}

type ConsumerConfig struct {
	Brokers         []string
	GroupID         string
	Topic           string
	DeadLetterTopic string
	// Prefetch bounds how many fetched but unprocessed messages the reader
	// buffers.
	Prefetch int
}

// Consumer handles one message at a time: fetch, decode, handle, then commit
// or dead-letter.
type Consumer struct {
	reader          messageReader
	deadLetter      deadLetterer
	deadLetterTopic string
	codec           *Codec
	observer        Observer
	logger          *slog.Logger
}

func NewConsumer(cfg ConsumerConfig, codec *Codec, deadLetter deadLetterer, observer Observer, logger *slog.Logger) *Consumer {
	prefetch := cfg.Prefetch
	if prefetch < 1 {
		prefetch = 1
	}

	return &Consumer{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:           cfg.Brokers,
			GroupID:           cfg.GroupID,
			Topic:             cfg.Topic,
			QueueCapacity:     prefetch,
			MinBytes:          1,
			MaxBytes:          10e6,
			MaxWait:           time.Second,
			HeartbeatInterval: 3 * time.Second,
			SessionTimeout:    30 * time.Second,
			StartOffset:       kafka.FirstOffset,
		}),
		deadLetter:      deadLetter,
		deadLetterTopic: cfg.DeadLetterTopic,
		codec:           codec,
		observer:        observer,
		logger:          logger.With("topic", cfg.Topic, "group_id", cfg.GroupID),
	}
}

func (c *Consumer) Close() error {
	if c == nil || c.reader == nil {
		return nil
	}
	return c.reader.Close()
}

// Run consumes until ctx is canceled. It returns an error only when a message
// can be neither committed nor dead-lettered.
func (c *Consumer) Run(ctx context.Context, handle Handler) error {
	for {
		raw, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("fetch message: %w", err)
		}

		decision, reason := c.process(ctx, raw, handle)
		if err := c.settle(ctx, raw, decision, reason); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
	}
}

func (c *Consumer) process(ctx context.Context, raw kafka.Message, handle Handler) (Decision, string) {
	msg, err := c.codec.Decode(raw)
	if err != nil {
		c.logger.Error("received unsupported message format, rejecting",
			"partition", raw.Partition, "offset", raw.Offset, "error", err)
		return Reject, err.Error()
	}

	c.logger.Info("received message", "kind", msg.Kind().String(), "booking_id", msg.Booking(),
		"partition", raw.Partition, "offset", raw.Offset)

	decision := handle(ctx, msg)
	if decision == Reject {
		return Reject, "rejected by " + msg.Kind().String() + " handler"
	}
	return decision, ""
}

func (c *Consumer) settle(ctx context.Context, raw kafka.Message, decision Decision, reason string) error {
	if decision == Reject {
		if c.deadLetter == nil || c.deadLetterTopic == "" {
			return errors.New("message rejected but no dead-letter topic is configured")
		}
		if err := c.deadLetter.Forward(ctx, c.deadLetterTopic, raw, reason); err != nil {
			return fmt.Errorf("dead-letter message at offset %d: %w", raw.Offset, err)
		}
	}

	if err := c.reader.CommitMessages(ctx, raw); err != nil {
		return fmt.Errorf("commit message at offset %d: %w", raw.Offset, err)
	}

	if c.observer != nil {
		c.observer.Delivered(raw.Topic, decision)
	}
	return nil
}

package kafka

import (
	"context"
	"errors"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	written []kafka.Message
	err     error
}

func (w *fakeWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.written = append(w.written, msgs...)
	return nil
}

func (w *fakeWriter) Close() error { return nil }

func TestProducer_Publish(t *testing.T) {
	writer := &fakeWriter{}
	p := &Producer{writer: writer, logger: testLogger()}

	err := p.Publish(context.Background(), "email", "email.booking.confirmation", "b-1")
	require.NoError(t, err)

	require.Len(t, writer.written, 1)
	msg := writer.written[0]
	assert.Equal(t, "email", msg.Topic)
	assert.Equal(t, "email.booking.confirmation", header(msg, HeaderType))
	assert.JSONEq(t, `{"bookingId":"b-1"}`, string(msg.Value))
}

func TestProducer_Publish_NegativeConfirmation(t *testing.T) {
	writer := &fakeWriter{err: kafka.NotEnoughReplicas}
	p := &Producer{writer: writer, logger: testLogger()}

	err := p.Publish(context.Background(), "email", "email.booking.confirmation", "b-1")
	assert.Error(t, err)
	assert.True(t, errors.Is(err, kafka.NotEnoughReplicas))
}

func TestProducer_Forward_TagsReason(t *testing.T) {
	writer := &fakeWriter{}
	p := &Producer{writer: writer, logger: testLogger()}

	original, err := NewMessage("ticket", "ticket.booking", "b-1")
	require.NoError(t, err)
	original.Headers = append(original.Headers, kafka.Header{Key: HeaderRejectReason, Value: []byte("old")})

	require.NoError(t, p.Forward(context.Background(), "dead-letter", original, "no pending booking"))

	require.Len(t, writer.written, 1)
	forwarded := writer.written[0]
	assert.Equal(t, "dead-letter", forwarded.Topic)
	assert.Equal(t, original.Value, forwarded.Value)
	assert.Equal(t, "ticket.booking", header(forwarded, HeaderType))
	assert.Equal(t, "no pending booking", header(forwarded, HeaderRejectReason))

	reasons := 0
	for _, h := range forwarded.Headers {
		if h.Key == HeaderRejectReason {
			reasons++
		}
	}
	assert.Equal(t, 1, reasons)
}

package metrics

import (
	"testing"

	"github.com/Domenick1991/skyline/internal/kafka"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics_Counters(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.Published("ticket", "ticket.booking")
	m.Published("ticket", "ticket.booking")
	m.PublishFailed("email", "email.booking.ticket")
	m.Dropped("email", "email.booking.ticket")
	m.Delivered("ticket", kafka.Reject)
	m.TicketIssued()
	m.TicketSkipped()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.eventsPublished.WithLabelValues("ticket", "ticket.booking")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.publishFailures.WithLabelValues("email", "email.booking.ticket")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.eventsDropped.WithLabelValues("email", "email.booking.ticket")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.messagesDelivered.WithLabelValues("ticket", "reject")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ticketsIssued))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ticketsSkipped))
}

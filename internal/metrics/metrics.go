package metrics

import (
	"github.com/Domenick1991/skyline/internal/kafka"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	eventsPublished   *prometheus.CounterVec
	publishFailures   *prometheus.CounterVec
	eventsDropped     *prometheus.CounterVec
	messagesDelivered *prometheus.CounterVec
	ticketsIssued     prometheus.Counter
	ticketsSkipped    prometheus.Counter
}

func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		eventsPublished: f.NewCounterVec(prometheus.CounterOpts{
			Name: "skyline_dispatch_events_published_total",
			Help: "Events confirmed by the broker.",
		}, []string{"exchange", "routing_key"}),
		publishFailures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "skyline_dispatch_publish_failures_total",
			Help: "Publish attempts that were not confirmed by the broker.",
		}, []string{"exchange", "routing_key"}),
		eventsDropped: f.NewCounterVec(prometheus.CounterOpts{
			Name: "skyline_dispatch_events_dropped_total",
			Help: "Events dropped after exhausting all publish attempts.",
		}, []string{"exchange", "routing_key"}),
		messagesDelivered: f.NewCounterVec(prometheus.CounterOpts{
			Name: "skyline_consumer_messages_total",
			Help: "Consumed messages by topic and decision.",
		}, []string{"topic", "decision"}),
		ticketsIssued: f.NewCounter(prometheus.CounterOpts{
			Name: "skyline_tickets_issued_total",
			Help: "Bookings moved from PENDING to ISSUED.",
		}),
		ticketsSkipped: f.NewCounter(prometheus.CounterOpts{
			Name: "skyline_tickets_skipped_total",
			Help: "Ticket requests that matched no pending booking.",
		}),
	}
}

func (m *Metrics) Published(exchange, routingKey string) {
	m.eventsPublished.WithLabelValues(exchange, routingKey).Inc()
}

func (m *Metrics) PublishFailed(exchange, routingKey string) {
	m.publishFailures.WithLabelValues(exchange, routingKey).Inc()
}

func (m *Metrics) Dropped(exchange, routingKey string) {
	m.eventsDropped.WithLabelValues(exchange, routingKey).Inc()
}

func (m *Metrics) Delivered(topic string, d kafka.Decision) {
	m.messagesDelivered.WithLabelValues(topic, d.String()).Inc()
}

func (m *Metrics) TicketIssued() {
	m.ticketsIssued.Inc()
}

func (m *Metrics) TicketSkipped() {
	m.ticketsSkipped.Inc()
}

// Package metrics exposes subscriber activity as Prometheus metrics.
package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/stuartleeks/service-bus-subscribers/service/mq"
)

const namespace = "subscriber"

// Collector holds the metric vectors shared by every subscription. Each
// subscription reports through the view returned by ForSubscription.
type Collector struct {
	batchesReceived  *prometheus.CounterVec
	batchSize        *prometheus.HistogramVec
	receiveErrors    *prometheus.CounterVec
	inFlight         *prometheus.GaugeVec
	handled          *prometheus.CounterVec
	handlingDuration *prometheus.HistogramVec
	settled          *prometheus.CounterVec
	lockRenewals     *prometheus.CounterVec
	abandoned        *prometheus.CounterVec
}

// NewCollector registers the subscriber metrics with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	f := promauto.With(reg)
	labels := []string{"topic", "subscription"}

	return &Collector{
		batchesReceived: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "batches_received_total",
				Help:      "Non-empty batches received from the broker",
			},
			labels,
		),
		batchSize: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "batch_size",
				Help:      "Messages per received batch",
				Buckets:   prometheus.ExponentialBuckets(1, 2, 8), // 1, 2, 4, ..., 128
			},
			labels,
		),
		receiveErrors: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "receive_errors_total",
				Help:      "Failed receive calls by error kind",
			},
			append(labels, "kind"),
		),
		inFlight: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "messages_in_flight",
				Help:      "Messages dispatched and not yet settled",
			},
			labels,
		),
		handled: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "messages_handled_total",
				Help:      "Handler invocations by outcome",
			},
			append(labels, "outcome"),
		),
		handlingDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "message_handling_duration_seconds",
				Help:      "Handler duration",
				Buckets:   prometheus.ExponentialBuckets(0.001, 2, 16), // 1ms .. ~33s
			},
			labels,
		),
		settled: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "messages_settled_total",
				Help:      "Settlement calls by action and result",
			},
			append(labels, "action", "result"),
		),
		lockRenewals: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "lock_renewals_total",
				Help:      "Lock renewal calls by result",
			},
			append(labels, "result"),
		),
		abandoned: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "messages_abandoned_total",
				Help:      "Messages left unsettled for the broker to redeliver",
			},
			append(labels, "reason"),
		),
	}
}

// ForSubscription returns the mq.Metrics of one subscription.
func (c *Collector) ForSubscription(sub mq.Subscription) mq.Metrics {
	return &subscriptionMetrics{c: c, topic: sub.Topic, name: sub.Name}
}

type subscriptionMetrics struct {
	c     *Collector
	topic string
	name  string
}

var _ mq.Metrics = (*subscriptionMetrics)(nil)

func (m *subscriptionMetrics) BatchReceived(size int) {
	m.c.batchesReceived.WithLabelValues(m.topic, m.name).Inc()
	m.c.batchSize.WithLabelValues(m.topic, m.name).Observe(float64(size))
}

func (m *subscriptionMetrics) ReceiveFailed(err error) {
	m.c.receiveErrors.WithLabelValues(m.topic, m.name, errorKind(err)).Inc()
}

func (m *subscriptionMetrics) InFlight(n int) {
	m.c.inFlight.WithLabelValues(m.topic, m.name).Set(float64(n))
}

func (m *subscriptionMetrics) Handled(outcome mq.Outcome, d time.Duration) {
	m.c.handled.WithLabelValues(m.topic, m.name, outcome.String()).Inc()
	m.c.handlingDuration.WithLabelValues(m.topic, m.name).Observe(d.Seconds())
}

func (m *subscriptionMetrics) Settled(action mq.Action, err error) {
	m.c.settled.WithLabelValues(m.topic, m.name, action.String(), result(err)).Inc()
}

func (m *subscriptionMetrics) LockRenewed(err error) {
	m.c.lockRenewals.WithLabelValues(m.topic, m.name, result(err)).Inc()
}

func (m *subscriptionMetrics) Abandoned(reason string) {
	m.c.abandoned.WithLabelValues(m.topic, m.name, reason).Inc()
}

func result(err error) string {
	if err == nil {
		return "ok"
	}
	return errorKind(err)
}

func errorKind(err error) string {
	switch {
	case errors.Is(err, mq.ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, mq.ErrLockLost):
		return "lock_lost"
	case errors.Is(err, mq.ErrUnavailable):
		return "unavailable"
	default:
		return "error"
	}
}

// Package metrics exposes matchmaking activity to Prometheus.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector records engine, storage and transport measurements. It
// satisfies matchmaking.Recorder and store.FailureRecorder.
type Collector struct {
	invites         *prometheus.CounterVec
	callsStarted    prometheus.Counter
	callsFinalized  *prometheus.CounterVec
	callDuration    prometheus.Histogram
	onlineUsers     prometheus.Gauge
	availableUsers  prometheus.Gauge
	activeRooms     prometheus.Gauge
	persistFailures *prometheus.CounterVec
	eventsThrottled prometheus.Counter
}

// NewCollector creates a Collector and registers its metrics with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		invites: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "speeddating_invites_total",
			Help: "Invite attempts by outcome.",
		}, []string{"outcome"}),
		callsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "speeddating_calls_started_total",
			Help: "Rooms opened from accepted invites.",
		}),
		callsFinalized: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "speeddating_calls_finalized_total",
			Help: "Rooms finalized, split by whether history was recorded.",
		}, []string{"recorded"}),
		callDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "speeddating_call_duration_seconds",
			Help:    "Actual elapsed call duration.",
			Buckets: []float64{5, 30, 60, 120, 300, 600, 900, 1200, 1800},
		}),
		onlineUsers: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "speeddating_online_users",
			Help: "Users with a live connection.",
		}),
		availableUsers: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "speeddating_available_users",
			Help: "Users currently in the queue.",
		}),
		activeRooms: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "speeddating_active_rooms",
			Help: "Calls in progress.",
		}),
		persistFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "speeddating_persist_failures_total",
			Help: "Durable writes that failed or were dropped.",
		}, []string{"kind"}),
		eventsThrottled: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "speeddating_events_throttled_total",
			Help: "Inbound client events rejected by the rate limiter.",
		}),
	}

	reg.MustRegister(
		c.invites,
		c.callsStarted,
		c.callsFinalized,
		c.callDuration,
		c.onlineUsers,
		c.availableUsers,
		c.activeRooms,
		c.persistFailures,
		c.eventsThrottled,
	)

	return c
}

func (c *Collector) InviteOutcome(outcome string) {
	c.invites.WithLabelValues(outcome).Inc()
}

func (c *Collector) CallStarted() {
	c.callsStarted.Inc()
}

// CallFinalized counts the finalization. Only recorded calls feed the duration histogram.
func (c *Collector) CallFinalized(recorded bool, duration time.Duration) {
	c.callsFinalized.WithLabelValues(strconv.FormatBool(recorded)).Inc()
	if recorded {
		c.callDuration.Observe(duration.Seconds())
	}
}

func (c *Collector) PresenceCounts(online, available int) {
	c.onlineUsers.Set(float64(online))
	c.availableUsers.Set(float64(available))
}

func (c *Collector) ActiveRooms(n int) {
	c.activeRooms.Set(float64(n))
}

func (c *Collector) PersistFailed(kind string) {
	c.persistFailures.WithLabelValues(kind).Inc()
}

func (c *Collector) EventThrottled() {
	c.eventsThrottled.Inc()
}

// Handler returns the scrape handler for gatherer.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

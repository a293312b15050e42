// Package metrics holds the client's prometheus collectors.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	Requests         *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
	SessionsExpired  *prometheus.CounterVec
	RealtimeEvents   *prometheus.CounterVec
	RealtimeConnects prometheus.Counter
	RealtimeUp       prometheus.Gauge
}

// New creates the collectors and registers them with reg. A nil reg skips
// registration.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "carpool",
			Subsystem: "gateway",
			Name:      "requests_total",
			Help:      "API requests by audience, method and status code.",
		}, []string{"audience", "method", "code"}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "carpool",
			Subsystem: "gateway",
			Name:      "request_duration_seconds",
			Help:      "API request latency by audience.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"audience"}),
		SessionsExpired: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "carpool",
			Subsystem: "session",
			Name:      "expired_total",
			Help:      "Sessions torn down after a 401 response.",
		}, []string{"audience"}),
		RealtimeEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "carpool",
			Subsystem: "realtime",
			Name:      "events_total",
			Help:      "Realtime events received by name.",
		}, []string{"event"}),
		RealtimeConnects: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "carpool",
			Subsystem: "realtime",
			Name:      "connects_total",
			Help:      "Successful realtime connections.",
		}),
		RealtimeUp: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "carpool",
			Subsystem: "realtime",
			Name:      "connected",
			Help:      "1 while the realtime channel is connected.",
		}),
	}

	if reg != nil {
		reg.MustRegister(m.Requests, m.RequestDuration, m.SessionsExpired,
			m.RealtimeEvents, m.RealtimeConnects, m.RealtimeUp)
	}
	return m
}

// ObserveRequest records one finished request. code 0 means no response.
func (m *Metrics) ObserveRequest(audience, method string, code int, d time.Duration) {
	if m == nil {
		return
	}
	label := "none"
	if code > 0 {
		label = strconv.Itoa(code)
	}
	m.Requests.WithLabelValues(audience, method, label).Inc()
	m.RequestDuration.WithLabelValues(audience).Observe(d.Seconds())
}

func (m *Metrics) SessionExpired(audience string) {
	if m == nil {
		return
	}
	m.SessionsExpired.WithLabelValues(audience).Inc()
}

func (m *Metrics) RealtimeEvent(event string) {
	if m == nil {
		return
	}
	m.RealtimeEvents.WithLabelValues(event).Inc()
}

func (m *Metrics) RealtimeConnected(up bool) {
	if m == nil {
		return
	}
	if up {
		m.RealtimeConnects.Inc()
		m.RealtimeUp.Set(1)
		return
	}
	m.RealtimeUp.Set(0)
}

package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveRequest(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObserveRequest("user", "GET", 200, 10*time.Millisecond)
	m.ObserveRequest("user", "GET", 200, 10*time.Millisecond)
	m.ObserveRequest("admin", "PUT", 0, time.Millisecond)

	if got := testutil.ToFloat64(m.Requests.WithLabelValues("user", "GET", "200")); got != 2 {
		t.Errorf("user GET 200 = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.Requests.WithLabelValues("admin", "PUT", "none")); got != 1 {
		t.Errorf("admin PUT none = %v, want 1", got)
	}
}

func TestRealtimeGauge(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.RealtimeConnected(true)
	if got := testutil.ToFloat64(m.RealtimeUp); got != 1 {
		t.Errorf("connected = %v, want 1", got)
	}
	m.RealtimeConnected(false)
	if got := testutil.ToFloat64(m.RealtimeUp); got != 0 {
		t.Errorf("connected = %v, want 0", got)
	}
	if got := testutil.ToFloat64(m.RealtimeConnects); got != 1 {
		t.Errorf("connects = %v, want 1", got)
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.ObserveRequest("user", "GET", 200, time.Millisecond)
	m.SessionExpired("user")
	m.RealtimeEvent("new_ride")
	m.RealtimeConnected(true)
}

package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

func TestMetricsZeroValueUsable(t *testing.T) {
	var m Metrics
	m.Inc(EventConnect)
	m.Inc(EventConnect)
	if got := m.Get(EventConnect); got != 2 {
		t.Fatalf("connect=%d, want 2", got)
	}
	if got := m.Get(EventDisconnect); got != 0 {
		t.Fatalf("disconnect=%d, want 0", got)
	}
}

func TestMetricsConcurrentInc(t *testing.T) {
	m := New()
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				m.Inc(EventSignal)
			}
		}()
	}
	wg.Wait()
	if got := m.Get(EventSignal); got != 1600 {
		t.Fatalf("signal=%d, want 1600", got)
	}
}

func TestSnapshotIsCopy(t *testing.T) {
	m := New()
	m.Inc(EventBroadcast)

	snap := m.Snapshot()
	snap[EventBroadcast] = 99

	if got := m.Get(EventBroadcast); got != 1 {
		t.Fatalf("broadcast=%d after snapshot mutation, want 1", got)
	}
}

func TestPrometheusHandler(t *testing.T) {
	m := New()
	m.Inc(EventConnect)
	m.Inc(EventConnect)
	m.Inc(DropReasonUnknownTarget)

	rec := httptest.NewRecorder()
	PrometheusHandler(m).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d, want 200", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Fatalf("content-type=%q, want text/plain", ct)
	}
	body := rec.Body.String()
	for _, want := range []string{
		"# TYPE aero_webrtc_signaling_events_total counter",
		`aero_webrtc_signaling_events_total{event="connect"} 2`,
		`aero_webrtc_signaling_events_total{event="signal_unknown_target"} 1`,
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("body missing %q:\n%s", want, body)
		}
	}
}

func TestPrometheusHandlerNilMetrics(t *testing.T) {
	rec := httptest.NewRecorder()
	PrometheusHandler(nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status=%d, want 500", rec.Code)
	}
}

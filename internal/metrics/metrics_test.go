package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"co2_monitor/internal/models"
)

func newTestMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	return NewWithRegistry(reg, reg)
}

func TestObserveReading(t *testing.T) {
	m := newTestMetrics()
	d := models.NewDevice("70:ee:50:00:00:01", "", models.KindStation)
	d.CO2 = models.CO2Ptr(1012)
	d.Temperature = 22.5

	m.ObserveReading(d, models.TierOrange)

	if got := testutil.ToFloat64(m.co2.WithLabelValues(d.ID, "")); got != 1012 {
		t.Fatalf("co2 = %v", got)
	}
	if got := testutil.ToFloat64(m.temperature.WithLabelValues(d.ID, "")); got != 22.5 {
		t.Fatalf("temperature = %v", got)
	}
	if got := testutil.ToFloat64(m.tier.WithLabelValues(d.ID, "")); got != float64(models.TierOrange) {
		t.Fatalf("tier = %v", got)
	}
}

func TestObserveReading_UnknownValuesLeaveGauges(t *testing.T) {
	m := newTestMetrics()
	d := models.NewDevice("70:ee:50:00:00:01", "", models.KindStation)

	m.ObserveReading(d, models.TierNone)

	if n := testutil.CollectAndCount(m.co2); n != 0 {
		t.Fatalf("co2 series = %d, want 0", n)
	}
	if n := testutil.CollectAndCount(m.temperature); n != 0 {
		t.Fatalf("temperature series = %d, want 0", n)
	}
}

func TestCounters(t *testing.T) {
	m := newTestMetrics()
	m.IncPoll("ok")
	m.IncPoll("ok")
	m.IncPoll("network")
	m.IncRefresh("server")
	m.IncNotification(models.TierRed)

	if got := testutil.ToFloat64(m.polls.WithLabelValues("ok")); got != 2 {
		t.Fatalf("polls ok = %v", got)
	}
	if got := testutil.ToFloat64(m.polls.WithLabelValues("network")); got != 1 {
		t.Fatalf("polls network = %v", got)
	}
	if got := testutil.ToFloat64(m.refreshes.WithLabelValues("server")); got != 1 {
		t.Fatalf("refreshes = %v", got)
	}
	if got := testutil.ToFloat64(m.notifications.WithLabelValues("red")); got != 1 {
		t.Fatalf("notifications = %v", got)
	}
}

func TestHandler_ServesExposition(t *testing.T) {
	m := New()
	m.IncPoll("ok")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), `co2_monitor_polls_total{outcome="ok"} 1`) {
		t.Fatalf("exposition missing poll counter:\n%s", body)
	}
	if !strings.Contains(string(body), "go_goroutines") {
		t.Fatal("exposition missing go collector")
	}
}

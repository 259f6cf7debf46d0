package telemetry

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordProcess(t *testing.T) {
	m := NewMetrics()
	m.RecordProcess("gemini", "image", 1.2)
	m.RecordProcess("gemini", "image", 0.4)
	m.RecordProcess("gemini", "InsufficientCredits", 0.001)

	if got := testutil.ToFloat64(m.ProcessTotal.WithLabelValues("gemini", "image")); got != 2 {
		t.Fatalf("image outcomes = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.ProcessTotal.WithLabelValues("gemini", "InsufficientCredits")); got != 1 {
		t.Fatalf("insufficient outcomes = %v, want 1", got)
	}
}

func TestRecordDebitIgnoresNonPositive(t *testing.T) {
	m := NewMetrics()
	m.RecordDebit("flux", 2)
	m.RecordDebit("flux", 0)
	if got := testutil.ToFloat64(m.CreditsDebited.WithLabelValues("flux")); got != 2 {
		t.Fatalf("credits debited = %v, want 2", got)
	}
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.RecordProcess("gemini", "image", 1)
	m.RecordDebit("gemini", 2)
	m.RecordPoll("Ready", 4)
	m.RecordBreakerTransition("gemini", "open")
}

func TestHandlerExposesCollectors(t *testing.T) {
	m := NewMetrics()
	m.RecordPoll("Ready", 4)

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatalf("GET metrics: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "colorizer_flux_poll_attempts") {
		t.Fatalf("poll histogram missing from exposition")
	}
}

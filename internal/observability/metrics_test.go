package observability

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
)

func TestObserveSighting(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := NewSightingCollector(reg)
	if err != nil {
		t.Fatalf("NewSightingCollector: %v", err)
	}

	c.ObserveSighting("sun", OutcomeOK, 20*time.Microsecond)
	c.ObserveSighting("sun", OutcomeNoSolution, 10*time.Microsecond)
	c.ObserveSighting("moon", OutcomeOK, 30*time.Microsecond)

	if got := testutil.ToFloat64(c.Sightings.WithLabelValues("sun", OutcomeOK)); got != 1 {
		t.Fatalf("sun ok = %v, want 1", got)
	}
	if got := testutil.ToFloat64(c.Sightings.WithLabelValues("sun", OutcomeNoSolution)); got != 1 {
		t.Fatalf("sun no_solution = %v, want 1", got)
	}
	if n := histogramSampleCount(t, reg, "skyfix_sighting_duration_seconds", map[string]string{"body": "sun"}); n != 2 {
		t.Fatalf("sun duration samples = %d, want 2", n)
	}
}

func TestObserveReading(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := NewSightingCollector(reg)
	if err != nil {
		t.Fatalf("NewSightingCollector: %v", err)
	}

	c.ObserveReading(true)
	c.ObserveReading(true)
	c.ObserveReading(false)
	c.ObserveReadingAge(250 * time.Millisecond)
	c.ObserveReadingAge(-time.Second) // ignored

	if got := testutil.ToFloat64(c.Readings.WithLabelValues(ReadingAccepted)); got != 2 {
		t.Fatalf("accepted = %v, want 2", got)
	}
	if got := testutil.ToFloat64(c.Readings.WithLabelValues(ReadingRejected)); got != 1 {
		t.Fatalf("rejected = %v, want 1", got)
	}
	if n := histogramSampleCount(t, reg, "skyfix_reading_age_seconds", nil); n != 1 {
		t.Fatalf("reading age samples = %d, want 1", n)
	}
}

func TestNilCollectorIsNoop(t *testing.T) {
	var c *SightingCollector
	c.ObserveSighting("sun", OutcomeOK, time.Millisecond)
	c.ObserveReading(true)
	c.ObserveReadingAge(time.Second)
}

func TestRegisterTwiceReusesCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	a, err := NewSightingCollector(reg)
	if err != nil {
		t.Fatalf("first: %v", err)
	}
	b, err := NewSightingCollector(reg)
	if err != nil {
		t.Fatalf("second: %v", err)
	}
	a.ObserveReading(true)
	if got := testutil.ToFloat64(b.Readings.WithLabelValues(ReadingAccepted)); got != 1 {
		t.Fatalf("shared counter = %v, want 1", got)
	}
}

func TestMetricsHandler(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := NewSightingCollector(reg)
	if err != nil {
		t.Fatalf("NewSightingCollector: %v", err)
	}
	c.ObserveSighting("moon", OutcomeMissing, time.Microsecond)
	c.ObserveReading(false)
	c.ObserveReadingAge(time.Second)

	rr := httptest.NewRecorder()
	c.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("/metrics status = %d, want 200", rr.Code)
	}
	body := rr.Body.String()
	for _, metric := range []string{
		"skyfix_sightings_total",
		"skyfix_sighting_duration_seconds",
		"skyfix_readings_total",
		"skyfix_reading_age_seconds",
	} {
		if !strings.Contains(body, metric) {
			t.Fatalf("expected %q in /metrics output", metric)
		}
	}
}

func TestInitTracingStdout(t *testing.T) {
	var buf bytes.Buffer
	cfg := DefaultTracingConfig()
	cfg.Enabled = true
	cfg.Writer = &buf

	shutdown, err := InitTracing(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("InitTracing: %v", err)
	}
	_, span := Tracer().Start(context.Background(), "test-span")
	span.End()
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
	if !strings.Contains(buf.String(), "test-span") {
		t.Fatalf("span not exported: %q", buf.String())
	}

	if _, err := InitTracing(context.Background(), TracingConfig{}, nil); err != nil {
		t.Fatalf("disabled InitTracing: %v", err)
	}
}

func TestInitTracingUnknownExporter(t *testing.T) {
	cfg := DefaultTracingConfig()
	cfg.Enabled = true
	cfg.Exporter = "carrier-pigeon"
	if _, err := InitTracing(context.Background(), cfg, nil); err == nil {
		t.Fatal("expected error for unknown exporter")
	}
}

func TestTracingApplyEnv(t *testing.T) {
	t.Setenv("SKYFIX_TRACING_ENABLED", "true")
	t.Setenv("SKYFIX_TRACING_EXPORTER", "OTLP")
	t.Setenv("SKYFIX_TRACING_SAMPLE_RATIO", "0.25")
	t.Setenv("SKYFIX_OTLP_ENDPOINT", "collector:4317")

	cfg := DefaultTracingConfig().ApplyEnv()
	if !cfg.Enabled || cfg.Exporter != "otlp" || cfg.SampleRatio != 0.25 || cfg.Endpoint != "collector:4317" {
		t.Fatalf("unexpected config %+v", cfg)
	}

	t.Setenv("SKYFIX_TRACING_SAMPLE_RATIO", "7")
	if got := DefaultTracingConfig().ApplyEnv().SampleRatio; got != 1 {
		t.Fatalf("out-of-range ratio accepted: %v", got)
	}
}

func histogramSampleCount(t *testing.T, gatherer prometheus.Gatherer, name string, labels map[string]string) uint64 {
	t.Helper()

	metrics, err := gatherer.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	for _, mf := range metrics {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.Metric {
			if matchLabels(m.GetLabel(), labels) && m.GetHistogram() != nil {
				return m.GetHistogram().GetSampleCount()
			}
		}
	}
	return 0
}

func matchLabels(got []*dto.LabelPair, want map[string]string) bool {
	matched := 0
	for _, lp := range got {
		if val, ok := want[lp.GetName()]; ok && val == lp.GetValue() {
			matched++
		}
	}
	return matched == len(want)
}

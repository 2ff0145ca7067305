package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"
)

func TestCounter(t *testing.T) {
	r := New()
	c := r.Counter("questions_total", "Questions served")
	c.Inc()
	c.Add(2)
	if c.Value() != 3 {
		t.Fatalf("expected 3, got %d", c.Value())
	}
	// Same name returns the same counter.
	if r.Counter("questions_total", "") != c {
		t.Fatal("counter not deduplicated by name")
	}
}

func TestGauge(t *testing.T) {
	r := New()
	g := r.Gauge("index_size", "Stored points")
	g.Set(10)
	g.Inc()
	g.Dec()
	if g.Value() != 10 {
		t.Fatalf("expected 10, got %d", g.Value())
	}
}

func TestHistogramBuckets(t *testing.T) {
	r := New()
	h := r.Histogram("latency_seconds", "Latency", []float64{0.1, 1, 10})
	h.Observe(0.05)
	h.Observe(0.5)
	h.Observe(5)
	h.Observe(50) // above all buckets, only counted in +Inf

	out := r.Render()
	for _, want := range []string{
		`latency_seconds_bucket{le="0.1"} 1`,
		`latency_seconds_bucket{le="1"} 2`,
		`latency_seconds_bucket{le="10"} 3`,
		`latency_seconds_bucket{le="+Inf"} 4`,
		`latency_seconds_count 4`,
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("render missing %q:\n%s", want, out)
		}
	}
}

func TestWithLabels(t *testing.T) {
	got := WithLabels("errors_total", "stage", "embed")
	if got != `errors_total{stage="embed"}` {
		t.Fatalf("unexpected labeled name: %s", got)
	}
	if WithLabels("plain") != "plain" {
		t.Fatal("no labels should return the name unchanged")
	}
	if WithLabels("odd", "only-key") != "odd" {
		t.Fatal("odd label pairs should be ignored")
	}
}

func TestRenderTypesAndHelp(t *testing.T) {
	r := New()
	r.Counter("a_total", "Counts a").Inc()
	r.Gauge("b", "Gauges b").Set(5)

	out := r.Render()
	for _, want := range []string{
		"# HELP a_total Counts a",
		"# TYPE a_total counter",
		"a_total 1",
		"# TYPE b gauge",
		"b 5",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("render missing %q:\n%s", want, out)
		}
	}
}

func TestLabeledCountersShareBase(t *testing.T) {
	r := New()
	r.Counter(WithLabels("errors_total", "stage", "embed"), "Errors").Inc()
	r.Counter(WithLabels("errors_total", "stage", "search"), "").Add(2)

	out := r.Render()
	if strings.Count(out, "# TYPE errors_total counter") != 1 {
		t.Fatalf("base metric should be declared once:\n%s", out)
	}
	if !strings.Contains(out, `errors_total{stage="embed"} 1`) ||
		!strings.Contains(out, `errors_total{stage="search"} 2`) {
		t.Fatalf("labeled entries missing:\n%s", out)
	}
}

func TestHandler(t *testing.T) {
	r := New()
	r.Counter("hits_total", "").Inc()

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	if rec.Code != 200 {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "hits_total 1") {
		t.Fatalf("body missing metric:\n%s", rec.Body.String())
	}
}

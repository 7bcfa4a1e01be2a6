package metrics

import (
	"bytes"
	"strings"
	"testing"
)

func TestRenderIncludesPipelineSeries(t *testing.T) {
	IncPipelineStarted()
	IncPipelineFailed("TIMEOUT")
	IncPipelineCompleted("mindmap")
	ObservePipelineDurationMs(150)

	out := Render()
	for _, want := range []string{
		"# TYPE pipeline_started_total counter",
		"# TYPE pipeline_failed_total counter",
		`pipeline_failed_total{code="TIMEOUT"}`,
		`pipeline_completed_total{kind="mindmap"}`,
		"# TYPE pipeline_duration_ms histogram",
		`pipeline_duration_ms_bucket{le="+Inf"}`,
		"pipeline_duration_ms_count",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in metrics output:\n%s", want, out)
		}
	}
}

func TestHistogramBucketsAreCumulative(t *testing.T) {
	h := newHistogram([]float64{10, 100})
	h.Observe(5)
	h.Observe(50)
	h.Observe(500)

	snap := h.Snapshot()
	if snap.count != 3 {
		t.Fatalf("expected count 3, got %d", snap.count)
	}
	if snap.counts[0] != 1 || snap.counts[1] != 1 {
		t.Fatalf("unexpected bucket counts: %v", snap.counts)
	}
	if snap.sum != 555 {
		t.Fatalf("expected sum 555, got %v", snap.sum)
	}
}

func TestRenderHistogramCumulative(t *testing.T) {
	h := newHistogram([]float64{10, 100})
	h.Observe(5)
	h.Observe(50)

	var buf bytes.Buffer
	writeHistogram(&buf, "x", "help", h.Snapshot())
	out := buf.String()
	if !strings.Contains(out, `x_bucket{le="10"} 1`) || !strings.Contains(out, `x_bucket{le="100"} 2`) {
		t.Fatalf("unexpected histogram output:\n%s", out)
	}
}

func TestFormatFloat(t *testing.T) {
	if got := formatFloat(250); got != "250" {
		t.Fatalf("formatFloat(250) = %q", got)
	}
	if got := formatFloat(0.5); got != "0.5" {
		t.Fatalf("formatFloat(0.5) = %q", got)
	}
}

func TestLabeledCounterSeparatesValues(t *testing.T) {
	c := newLabeledCounter("code")
	c.Inc("EXTRACTION_ERROR")
	c.Inc("EXTRACTION_ERROR")
	c.Inc("GENERATION_ERROR")
	c.Inc("")

	if got := c.Get("EXTRACTION_ERROR"); got != 2 {
		t.Fatalf("expected 2 extraction failures, got %d", got)
	}
	if got := c.Get("unknown"); got != 1 {
		t.Fatalf("expected empty code counted as unknown, got %d", got)
	}

	var buf bytes.Buffer
	writeLabeledCounter(&buf, "pipeline_failed_total", "help", c)
	out := buf.String()
	extraction := strings.Index(out, `pipeline_failed_total{code="EXTRACTION_ERROR"} 2`)
	generation := strings.Index(out, `pipeline_failed_total{code="GENERATION_ERROR"} 1`)
	if extraction < 0 || generation < 0 || extraction > generation {
		t.Fatalf("expected sorted labeled series:\n%s", out)
	}
}

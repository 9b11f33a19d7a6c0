package metrics

import (
	"fmt"
	"net/http"
	"strings"
)

// PrometheusExporter renders a Counters snapshot in Prometheus text format.
type PrometheusExporter struct {
	counters *Counters
}

// NewPrometheusExporter constructs an exporter over c.
func NewPrometheusExporter(c *Counters) *PrometheusExporter {
	return &PrometheusExporter{counters: c}
}

// Export returns the current counters in Prometheus text format.
func (e *PrometheusExporter) Export() string {
	s := e.counters.snapshot()
	var b strings.Builder

	writeStage := func(name string, attempts, successes, failures int64) {
		fmt.Fprintf(&b, "council_stage_attempts_total{stage=\"%s\"} %d\n", name, attempts)
		fmt.Fprintf(&b, "council_stage_results_total{stage=\"%s\",result=\"success\"} %d\n", name, successes)
		fmt.Fprintf(&b, "council_stage_results_total{stage=\"%s\",result=\"failure\"} %d\n", name, failures)
	}

	writeStage("stage1", s.stage1Attempts, s.stage1Successes, s.stage1Failures)
	writeStage("stage2", s.stage2Attempts, s.stage2Successes, s.stage2Failures)
	writeStage("stage3", s.stage3Attempts, s.stage3Successes, s.stage3Failures)
	writeStage("adjudication", s.adjudicationAttempts, s.adjudicationSuccesses, s.adjudicationFailures)

	fmt.Fprintf(&b, "council_adjudication_triggered_total %d\n", s.adjudicationTriggered)
	fmt.Fprintf(&b, "council_runs_total %d\n", s.runsTotal)

	var adjudicationRate float64
	if s.runsTotal > 0 {
		adjudicationRate = float64(s.adjudicationTriggered) / float64(s.runsTotal)
	}
	fmt.Fprintf(&b, "council_adjudication_rate %s\n", formatFloat(adjudicationRate))

	return b.String()
}

// Handler returns an HTTP handler serving the export at /metrics.
func (e *PrometheusExporter) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, e.Export())
	})
}

// formatFloat formats a float64 for Prometheus, trimming trailing zeros.
func formatFloat(f float64) string {
	if f == 0.0 {
		return "0"
	}
	s := fmt.Sprintf("%.4f", f)
	s = strings.TrimRight(s, "0")
	s = strings.TrimRight(s, ".")
	return s
}

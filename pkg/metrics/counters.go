// Package metrics tracks per-run deliberation statistics: attempts,
// successes, and failures per stage, plus how often adjudication fires.
// Grounded in the teacher's pkg/metrics.Metrics: a flat struct of
// atomically-updated int64 counters with a Prometheus text exporter,
// adapted here from "probes/attempts" counters to "stage" counters and a
// fixed stage key set instead of a single probe dimension.
package metrics

import "sync/atomic"

// Counters tracks deliberation-pipeline execution statistics. The zero
// value is ready to use; every field is only ever touched through atomic
// operations so one *Counters can be shared across concurrent runs.
type Counters struct {
	Stage1Attempts  int64
	Stage1Successes int64
	Stage1Failures  int64

	Stage2Attempts  int64
	Stage2Successes int64
	Stage2Failures  int64

	Stage3Attempts  int64
	Stage3Successes int64
	Stage3Failures  int64

	AdjudicationAttempts  int64
	AdjudicationSuccesses int64
	AdjudicationFailures  int64
	AdjudicationTriggered int64

	RunsTotal int64
}

// IncStageAttempt implements orchestrator.Metrics.
func (c *Counters) IncStageAttempt(stage string) {
	if p := c.attemptPtr(stage); p != nil {
		atomic.AddInt64(p, 1)
	}
}

// IncStageSuccess implements orchestrator.Metrics.
func (c *Counters) IncStageSuccess(stage string) {
	if p := c.successPtr(stage); p != nil {
		atomic.AddInt64(p, 1)
	}
}

// IncStageFailure implements orchestrator.Metrics.
func (c *Counters) IncStageFailure(stage string) {
	if p := c.failurePtr(stage); p != nil {
		atomic.AddInt64(p, 1)
	}
}

// IncAdjudicationTriggered implements orchestrator.Metrics.
func (c *Counters) IncAdjudicationTriggered() {
	atomic.AddInt64(&c.AdjudicationTriggered, 1)
}

// IncRun records the start of one deliberation run.
func (c *Counters) IncRun() {
	atomic.AddInt64(&c.RunsTotal, 1)
}

func (c *Counters) attemptPtr(stage string) *int64 {
	switch stage {
	case "stage1":
		return &c.Stage1Attempts
	case "stage2":
		return &c.Stage2Attempts
	case "stage3":
		return &c.Stage3Attempts
	case "adjudication":
		return &c.AdjudicationAttempts
	default:
		return nil
	}
}

func (c *Counters) successPtr(stage string) *int64 {
	switch stage {
	case "stage1":
		return &c.Stage1Successes
	case "stage2":
		return &c.Stage2Successes
	case "stage3":
		return &c.Stage3Successes
	case "adjudication":
		return &c.AdjudicationSuccesses
	default:
		return nil
	}
}

func (c *Counters) failurePtr(stage string) *int64 {
	switch stage {
	case "stage1":
		return &c.Stage1Failures
	case "stage2":
		return &c.Stage2Failures
	case "stage3":
		return &c.Stage3Failures
	case "adjudication":
		return &c.AdjudicationFailures
	default:
		return nil
	}
}

// snapshot is a copy of every counter, used only by the exporter. Each
// counter is loaded atomically on its own; the set as a whole is not read
// at a single instant, so counters may move between loads.
type snapshot struct {
	stage1Attempts, stage1Successes, stage1Failures                   int64
	stage2Attempts, stage2Successes, stage2Failures                   int64
	stage3Attempts, stage3Successes, stage3Failures                   int64
	adjudicationAttempts, adjudicationSuccesses, adjudicationFailures int64
	adjudicationTriggered, runsTotal                                  int64
}

func (c *Counters) snapshot() snapshot {
	return snapshot{
		stage1Attempts:  atomic.LoadInt64(&c.Stage1Attempts),
		stage1Successes: atomic.LoadInt64(&c.Stage1Successes),
		stage1Failures:  atomic.LoadInt64(&c.Stage1Failures),

		stage2Attempts:  atomic.LoadInt64(&c.Stage2Attempts),
		stage2Successes: atomic.LoadInt64(&c.Stage2Successes),
		stage2Failures:  atomic.LoadInt64(&c.Stage2Failures),

		stage3Attempts:  atomic.LoadInt64(&c.Stage3Attempts),
		stage3Successes: atomic.LoadInt64(&c.Stage3Successes),
		stage3Failures:  atomic.LoadInt64(&c.Stage3Failures),

		adjudicationAttempts:  atomic.LoadInt64(&c.AdjudicationAttempts),
		adjudicationSuccesses: atomic.LoadInt64(&c.AdjudicationSuccesses),
		adjudicationFailures:  atomic.LoadInt64(&c.AdjudicationFailures),
		adjudicationTriggered: atomic.LoadInt64(&c.AdjudicationTriggered),

		runsTotal: atomic.LoadInt64(&c.RunsTotal),
	}
}

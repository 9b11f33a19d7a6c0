package trace

import "github.com/modelcouncil/council/pkg/roles"

// AdjudicationRecord captures why adjudication fired and what it produced.
type AdjudicationRecord struct {
	TriggeredReason string     `json:"triggered_reason"`
	Result          *Judgement `json:"result,omitempty"`
}

// DecisionTrace is the persisted, user-visible record of one run's
// deliberation. It is built exactly once by the Orchestrator and never
// mutated after assembly.
type DecisionTrace struct {
	LabelToModel      map[Label]string      `json:"label_to_model"`
	AggregateRankings map[Label]float64     `json:"aggregate_rankings"`
	ModelRoles        map[string]roles.Name `json:"model_roles"`
	Errors            []ErrorRecord         `json:"errors"`

	Top1Consensus  Label   `json:"top1_consensus,omitempty"`
	EvidenceOkRate float64 `json:"evidence_ok_rate"`
	PartialRate    float64 `json:"partial_rate"`

	Adjudication *AdjudicationRecord `json:"adjudication,omitempty"`
}

// NewDecisionTrace returns a DecisionTrace with non-nil slice/map fields, so
// JSON serialization always emits `[]`/`{}` rather than `null` for an empty
// run, matching "empty, never absent" in the error handling design.
func NewDecisionTrace() DecisionTrace {
	return DecisionTrace{
		LabelToModel:      map[Label]string{},
		AggregateRankings: map[Label]float64{},
		ModelRoles:        map[string]roles.Name{},
		Errors:            []ErrorRecord{},
	}
}

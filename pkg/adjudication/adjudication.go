// Package adjudication implements the policy deciding whether the optional
// Stage-2.5 adjudicator re-judge fires, per spec.md §4.5: four independently
// OR'd triggers over the consensus.Result the ConsensusScorer already
// computed. It is pure: no network calls, no mutable shared state.
package adjudication

import "github.com/modelcouncil/council/pkg/consensus"

const (
	// Top1SupportThreshold is the minimum fraction of non-partial judges
	// that must agree on the same top-1 label before adjudication is
	// skipped on this ground.
	Top1SupportThreshold = 0.60
	// EvidenceOkRateThreshold is the minimum repo-wide evidence-ok rate
	// before adjudication is skipped on this ground.
	EvidenceOkRateThreshold = 0.75
	// PartialRateThreshold is the maximum fraction of partial judges
	// tolerated before adjudication fires.
	PartialRateThreshold = 0.10
)

// Reason names which OR'd condition triggered adjudication, matching the
// literal strings spec.md's end-to-end scenarios assert against
// (e.g. meta.adjudication.triggered_reason == "top1_support<0.60").
type Reason string

const (
	ReasonNone              Reason = ""
	ReasonTop1Support       Reason = "top1_support<0.60"
	ReasonEvidenceOkRate    Reason = "evidence_ok_rate<0.75"
	ReasonPartialRate       Reason = "partial_rate>0.10"
	ReasonDivergenceExtreme Reason = "divergence_extreme"
)

// Decision is the outcome of evaluating the adjudication policy.
type Decision struct {
	Triggered bool
	Reason    Reason
}

// Decide evaluates the four triggers in spec.md's listed order and reports
// the first one that fires. An undefined top1 consensus (no non-partial
// judges at all) is treated as 0 support, which always trips the first
// trigger — consistent with "weak consensus" covering the no-consensus case.
func Decide(res consensus.Result) Decision {
	support := 0.0
	if res.Top1Defined {
		support = res.Top1Support[res.Top1Consensus]
	}

	switch {
	case support < Top1SupportThreshold:
		return Decision{Triggered: true, Reason: ReasonTop1Support}
	case res.EvidenceOkRate < EvidenceOkRateThreshold:
		return Decision{Triggered: true, Reason: ReasonEvidenceOkRate}
	case res.PartialRate > PartialRateThreshold:
		return Decision{Triggered: true, Reason: ReasonPartialRate}
	case res.DivergenceExtreme:
		return Decision{Triggered: true, Reason: ReasonDivergenceExtreme}
	default:
		return Decision{}
	}
}

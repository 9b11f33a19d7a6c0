package consensus

import (
	"testing"

	"github.com/modelcouncil/council/pkg/trace"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func threeLabels() trace.LabelMap {
	return trace.NewLabelMap([]string{"model-a", "model-b", "model-c"})
}

// judgement builds a non-partial Judgement with the given ranking and a
// critique per ranked label whose evidence flag is evidenceOK.
func judgement(ranking []trace.Label, evidenceOK bool) trace.Judgement {
	critiques := make(map[trace.Label]trace.Critique, len(ranking))
	for _, l := range ranking {
		critiques[l] = trace.Critique{Strength: "s", Flaw: "f", EvidenceOK: evidenceOK}
	}
	return trace.Judgement{ParsedRanking: ranking, PerLabelCritiques: critiques}
}

func partialJudgement(reason trace.PartialReason) trace.Judgement {
	return trace.Judgement{
		Partial:           true,
		PartialReason:     reason,
		ParsedRanking:     []trace.Label{},
		PerLabelCritiques: map[trace.Label]trace.Critique{},
	}
}

func TestScore_NoJudgements(t *testing.T) {
	res := Score(nil, threeLabels())

	assert.False(t, res.Top1Defined)
	assert.Equal(t, 0, res.NonPartialCount)
	assert.Equal(t, 0.0, res.PartialRate)
	assert.Equal(t, 0.0, res.EvidenceOkRate)
	// Label keys exist even with no votes, so downstream consumers can range
	// over the full label set without nil checks.
	assert.Len(t, res.Top1Support, 3)
	assert.Len(t, res.AggregateRank, 3)
}

func TestScore_AllPartial(t *testing.T) {
	judgements := []trace.Judgement{
		partialJudgement(trace.ReasonPlaceholder),
		partialJudgement(trace.ReasonRankingInvalid),
	}

	res := Score(judgements, threeLabels())

	assert.False(t, res.Top1Defined)
	assert.Equal(t, 1.0, res.PartialRate)
	assert.Equal(t, 0, res.NonPartialCount)
}

func TestScore_MajorityTop1(t *testing.T) {
	judgements := []trace.Judgement{
		judgement([]trace.Label{"A", "B", "C"}, true),
		judgement([]trace.Label{"A", "C", "B"}, true),
		judgement([]trace.Label{"B", "A", "C"}, true),
	}

	res := Score(judgements, threeLabels())

	require.True(t, res.Top1Defined)
	assert.Equal(t, trace.Label("A"), res.Top1Consensus)
	assert.InDelta(t, 2.0/3.0, res.Top1Support["A"], 1e-9)
	assert.InDelta(t, 1.0/3.0, res.Top1Support["B"], 1e-9)
	assert.Equal(t, 0.0, res.Top1Support["C"])
	assert.False(t, res.DivergenceExtreme)
	assert.Equal(t, 3, res.NonPartialCount)
}

func TestScore_Top1SupportSumsToOne(t *testing.T) {
	judgements := []trace.Judgement{
		judgement([]trace.Label{"A", "B", "C"}, true),
		judgement([]trace.Label{"B", "A", "C"}, true),
		judgement([]trace.Label{"C", "B", "A"}, true),
		judgement([]trace.Label{"A", "C", "B"}, true),
	}

	res := Score(judgements, threeLabels())

	sum := 0.0
	for _, s := range res.Top1Support {
		sum += s
	}
	assert.InDelta(t, 1.0, sum, 1e-9)
}

func TestScore_AggregateRank(t *testing.T) {
	judgements := []trace.Judgement{
		judgement([]trace.Label{"A", "B", "C"}, true),
		judgement([]trace.Label{"B", "A", "C"}, true),
	}

	res := Score(judgements, threeLabels())

	// A sits at positions 1 and 2, B at 2 and 1, C at 3 and 3.
	assert.InDelta(t, 1.5, res.AggregateRank["A"], 1e-9)
	assert.InDelta(t, 1.5, res.AggregateRank["B"], 1e-9)
	assert.InDelta(t, 3.0, res.AggregateRank["C"], 1e-9)
}

func TestScore_TieBreaksLexicographically(t *testing.T) {
	judgements := []trace.Judgement{
		judgement([]trace.Label{"B", "A", "C"}, true),
		judgement([]trace.Label{"A", "B", "C"}, true),
	}

	res := Score(judgements, threeLabels())

	require.True(t, res.Top1Defined)
	assert.Equal(t, trace.Label("A"), res.Top1Consensus)
}

func TestScore_DivergenceExtreme(t *testing.T) {
	judgements := []trace.Judgement{
		judgement([]trace.Label{"A", "B", "C"}, true),
		judgement([]trace.Label{"B", "C", "A"}, true),
		judgement([]trace.Label{"C", "A", "B"}, true),
	}

	res := Score(judgements, threeLabels())

	assert.True(t, res.DivergenceExtreme)
}

func TestScore_PartialExcludedFromConsensusButCounted(t *testing.T) {
	judgements := []trace.Judgement{
		judgement([]trace.Label{"B", "A", "C"}, true),
		judgement([]trace.Label{"B", "C", "A"}, true),
		partialJudgement(trace.ReasonPlaceholder),
	}

	res := Score(judgements, threeLabels())

	require.True(t, res.Top1Defined)
	assert.Equal(t, trace.Label("B"), res.Top1Consensus)
	// Support is over non-partial judges only; the rate over all three.
	assert.Equal(t, 1.0, res.Top1Support["B"])
	assert.InDelta(t, 1.0/3.0, res.PartialRate, 1e-9)
	assert.Equal(t, 2, res.NonPartialCount)
}

func TestScore_EvidenceOkRateAveragesAllJudgements(t *testing.T) {
	judgements := []trace.Judgement{
		judgement([]trace.Label{"A", "B", "C"}, true),
		judgement([]trace.Label{"A", "B", "C"}, false),
	}

	res := Score(judgements, threeLabels())

	assert.InDelta(t, 0.5, res.EvidenceOkRate, 1e-9)
}

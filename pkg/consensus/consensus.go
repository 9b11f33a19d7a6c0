// Package consensus computes the aggregate metrics the adjudication policy
// and the Chairman prompt both depend on, from the set of Stage-2
// Judgements. It is pure: no network calls, no mutable shared state.
package consensus

import (
	"sort"

	"github.com/modelcouncil/council/pkg/trace"
)

// Result is the consensus view over one Stage-2 round.
type Result struct {
	Top1Consensus     trace.Label
	Top1Defined       bool
	Top1Support       map[trace.Label]float64
	AggregateRank     map[trace.Label]float64
	PartialRate       float64
	EvidenceOkRate    float64
	DivergenceExtreme bool
	NonPartialCount   int
}

// Score computes the consensus Result over judgements for the labels in lm.
// Partial judgements are excluded from top1Consensus/top1Support/
// aggregateRank but still count toward partialRate and evidenceOkRate,
// which are defined over all judgements.
func Score(judgements []trace.Judgement, lm trace.LabelMap) Result {
	labels := lm.SortedLabels()

	res := Result{
		Top1Support:   make(map[trace.Label]float64, len(labels)),
		AggregateRank: make(map[trace.Label]float64, len(labels)),
	}
	for _, l := range labels {
		res.Top1Support[l] = 0
		res.AggregateRank[l] = 0
	}

	if len(judgements) == 0 {
		return res
	}

	partialCount := 0
	var evidenceSum float64

	nonPartial := make([]trace.Judgement, 0, len(judgements))
	for _, j := range judgements {
		if j.Partial {
			partialCount++
		} else {
			nonPartial = append(nonPartial, j)
		}
		evidenceSum += j.EvidenceOkRate()
	}

	res.PartialRate = float64(partialCount) / float64(len(judgements))
	res.EvidenceOkRate = evidenceSum / float64(len(judgements))
	res.NonPartialCount = len(nonPartial)

	if len(nonPartial) == 0 {
		return res
	}

	top1Counts := make(map[trace.Label]int, len(labels))
	positionSums := make(map[trace.Label]int, len(labels))
	positionCounts := make(map[trace.Label]int, len(labels))
	distinctTop1 := make(map[trace.Label]bool)

	for _, j := range nonPartial {
		if len(j.ParsedRanking) == 0 {
			continue
		}
		top1 := j.ParsedRanking[0]
		top1Counts[top1]++
		distinctTop1[top1] = true
		for pos, label := range j.ParsedRanking {
			positionSums[label] += pos + 1
			positionCounts[label]++
		}
	}

	for _, l := range labels {
		if positionCounts[l] > 0 {
			res.AggregateRank[l] = float64(positionSums[l]) / float64(positionCounts[l])
		}
		res.Top1Support[l] = float64(top1Counts[l]) / float64(len(nonPartial))
	}

	res.Top1Consensus, res.Top1Defined = argmaxLexicographic(top1Counts, labels)
	res.DivergenceExtreme = len(distinctTop1) == len(nonPartial)

	return res
}

// argmaxLexicographic returns the label with the highest count, breaking
// ties by lexicographic label order. It reports false if no label has a
// positive count.
func argmaxLexicographic(counts map[trace.Label]int, labels []trace.Label) (trace.Label, bool) {
	ordered := make([]trace.Label, len(labels))
	copy(ordered, labels)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i] < ordered[j] })

	var best trace.Label
	bestCount := -1
	found := false
	for _, l := range ordered {
		c := counts[l]
		if c > bestCount {
			bestCount = c
			best = l
			found = true
		}
	}
	if !found || bestCount <= 0 {
		return "", false
	}
	return best, true
}

package ranking

import (
	"testing"

	"github.com/modelcouncil/council/pkg/trace"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stage1Texts() map[trace.Label]string {
	return map[trace.Label]string{
		"A": "uses a `context.Context` deadline and returns early on cancellation",
		"B": "retries forever with no backoff and ignores the \"rate limited\" error",
		"C": "validates input but never closes the response body",
		"D": "is minimal and has no error handling at all",
	}
}

func lm4() trace.LabelMap {
	return trace.NewLabelMap([]string{"m-a", "m-b", "m-c", "m-d"})
}

func TestParse_WellFormedResponse(t *testing.T) {
	raw := "Response A: Strength: uses `context.Context` deadline; Flaw: none found\n" +
		"Response B: Strength: retries on failure; Flaw: ignores \"rate limited\" error\n" +
		"Response C: Strength: validates input; Flaw: never closes response body\n" +
		"Response D: Strength: simple; Flaw: no error handling at all\n" +
		"FINAL_RANKING: Response A, Response C, Response B, Response D"

	j := Parse(raw, lm4(), stage1Texts())

	require.False(t, j.Partial)
	assert.False(t, j.FormatFixUsed)
	assert.False(t, j.Coerced)
	assert.Equal(t, []trace.Label{"A", "C", "B", "D"}, j.ParsedRanking)
	assert.True(t, j.PerLabelCritiques["A"].EvidenceOK)
}

// Scenario 1 from the end-to-end suite: the judge concatenates all four
// critiques onto a single physical line before a valid FINAL_RANKING line.
func TestParse_FormatFix_ConcatenatedCritiques(t *testing.T) {
	raw := "Response A: Strength: uses `context.Context` deadline; Flaw: none found " +
		"Response B: Strength: retries on failure; Flaw: ignores \"rate limited\" error " +
		"Response C: Strength: validates input; Flaw: never closes response body " +
		"Response D: Strength: simple; Flaw: no error handling at all\n" +
		"FINAL_RANKING: Response A, Response C, Response B, Response D"

	j := Parse(raw, lm4(), stage1Texts())

	require.False(t, j.Partial)
	assert.True(t, j.FormatFixUsed)
	assert.Equal(t, []trace.Label{"A", "C", "B", "D"}, j.ParsedRanking)
	for _, label := range []trace.Label{"A", "B", "C", "D"} {
		c, ok := j.PerLabelCritiques[label]
		require.True(t, ok, "missing critique for %s", label)
		assert.NotEmpty(t, c.Strength)
		assert.NotEmpty(t, c.Flaw)
	}
}

// A record wrapped across extra physical lines should also trigger the
// format-fix path and merge back into one record per label.
func TestParse_FormatFix_WrappedAcrossLines(t *testing.T) {
	raw := "Response A: Strength: uses `context.Context`\n" +
		"deadline; Flaw: none found\n" +
		"Response B: Strength: retries on failure; Flaw: ignores \"rate limited\" error\n" +
		"Response C: Strength: validates input; Flaw: never closes response body\n" +
		"Response D: Strength: simple; Flaw: no error handling at all\n" +
		"FINAL_RANKING: Response A, Response C, Response B, Response D"

	j := Parse(raw, lm4(), stage1Texts())

	require.False(t, j.Partial)
	assert.True(t, j.FormatFixUsed)
	assert.Equal(t, []trace.Label{"A", "C", "B", "D"}, j.ParsedRanking)
	assert.Contains(t, j.PerLabelCritiques["A"].Strength, "context.Context")
}

// Scenario 2: more than a quarter of critiques are placeholder sentinels.
func TestParse_PlaceholderMajorityMarksPartial(t *testing.T) {
	raw := "Response A: Strength: insufficient signal in text; Flaw: insufficient signal in text\n" +
		"Response B: Strength: insufficient signal in text; Flaw: insufficient signal in text\n" +
		"Response C: Strength: validates input; Flaw: never closes response body\n" +
		"Response D: Strength: simple; Flaw: no error handling at all\n" +
		"FINAL_RANKING: Response A, Response C, Response B, Response D"

	j := Parse(raw, lm4(), stage1Texts())

	assert.True(t, j.Partial)
	assert.Equal(t, trace.ReasonPlaceholder, j.PartialReason)
	assert.True(t, j.PerLabelCritiques["A"].Placeholder)
	assert.True(t, j.PerLabelCritiques["B"].Placeholder)
}

func TestParse_TieMarkerRejectsRanking(t *testing.T) {
	raw := "Response A: Strength: x; Flaw: y\n" +
		"Response B: Strength: x; Flaw: y\n" +
		"Response C: Strength: x; Flaw: y\n" +
		"Response D: Strength: x; Flaw: y\n" +
		"FINAL_RANKING: Response A = Response B, Response C, Response D"

	j := Parse(raw, lm4(), stage1Texts())

	assert.True(t, j.Partial)
	assert.Equal(t, trace.ReasonRankingInvalid, j.PartialReason)
	assert.Empty(t, j.ParsedRanking)
}

func TestParse_CoercionFillsMissingLabel(t *testing.T) {
	raw := "Response A: Strength: x; Flaw: y\n" +
		"Response B: Strength: x; Flaw: y\n" +
		"Response C: Strength: x; Flaw: y\n" +
		"Response D: Strength: x; Flaw: y\n" +
		"FINAL_RANKING: Response A, Response B, Response C"

	j := Parse(raw, lm4(), stage1Texts())

	require.False(t, j.Partial)
	assert.True(t, j.Coerced)
	assert.True(t, lm4().IsPermutationOf(j.ParsedRanking))
	assert.Equal(t, trace.Label("D"), j.ParsedRanking[len(j.ParsedRanking)-1])
}

func TestParse_CoercionDropsUnknownAndDuplicateLabels(t *testing.T) {
	raw := "Response A: Strength: x; Flaw: y\n" +
		"Response B: Strength: x; Flaw: y\n" +
		"Response C: Strength: x; Flaw: y\n" +
		"Response D: Strength: x; Flaw: y\n" +
		"FINAL_RANKING: Response A, Response A, Response Z, Response B, Response C, Response D"

	j := Parse(raw, lm4(), stage1Texts())

	require.False(t, j.Partial)
	assert.True(t, j.Coerced)
	assert.True(t, lm4().IsPermutationOf(j.ParsedRanking))
}

// Scenario 6: evidence tokens that don't appear in the candidate's own
// Stage-1 text must not count as verified.
func TestParse_EvidenceFailure_TokenNotInSource(t *testing.T) {
	raw := "Response A: Strength: calls `fictionalFunctionName` helper; Flaw: none found\n" +
		"Response B: Strength: retries on failure; Flaw: ignores \"rate limited\" error\n" +
		"Response C: Strength: validates input; Flaw: never closes response body\n" +
		"Response D: Strength: simple; Flaw: no error handling at all\n" +
		"FINAL_RANKING: Response A, Response C, Response B, Response D"

	j := Parse(raw, lm4(), stage1Texts())

	require.False(t, j.Partial)
	assert.False(t, j.PerLabelCritiques["A"].EvidenceOK)
	assert.True(t, j.PerLabelCritiques["B"].EvidenceOK)
}

func TestParse_EmptyTextIsPartial(t *testing.T) {
	j := Parse("   \n\n  ", lm4(), stage1Texts())

	assert.True(t, j.Partial)
	assert.Equal(t, trace.ReasonEmptyText, j.PartialReason)
}

func TestParse_UnrecoverableLineCountIsPartial(t *testing.T) {
	raw := "this is just prose with no markers at all and nothing to parse"

	j := Parse(raw, lm4(), stage1Texts())

	assert.True(t, j.Partial)
	assert.Equal(t, trace.ReasonLineCount, j.PartialReason)
}

func TestParse_NonPartialRankingIsAlwaysPermutation(t *testing.T) {
	cases := []string{
		"Response A, Response B, Response C, Response D",
		"Response D, Response C, Response B, Response A",
		"Response B, Response A, Response D, Response C",
	}
	for _, ranking := range cases {
		raw := "Response A: Strength: x; Flaw: y\n" +
			"Response B: Strength: x; Flaw: y\n" +
			"Response C: Strength: x; Flaw: y\n" +
			"Response D: Strength: x; Flaw: y\n" +
			"FINAL_RANKING: " + ranking

		j := Parse(raw, lm4(), stage1Texts())
		if !j.Partial {
			assert.True(t, lm4().IsPermutationOf(j.ParsedRanking), "ranking %q not a permutation", ranking)
		}
	}
}

func TestExtractEvidenceTokens_OrderAndDedup(t *testing.T) {
	tokens := extractEvidenceTokens("uses `contextDeadline` and \"rate limited\" again, `contextDeadline`")
	require.GreaterOrEqual(t, len(tokens), 2)
	assert.Equal(t, "contextDeadline", tokens[0])
	assert.Equal(t, "rate limited", tokens[1])

	seen := map[string]bool{}
	for _, tok := range tokens {
		assert.False(t, seen[tok], "duplicate token %q", tok)
		seen[tok] = true
	}
}

func TestExtractEvidenceTokens_FiltersShortIdentifiers(t *testing.T) {
	tokens := extractEvidenceTokens("the nil ptr err has len 3 and foo")
	for _, tok := range tokens {
		assert.GreaterOrEqual(t, len(tok), MinEvidenceTokenLength)
	}
}

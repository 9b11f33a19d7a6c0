// Package ranking implements the Stage-2 contract parser: a strict 5-line
// critique format in, a trace.Judgement out. It is pure and non-blocking,
// the hardest local algorithm in the pipeline, and deliberately forgiving of
// near-miss formatting before giving up and marking a judge partial.
package ranking

import (
	"regexp"
	"strings"

	"github.com/modelcouncil/council/pkg/trace"
)

var (
	recordMarkerPattern  = regexp.MustCompile(`(?i)(response\s+[A-Za-z]+\s*:|final_ranking\s*:)`)
	responseLinePattern  = regexp.MustCompile(`(?i)^response\s+([A-Za-z]+)\s*:\s*(.*)$`)
	finalRankingPattern  = regexp.MustCompile(`(?i)^final_ranking\s*:\s*(.*)$`)
	responseTokenPattern = regexp.MustCompile(`(?i)response\s+([A-Za-z]+)`)
	strengthFlawPattern  = regexp.MustCompile(`(?is)strength\s*:\s*(.*?)\s*;\s*flaw\s*:\s*(.*)$`)
	strengthOnlyPattern  = regexp.MustCompile(`(?is)strength\s*:\s*(.*)$`)
	flawOnlyPattern      = regexp.MustCompile(`(?is)flaw\s*:\s*(.*)$`)
)

const placeholderSentinel = "insufficient signal in text"

// Parse turns one judge's raw output into a trace.Judgement. lm supplies the
// expected label set in the run's canonical order; stage1Texts supplies
// each label's Stage-1 text for the evidence rule. The returned Judgement
// has its ModelID left zero-valued: the caller fills it in.
func Parse(rawText string, lm trace.LabelMap, stage1Texts map[trace.Label]string) trace.Judgement {
	j := trace.Judgement{
		RawText:           rawText,
		PerLabelCritiques: map[trace.Label]trace.Critique{},
	}

	lines := normalizeLines(rawText)
	if len(lines) == 0 {
		j.Partial = true
		j.PartialReason = trace.ReasonEmptyText
		return j
	}

	labels := lm.SortedLabels()
	expected := len(labels) + 1

	var finalLine string
	var critiqueLines []string
	wellFormed := len(lines) == expected && finalRankingPattern.MatchString(lines[expected-1])
	if wellFormed {
		finalLine = lines[expected-1]
		critiqueLines = lines[:expected-1]
	} else {
		fixedCritiques, fixedFinal, ok := splitRecords(rawText, len(labels))
		if !ok {
			j.Partial = true
			j.PartialReason = trace.ReasonLineCount
			return j
		}
		critiqueLines = fixedCritiques
		finalLine = fixedFinal
		j.FormatFixUsed = true
	}

	placeholderCount := 0
	for i, label := range labels {
		var line string
		if i < len(critiqueLines) {
			line = critiqueLines[i]
		}
		critique, isPlaceholder := parseCritiqueLine(line, label, stage1Texts[label])
		j.PerLabelCritiques[label] = critique
		if isPlaceholder {
			placeholderCount++
		}
	}

	if len(labels) > 0 && float64(placeholderCount)/float64(len(labels)) > 0.25 {
		j.Partial = true
		j.PartialReason = trace.ReasonPlaceholder
	}

	j.RankingText = finalLine
	ranking, coerced, rankingOK := parseFinalRanking(finalLine, lm)
	if !rankingOK {
		j.Partial = true
		if j.PartialReason == "" {
			j.PartialReason = trace.ReasonRankingInvalid
		}
		j.ParsedRanking = []trace.Label{}
		return j
	}
	j.Coerced = coerced
	j.ParsedRanking = ranking

	return j
}

// normalizeLines trims whitespace from each line and drops empty lines.
func normalizeLines(text string) []string {
	rawLines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	lines := make([]string, 0, len(rawLines))
	for _, line := range rawLines {
		trimmed := strings.TrimSpace(line)
		if trimmed != "" {
			lines = append(lines, trimmed)
		}
	}
	return lines
}

// splitRecords repairs a malformed judge response by flattening the raw
// text into one whitespace-normalized line and locating every "Response
// <label>:" or "FINAL_RANKING:" marker within it, wherever it falls. Records
// run from one marker's start to the next, which merges content that was
// wrapped across extra physical lines and, unlike a line-oriented grouping,
// also splits content that a judge concatenated onto a single physical
// line with multiple embedded markers. Leading prose before the first
// marker is discarded, and any content after the last FINAL_RANKING marker
// is truncated. It succeeds only if exactly labelCount+1 records remain and
// the last one is the FINAL_RANKING record.
func splitRecords(rawText string, labelCount int) (critiqueLines []string, finalLine string, ok bool) {
	flat := strings.Join(strings.Fields(rawText), " ")
	markers := recordMarkerPattern.FindAllStringIndex(flat, -1)
	if len(markers) == 0 {
		return nil, "", false
	}

	type record struct {
		text    string
		isFinal bool
	}
	records := make([]record, 0, len(markers))
	for i, m := range markers {
		start := m[0]
		end := len(flat)
		if i+1 < len(markers) {
			end = markers[i+1][0]
		}
		text := strings.TrimSpace(flat[start:end])
		records = append(records, record{
			text:    text,
			isFinal: finalRankingPattern.MatchString(text),
		})
	}

	lastFinal := -1
	for i, r := range records {
		if r.isFinal {
			lastFinal = i
		}
	}
	if lastFinal == -1 {
		return nil, "", false
	}
	records = records[:lastFinal+1]

	if len(records) != labelCount+1 {
		return nil, "", false
	}

	for _, r := range records[:len(records)-1] {
		critiqueLines = append(critiqueLines, r.text)
	}
	return critiqueLines, records[len(records)-1].text, true
}

// parseCritiqueLine extracts Strength/Flaw text for one label's critique
// line, detects the placeholder sentinel, and records evidence-rule
// results against that label's Stage-1 text.
func parseCritiqueLine(line string, label trace.Label, stage1Text string) (trace.Critique, bool) {
	var strength, flaw string

	body := line
	if m := responseLinePattern.FindStringSubmatch(line); m != nil {
		body = m[2]
	}

	switch {
	case strengthFlawPattern.MatchString(body):
		m := strengthFlawPattern.FindStringSubmatch(body)
		strength, flaw = strings.TrimSpace(m[1]), strings.TrimSpace(m[2])
	case strengthOnlyPattern.MatchString(body):
		m := strengthOnlyPattern.FindStringSubmatch(body)
		strength = strings.TrimSpace(m[1])
	case flawOnlyPattern.MatchString(body):
		m := flawOnlyPattern.FindStringSubmatch(body)
		flaw = strings.TrimSpace(m[1])
	}

	isPlaceholder := strings.Contains(strings.ToLower(strength), placeholderSentinel) ||
		strings.Contains(strings.ToLower(flaw), placeholderSentinel) ||
		strings.Contains(strings.ToLower(body), placeholderSentinel)

	critique := trace.Critique{
		Strength:    strength,
		Flaw:        flaw,
		Placeholder: isPlaceholder,
	}

	if isPlaceholder {
		return critique, true
	}

	tokens := extractEvidenceTokens(strength + " " + flaw)
	normalizedSource := normalizeWhitespace(stage1Text)
	var retained []string
	for _, tok := range tokens {
		if strings.Contains(normalizedSource, normalizeWhitespace(tok)) {
			retained = append(retained, tok)
		}
	}
	critique.EvidenceTokens = retained
	critique.EvidenceOK = len(retained) > 0

	return critique, false
}

func normalizeWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// parseFinalRanking extracts the ordered label list from a FINAL_RANKING
// line, rejecting any line that contains a tie marker, then validates it is
// a permutation of lm's labels. If not, it attempts one coercion pass.
func parseFinalRanking(finalLine string, lm trace.LabelMap) (ranking []trace.Label, coerced bool, ok bool) {
	m := finalRankingPattern.FindStringSubmatch(finalLine)
	body := finalLine
	if m != nil {
		body = m[1]
	}

	if strings.Contains(body, "=") {
		return nil, false, false
	}

	tokenMatches := responseTokenPattern.FindAllStringSubmatch(body, -1)
	seen := map[trace.Label]bool{}
	var candidate []trace.Label
	for _, tm := range tokenMatches {
		label := trace.Label(strings.ToUpper(tm[1]))
		if seen[label] {
			continue
		}
		seen[label] = true
		candidate = append(candidate, label)
	}

	if lm.IsPermutationOf(candidate) {
		return candidate, false, true
	}

	fixed := coerce(candidate, lm)
	if lm.IsPermutationOf(fixed) {
		return fixed, true, true
	}
	return nil, false, false
}

// coerce drops labels unknown to lm and duplicates, then appends any
// missing labels in alphabetical order.
func coerce(candidate []trace.Label, lm trace.LabelMap) []trace.Label {
	validSet := map[trace.Label]bool{}
	for _, l := range lm.Labels() {
		validSet[l] = true
	}

	seen := map[trace.Label]bool{}
	var cleaned []trace.Label
	for _, l := range candidate {
		if !validSet[l] || seen[l] {
			continue
		}
		seen[l] = true
		cleaned = append(cleaned, l)
	}

	for _, l := range lm.SortedLabels() {
		if !seen[l] {
			cleaned = append(cleaned, l)
			seen[l] = true
		}
	}

	return cleaned
}

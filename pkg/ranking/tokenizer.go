package ranking

import "regexp"

// MinEvidenceTokenLength is the shortest identifier-like token the evidence
// tokenizer will extract as a bare identifier. Four characters filters out
// connective words ("the", "and", "not"); it also drops three-character
// identifiers such as "nil", which count only when backtick- or
// double-quoted, while four-character ones such as "JSON" are kept. The
// threshold is a heuristic, not a proven value.
const MinEvidenceTokenLength = 4

var (
	backtickSpanPattern = regexp.MustCompile("`([^`]+)`")
	quotedSpanPattern   = regexp.MustCompile(`"([^"]+)"`)
	identifierPattern   = regexp.MustCompile(`\b[A-Za-z_][A-Za-z0-9_]*\b`)
)

// extractEvidenceTokens pulls candidate evidence tokens from a critique's
// text: backtick-quoted spans, double-quoted spans, and identifier-like
// tokens of at least MinEvidenceTokenLength characters. Order is
// deterministic (backticks, then quotes, then bare identifiers) and
// duplicates are removed.
func extractEvidenceTokens(text string) []string {
	seen := make(map[string]bool)
	var tokens []string

	add := func(tok string) {
		if tok == "" || seen[tok] {
			return
		}
		seen[tok] = true
		tokens = append(tokens, tok)
	}

	for _, m := range backtickSpanPattern.FindAllStringSubmatch(text, -1) {
		add(m[1])
	}
	for _, m := range quotedSpanPattern.FindAllStringSubmatch(text, -1) {
		add(m[1])
	}
	for _, m := range identifierPattern.FindAllString(text, -1) {
		if len(m) >= MinEvidenceTokenLength {
			add(m)
		}
	}

	return tokens
}

package orchestrator

import (
	"encoding/json"
	"strings"

	"github.com/modelcouncil/council/pkg/trace"
)

// parseStage3Output minimally parses the Chairman's response: it looks for
// a trailing JSON object (typically fenced; extractTrailingJSON strips the
// fence markers) describing base_label/contributors/rejections,
// and falls back to treating the whole response as plain text rooted at
// fallbackBase when no such object is present or it doesn't parse.
func parseStage3Output(modelID, text string, fallbackBase trace.Label, validLabels map[trace.Label]bool) trace.Stage3Result {
	res := trace.Stage3Result{
		ModelID:      modelID,
		Text:         text,
		BaseLabel:    fallbackBase,
		Contributors: []trace.Contribution{},
		Rejections:   []trace.Rejection{},
	}

	jsonStr, rest, ok := extractTrailingJSON(text)
	if !ok {
		return res
	}

	var parsed struct {
		BaseLabel    string               `json:"base_label"`
		Contributors []trace.Contribution `json:"contributors"`
		Rejections   []trace.Rejection    `json:"rejections"`
	}
	if err := json.Unmarshal([]byte(jsonStr), &parsed); err != nil {
		return res
	}

	if parsed.BaseLabel != "" && validLabels[trace.Label(parsed.BaseLabel)] {
		res.BaseLabel = trace.Label(parsed.BaseLabel)
	}
	res.Text = rest
	if parsed.Contributors != nil {
		res.Contributors = parsed.Contributors
	}
	if parsed.Rejections != nil {
		res.Rejections = parsed.Rejections
	}
	return res
}

// extractTrailingJSON finds the last brace-balanced {...} object at the end
// of text (after stripping a trailing markdown code fence, if present) and
// returns it along with whatever precedes it.
func extractTrailingJSON(text string) (jsonStr string, rest string, ok bool) {
	trimmed := strings.TrimSpace(text)
	trimmed = strings.TrimSuffix(trimmed, "```")
	trimmed = strings.TrimRight(trimmed, " \t\n\r")

	if !strings.HasSuffix(trimmed, "}") {
		return "", text, false
	}

	depth := 0
	for i := len(trimmed) - 1; i >= 0; i-- {
		switch trimmed[i] {
		case '}':
			depth++
		case '{':
			depth--
		}
		if depth == 0 {
			candidate := trimmed[i:]
			before := trimmed[:i]
			before = strings.TrimRight(before, " \t\n\r")
			before = strings.TrimSuffix(before, "```json")
			before = strings.TrimSuffix(before, "```")
			before = strings.TrimRight(before, " \t\n\r")
			return candidate, before, true
		}
	}
	return "", text, false
}

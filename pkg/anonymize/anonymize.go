// Package anonymize strips model identity from Stage-1 answers before they
// are shown to a judge. It is pure and non-blocking: no network calls, no
// shared mutable state.
package anonymize

import "github.com/modelcouncil/council/pkg/trace"

// PublicAnswer is everything a judge prompt is allowed to see: a label and
// the candidate's text. It deliberately has no ModelID field.
type PublicAnswer struct {
	Label trace.Label
	Text  string
}

// BuildLabelMap assigns labels to non-errored Stage-1 answers in their
// config index order, skipping any answer whose Error is set.
func BuildLabelMap(answers []trace.Stage1Answer) trace.LabelMap {
	surviving := make([]string, 0, len(answers))
	for _, a := range answers {
		if !a.Failed() {
			surviving = append(surviving, a.ModelID)
		}
	}
	return trace.NewLabelMap(surviving)
}

// ToPublic renders the anonymized view of the surviving answers for
// embedding into a Stage-2 prompt: label and text only, in label order.
// The caller must not additionally embed answers' ModelID anywhere in the
// same prompt — that is the orchestrator's responsibility to avoid, not
// this function's, since it never receives a model id to leak in the
// first place.
func ToPublic(lm trace.LabelMap, answers []trace.Stage1Answer) []PublicAnswer {
	byModel := make(map[string]trace.Stage1Answer, len(answers))
	for _, a := range answers {
		if !a.Failed() {
			byModel[a.ModelID] = a
		}
	}

	labels := lm.Labels()
	out := make([]PublicAnswer, 0, len(labels))
	for _, label := range labels {
		modelID, ok := lm.ModelFor(label)
		if !ok {
			continue
		}
		answer, ok := byModel[modelID]
		if !ok {
			continue
		}
		out = append(out, PublicAnswer{Label: label, Text: answer.Text})
	}
	return out
}

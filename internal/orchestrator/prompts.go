// Package orchestrator sequences the deliberation pipeline: Stage 1
// generation, Stage 2 anonymized judging, optional adjudication, Stage 3
// synthesis, and title generation. It owns the DecisionTrace and is the
// only package that calls anonymize, ranking, consensus, and adjudication
// together against a live ModelClient — everything else in those packages
// is pure and independently testable.
//
// Grounded in the teacher's internal/attackengine.Engine (a single struct
// owning a harness and a detector set, running a fixed sequence of stages
// over a target and collecting results into one report) and its
// prompts.go (one fmt.Sprintf-based builder function per prompt shape,
// rather than a template engine).
package orchestrator

import (
	"fmt"
	"strings"

	"github.com/modelcouncil/council/pkg/anonymize"
	"github.com/modelcouncil/council/pkg/trace"
)

// RubricDimensions are the evaluation axes every Stage-2 judge and the
// Chairman are asked to reason over.
var RubricDimensions = []string{
	"correctness",
	"completeness",
	"actionability",
	"risk_safety",
	"clarity",
	"contract_compliance",
}

// BuildStage2Prompt renders the anonymized candidate set a judge model
// reviews. It never includes a real model id — answers is already the
// anonymized view anonymize.ToPublic produced.
func BuildStage2Prompt(answers []anonymize.PublicAnswer) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Review these %d anonymized candidate answers to the same user request.\n", len(answers))
	fmt.Fprintf(&b, "Evaluate each against: %s.\n\n", strings.Join(RubricDimensions, ", "))
	for _, a := range answers {
		fmt.Fprintf(&b, "Response %s:\n%s\n\n", a.Label, a.Text)
	}
	b.WriteString("Respond with exactly one Strength/Flaw line per candidate, in label order, " +
		"followed by a single FINAL_RANKING line listing every label once, most to least preferred.")
	return b.String()
}

// BuildAdjudicationPrompt renders the same anonymized candidate set plus
// every Stage-2 judge's raw critique, asking the adjudicator to re-judge.
// judgeTexts must already be in label-anonymized form (a judge's raw_text
// never contains a model id by construction of BuildStage2Prompt's output).
func BuildAdjudicationPrompt(answers []anonymize.PublicAnswer, judgeTexts []string, reason string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "The council's judges disagreed (trigger: %s). Re-judge the same candidates.\n", reason)
	fmt.Fprintf(&b, "Evaluate each against: %s.\n\n", strings.Join(RubricDimensions, ", "))
	for _, a := range answers {
		fmt.Fprintf(&b, "Response %s:\n%s\n\n", a.Label, a.Text)
	}
	b.WriteString("Prior judges' critiques, for reference:\n\n")
	for i, t := range judgeTexts {
		fmt.Fprintf(&b, "Judge %d:\n%s\n\n", i+1, t)
	}
	b.WriteString("Respond with exactly one Strength/Flaw line per candidate, in label order, " +
		"followed by a single FINAL_RANKING line listing every label once, most to least preferred.")
	return b.String()
}

// BuildStage3Prompt asks the Chairman to synthesize a final answer rooted
// in baseLabel, informed by the aggregate rank the council converged on.
func BuildStage3Prompt(answers []anonymize.PublicAnswer, baseLabel trace.Label, aggregateRank map[trace.Label]float64) string {
	var b strings.Builder
	fmt.Fprintf(&b, "The council's consensus base answer is Response %s. Synthesize a final answer "+
		"that starts from it and folds in any genuine improvement from the other candidates; explicitly "+
		"reject suggestions that would weaken it.\n", baseLabel)
	fmt.Fprintf(&b, "Evaluate each against: %s.\n\n", strings.Join(RubricDimensions, ", "))
	for _, a := range answers {
		rank := aggregateRank[a.Label]
		fmt.Fprintf(&b, "Response %s (average rank %.2f):\n%s\n\n", a.Label, rank, a.Text)
	}
	b.WriteString("End your answer with a fenced JSON object: " +
		`{"base_label": "...", "contributors": [{"label": "...", "reason": "...", "dimension": "..."}], ` +
		`"rejections": [{"label": "...", "point": "...", "reason": "..."}]}.`)
	return b.String()
}

// BuildTitlePrompt asks for a short conversation title from the user's
// first message. Failures are swallowed by the caller — titling is a
// best-effort enrichment, never a blocking step.
func BuildTitlePrompt(userPrompt string) string {
	return "Write a concise 5-8 word title for a conversation starting with this message. " +
		"Respond with only the title text, no quotes, no trailing punctuation.\n\n" + userPrompt
}

package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/modelcouncil/council/pkg/adjudication"
	"github.com/modelcouncil/council/pkg/anonymize"
	"github.com/modelcouncil/council/pkg/clienterrors"
	"github.com/modelcouncil/council/pkg/consensus"
	"github.com/modelcouncil/council/pkg/events"
	"github.com/modelcouncil/council/pkg/modelclient"
	"github.com/modelcouncil/council/pkg/ranking"
	"github.com/modelcouncil/council/pkg/roles"
	"github.com/modelcouncil/council/pkg/stagerunner"
	"github.com/modelcouncil/council/pkg/trace"
)

// Store is the conversation persistence contract the Orchestrator depends
// on. internal/store provides the file-backed implementation; tests supply
// their own in-memory double.
type Store interface {
	AppendMessage(ctx context.Context, conversationID string, msg trace.AssistantMessage) error
}

// TitleSetter is an optional capability a Store may implement to persist the
// best-effort generated title. internal/store.Store implements it; test
// doubles that only care about message persistence are not required to.
type TitleSetter interface {
	SetTitle(conversationID, title string) error
}

// Metrics is the narrow counters contract the Orchestrator reports into.
// pkg/metrics.Counters satisfies it; nil is valid and disables reporting.
type Metrics interface {
	IncStageAttempt(stage string)
	IncStageSuccess(stage string)
	IncStageFailure(stage string)
	IncAdjudicationTriggered()
}

// Orchestrator sequences one deliberation run: Stage 1, Stage 2, optional
// adjudication, Stage 3, and title generation, against a single
// modelclient.ModelClient (ordinarily a *modelclient.Router fanning out to
// several providers) and a single CouncilConfig.
type Orchestrator struct {
	Client  modelclient.ModelClient
	Config  trace.CouncilConfig
	Store   Store
	Metrics Metrics
}

// New constructs an Orchestrator. store may be nil only in tests that don't
// exercise persistence; production callers must supply one.
func New(client modelclient.ModelClient, cfg trace.CouncilConfig, store Store) *Orchestrator {
	return &Orchestrator{Client: client, Config: cfg, Store: store}
}

func (o *Orchestrator) incAttempt(stage string) {
	if o.Metrics != nil {
		o.Metrics.IncStageAttempt(stage)
	}
}

func (o *Orchestrator) incSuccess(stage string) {
	if o.Metrics != nil {
		o.Metrics.IncStageSuccess(stage)
	}
}

func (o *Orchestrator) incFailure(stage string) {
	if o.Metrics != nil {
		o.Metrics.IncStageFailure(stage)
	}
}

func (o *Orchestrator) incAdjudicationTriggered() {
	if o.Metrics != nil {
		o.Metrics.IncAdjudicationTriggered()
	}
}

// CheckBoundary classifies the fatal, boundary-only failures: an empty or
// oversized prompt, and missing configuration. All of them must surface
// before any stage runs, never into DecisionTrace.Errors. internal/httpapi
// calls this synchronously, before committing to a streaming response, so
// it can answer 413/400/500 instead of opening an SSE stream that would never
// emit anything. Run calls it too, so a caller that skips the boundary
// check still gets the same classification.
func (o *Orchestrator) CheckBoundary(prompt string) error {
	if err := trace.ValidatePrompt(prompt, o.Config.MaxPromptBytes); err != nil {
		return err
	}
	if o.Client == nil {
		return fmt.Errorf("%w: no model client configured", trace.ErrConfigMissing)
	}
	if err := o.Config.Validate(); err != nil {
		return fmt.Errorf("%w: %v", trace.ErrConfigMissing, err)
	}
	return nil
}

// Run executes one deliberation over prompt, streaming lifecycle events to
// sink and persisting the resulting AssistantMessage to the Store. The
// returned error is non-nil only for boundary failures (oversized prompt,
// missing configuration) or a final persistence failure; every other
// failure mode degrades into the DecisionTrace's Errors list instead of
// aborting the run.
func (o *Orchestrator) Run(ctx context.Context, conversationID, prompt string, sink *events.Sink) (trace.AssistantMessage, error) {
	if err := o.CheckBoundary(prompt); err != nil {
		sink.Close()
		return trace.AssistantMessage{}, err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-sink.Done():
			cancel()
		case <-ctx.Done():
		}
	}()

	dt := trace.NewDecisionTrace()
	for _, m := range o.Config.Members {
		dt.ModelRoles[m.ModelID] = m.RoleName
	}

	stage1Answers := o.runStage1(ctx, prompt, sink)
	lm := anonymize.BuildLabelMap(stage1Answers)
	dt.LabelToModel = lm.ToMap()
	for _, a := range stage1Answers {
		if a.Failed() {
			dt.Errors = append(dt.Errors, trace.ErrorRecord{
				Kind: stage1ErrorKind(a.Error), ModelID: a.ModelID, Message: a.Error,
			})
		}
	}

	publicAnswers := anonymize.ToPublic(lm, stage1Answers)
	stage1Texts := make(map[trace.Label]string, len(publicAnswers))
	for _, pa := range publicAnswers {
		stage1Texts[pa.Label] = pa.Text
	}

	var judgements []trace.Judgement
	var res consensus.Result
	var adjRecord *trace.AdjudicationRecord
	cache := newJudgeCache()

	if len(lm.Labels()) == 0 {
		sink.Emit(events.Stage2Start, nil)
		sink.Emit(events.Stage2Complete, []trace.Judgement{})
	} else {
		judgements, res, dt.Errors = o.runStage2(ctx, publicAnswers, stage1Texts, lm, sink, dt.Errors)

		decision := adjudication.Decide(res)
		if decision.Triggered {
			var record *trace.AdjudicationRecord
			record, res, dt.Errors = o.runAdjudication(ctx, decision, publicAnswers, judgements, stage1Texts, lm, res, dt.Errors, cache)
			adjRecord = record
		}
	}

	dt.AggregateRankings = res.AggregateRank
	if dt.AggregateRankings == nil {
		dt.AggregateRankings = map[trace.Label]float64{}
	}
	dt.Top1Consensus = res.Top1Consensus
	dt.EvidenceOkRate = res.EvidenceOkRate
	dt.PartialRate = res.PartialRate
	dt.Adjudication = adjRecord

	var stage3Result trace.Stage3Result
	if len(lm.Labels()) > 0 {
		stage3Result, dt.Errors = o.runStage3(ctx, publicAnswers, res, lm, sink, dt.Errors)
	}

	title := o.runTitle(ctx, prompt, sink)

	msg := trace.NewAssistantMessage(stage1Answers, judgements, stage3Result, dt)

	if o.Store != nil {
		if err := o.Store.AppendMessage(ctx, conversationID, msg); err != nil {
			slog.Error("failed to persist assistant message", "conversation_id", conversationID, "error", err)
			sink.Emit(events.Error, map[string]string{
				"kind":    string(trace.StoreFailure),
				"message": err.Error(),
			})
			sink.Close()
			return msg, err
		}
		if title != "" {
			if ts, ok := o.Store.(TitleSetter); ok {
				if err := ts.SetTitle(conversationID, title); err != nil {
					slog.Warn("failed to persist generated title", "conversation_id", conversationID, "error", err)
				}
			}
		}
	}

	sink.Emit(events.Complete, nil)
	sink.Close()
	return msg, nil
}

func stage1ErrorKind(message string) trace.ErrorKind {
	// Stage1Answer.Error is a plain string (the adapter error's Error()),
	// so the kind is recovered from the classification prefix StageRunner
	// and the adapters always produce via clienterrors.
	switch {
	case strings.Contains(message, "timeout"):
		return trace.ModelTimeout
	case strings.Contains(message, "permanent"):
		return trace.ModelPermanent
	default:
		return trace.ModelTransient
	}
}

func (o *Orchestrator) runStage1(ctx context.Context, prompt string, sink *events.Sink) []trace.Stage1Answer {
	sink.Emit(events.Stage1Start, nil)

	tasks := make([]stagerunner.Task, len(o.Config.Members))
	for i, m := range o.Config.Members {
		member := m
		spec, _ := roles.Get(member.RoleName)
		o.incAttempt("stage1")
		tasks[i] = stagerunner.Task{
			ID: member.ModelID,
			Fn: func(taskCtx context.Context) (string, error) {
				return o.Client.Complete(taskCtx, member.ModelID, spec.SystemPrompt, prompt)
			},
		}
	}

	results := stagerunner.RunAll(ctx, tasks, o.Config.Stage1Timeout, o.Config.Retry)

	answers := make([]trace.Stage1Answer, len(o.Config.Members))
	for i, m := range o.Config.Members {
		answers[i] = trace.Stage1Answer{ModelID: m.ModelID, RoleName: m.RoleName, LatencyMs: results[i].LatencyMs}
		if results[i].Err != nil {
			answers[i].Error = results[i].Err.Error()
			o.incFailure("stage1")
		} else {
			answers[i].Text = results[i].Text
			o.incSuccess("stage1")
		}
	}

	sink.Emit(events.Stage1Complete, answers)
	return answers
}

func (o *Orchestrator) runStage2(
	ctx context.Context,
	publicAnswers []anonymize.PublicAnswer,
	stage1Texts map[trace.Label]string,
	lm trace.LabelMap,
	sink *events.Sink,
	errs []trace.ErrorRecord,
) ([]trace.Judgement, consensus.Result, []trace.ErrorRecord) {
	sink.Emit(events.Stage2Start, nil)

	judgeModelIDs := lm.Labels()
	tasks := make([]stagerunner.Task, len(judgeModelIDs))
	spec, _ := roles.Get(roles.Judge)
	prompt := BuildStage2Prompt(publicAnswers)
	for i, label := range judgeModelIDs {
		modelID, _ := lm.ModelFor(label)
		mID := modelID
		o.incAttempt("stage2")
		tasks[i] = stagerunner.Task{
			ID: mID,
			Fn: func(taskCtx context.Context) (string, error) {
				return o.Client.Complete(taskCtx, mID, spec.SystemPrompt, prompt)
			},
		}
	}

	results := stagerunner.RunAll(ctx, tasks, o.Config.Stage2Timeout, o.Config.Retry)

	judgements := make([]trace.Judgement, len(results))
	for i, r := range results {
		if r.Err != nil {
			o.incFailure("stage2")
			reason := trace.ReasonModelError
			if r.Kind == clienterrors.Timeout {
				reason = trace.ReasonTimeout
			}
			judgements[i] = trace.Judgement{
				ModelID:           r.ID,
				Partial:           true,
				PartialReason:     reason,
				PerLabelCritiques: map[trace.Label]trace.Critique{},
			}
			errs = append(errs, trace.ErrorRecord{Kind: stage2ErrorKind(r.Kind), ModelID: r.ID, Message: r.Err.Error()})
			continue
		}
		o.incSuccess("stage2")
		j := ranking.Parse(r.Text, lm, stage1Texts)
		j.ModelID = r.ID
		if j.Partial {
			errs = append(errs, trace.ErrorRecord{Kind: trace.ParseFailure, ModelID: r.ID, Message: string(j.PartialReason)})
		}
		judgements[i] = j
	}

	res := consensus.Score(judgements, lm)
	sink.EmitWithTrace(events.Stage2Complete, judgements, trace.DecisionTrace{
		LabelToModel:      lm.ToMap(),
		AggregateRankings: res.AggregateRank,
		Top1Consensus:     res.Top1Consensus,
		EvidenceOkRate:    res.EvidenceOkRate,
		PartialRate:       res.PartialRate,
		Errors:            []trace.ErrorRecord{},
		ModelRoles:        map[string]roles.Name{},
	})
	return judgements, res, errs
}

func stage2ErrorKind(kind clienterrors.Kind) trace.ErrorKind {
	switch kind {
	case clienterrors.Timeout:
		return trace.ModelTimeout
	case clienterrors.Permanent:
		return trace.ModelPermanent
	default:
		return trace.ModelTransient
	}
}

func (o *Orchestrator) runAdjudication(
	ctx context.Context,
	decision adjudication.Decision,
	publicAnswers []anonymize.PublicAnswer,
	judgements []trace.Judgement,
	stage1Texts map[trace.Label]string,
	lm trace.LabelMap,
	res consensus.Result,
	errs []trace.ErrorRecord,
	cache *judgeCache,
) (*trace.AdjudicationRecord, consensus.Result, []trace.ErrorRecord) {
	if o.Config.AdjudicatorModelID == "" {
		errs = append(errs, trace.ErrorRecord{
			Kind:    trace.ConsensusUndefined,
			Message: fmt.Sprintf("adjudication triggered (%s) but no adjudicator_model_id is configured", decision.Reason),
		})
		return &trace.AdjudicationRecord{TriggeredReason: string(decision.Reason)}, res, errs
	}

	judgeTexts := make([]string, 0, len(judgements))
	for _, j := range judgements {
		if j.RawText != "" {
			judgeTexts = append(judgeTexts, j.RawText)
		}
	}

	prompt := BuildAdjudicationPrompt(publicAnswers, judgeTexts, string(decision.Reason))
	spec, _ := roles.Get(roles.Adjudicator)

	record := &trace.AdjudicationRecord{TriggeredReason: string(decision.Reason)}

	var j trace.Judgement
	if cached, ok := cache.get(o.Config.AdjudicatorModelID, spec.SystemPrompt, prompt); ok {
		j = cached
	} else {
		o.incAttempt("adjudication")
		o.incAdjudicationTriggered()
		results := stagerunner.RunAll(ctx, []stagerunner.Task{{
			ID: o.Config.AdjudicatorModelID,
			Fn: func(taskCtx context.Context) (string, error) {
				return o.Client.Complete(taskCtx, o.Config.AdjudicatorModelID, spec.SystemPrompt, prompt)
			},
		}}, o.Config.Stage2Timeout, o.Config.Retry)

		r := results[0]
		if r.Err != nil {
			o.incFailure("adjudication")
			errs = append(errs, trace.ErrorRecord{Kind: stage2ErrorKind(r.Kind), ModelID: o.Config.AdjudicatorModelID, Message: r.Err.Error()})
			return record, res, errs
		}
		o.incSuccess("adjudication")

		j = ranking.Parse(r.Text, lm, stage1Texts)
		j.ModelID = o.Config.AdjudicatorModelID
		j.Adjudicator = true
		cache.set(o.Config.AdjudicatorModelID, spec.SystemPrompt, prompt, j)
	}
	record.Result = &j

	if j.Partial {
		errs = append(errs, trace.ErrorRecord{Kind: trace.ParseFailure, ModelID: o.Config.AdjudicatorModelID, Message: string(j.PartialReason)})
		return record, res, errs
	}

	res.Top1Consensus = j.ParsedRanking[0]
	res.Top1Defined = true
	return record, res, errs
}

func (o *Orchestrator) runStage3(
	ctx context.Context,
	publicAnswers []anonymize.PublicAnswer,
	res consensus.Result,
	lm trace.LabelMap,
	sink *events.Sink,
	errs []trace.ErrorRecord,
) (trace.Stage3Result, []trace.ErrorRecord) {
	sink.Emit(events.Stage3Start, nil)

	baseLabel := res.Top1Consensus
	if !res.Top1Defined {
		labels := lm.SortedLabels()
		if len(labels) > 0 {
			baseLabel = labels[0]
		}
	}

	validLabels := make(map[trace.Label]bool, len(lm.Labels()))
	for _, l := range lm.Labels() {
		validLabels[l] = true
	}

	prompt := BuildStage3Prompt(publicAnswers, baseLabel, res.AggregateRank)
	spec, _ := roles.Get(roles.Chairman)

	o.incAttempt("stage3")
	results := stagerunner.RunAll(ctx, []stagerunner.Task{{
		ID: o.Config.ChairmanModelID,
		Fn: func(taskCtx context.Context) (string, error) {
			return o.Client.Complete(taskCtx, o.Config.ChairmanModelID, spec.SystemPrompt, prompt)
		},
	}}, o.Config.Stage3Timeout, o.Config.Retry)

	r := results[0]
	var stage3 trace.Stage3Result
	if r.Err != nil {
		o.incFailure("stage3")
		errs = append(errs, trace.ErrorRecord{Kind: stage2ErrorKind(r.Kind), ModelID: o.Config.ChairmanModelID, Message: r.Err.Error()})
		stage3 = trace.Stage3Result{Contributors: []trace.Contribution{}, Rejections: []trace.Rejection{}}
	} else {
		o.incSuccess("stage3")
		stage3 = parseStage3Output(o.Config.ChairmanModelID, r.Text, baseLabel, validLabels)
	}

	sink.Emit(events.Stage3Complete, stage3)
	return stage3, errs
}

func (o *Orchestrator) runTitle(ctx context.Context, prompt string, sink *events.Sink) string {
	if o.Config.TitleTimeout <= 0 {
		sink.Emit(events.TitleComplete, "")
		return ""
	}

	modelID := o.Config.ChairmanModelID
	titlePolicy := o.Config.Retry
	titlePolicy.MaxAttempts = 1

	results := stagerunner.RunAll(ctx, []stagerunner.Task{{
		ID: modelID,
		Fn: func(taskCtx context.Context) (string, error) {
			return o.Client.Complete(taskCtx, modelID, "You write short, literal conversation titles.", BuildTitlePrompt(prompt))
		},
	}}, o.Config.TitleTimeout, titlePolicy)

	title := ""
	if results[0].Err == nil {
		title = strings.TrimSpace(results[0].Text)
		if len(title) > 120 {
			title = title[:120]
		}
	} else {
		slog.Warn("title generation failed", "error", results[0].Err)
	}

	sink.Emit(events.TitleComplete, title)
	return title
}

package orchestrator

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/modelcouncil/council/internal/modelclients/testclient"
	"github.com/modelcouncil/council/pkg/clienterrors"
	"github.com/modelcouncil/council/pkg/events"
	"github.com/modelcouncil/council/pkg/roles"
	"github.com/modelcouncil/council/pkg/trace"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	mu       sync.Mutex
	messages map[string][]trace.AssistantMessage
	err      error
}

func newFakeStore() *fakeStore {
	return &fakeStore{messages: make(map[string][]trace.AssistantMessage)}
}

func (s *fakeStore) AppendMessage(_ context.Context, conversationID string, msg trace.AssistantMessage) error {
	if s.err != nil {
		return s.err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages[conversationID] = append(s.messages[conversationID], msg)
	return nil
}

// titledStore adds TitleSetter to fakeStore, so tests can assert the
// best-effort title ends up persisted when the Store supports it.
type titledStore struct {
	*fakeStore
	titles map[string]string
}

func newTitledStore() *titledStore {
	return &titledStore{fakeStore: newFakeStore(), titles: map[string]string{}}
}

func (s *titledStore) SetTitle(conversationID, title string) error {
	s.titles[conversationID] = title
	return nil
}

type fakeMetrics struct {
	mu                   sync.Mutex
	attempts, successes  map[string]int
	failures             map[string]int
	adjudicationTriggers int
}

func newFakeMetrics() *fakeMetrics {
	return &fakeMetrics{attempts: map[string]int{}, successes: map[string]int{}, failures: map[string]int{}}
}

func (m *fakeMetrics) IncStageAttempt(stage string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.attempts[stage]++
}
func (m *fakeMetrics) IncStageSuccess(stage string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.successes[stage]++
}
func (m *fakeMetrics) IncStageFailure(stage string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[stage]++
}
func (m *fakeMetrics) IncAdjudicationTriggered() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.adjudicationTriggers++
}

func baseConfig() trace.CouncilConfig {
	return trace.CouncilConfig{
		Members: []trace.CouncilMember{
			{ModelID: "model-a", RoleName: roles.Builder},
			{ModelID: "model-b", RoleName: roles.Skeptic},
			{ModelID: "model-c", RoleName: roles.Minimalist},
		},
		ChairmanModelID: "model-a",
		Stage1Timeout:   time.Second,
		Stage2Timeout:   time.Second,
		Stage3Timeout:   time.Second,
		TitleTimeout:    time.Second,
		Retry: trace.RetryPolicy{
			MaxAttempts:         1,
			RetryableErrorKinds: []trace.ErrorKind{trace.ModelTransient, trace.ModelTimeout},
			BackoffBase:         time.Millisecond,
			BackoffCap:          time.Millisecond,
		},
		MaxPromptBytes: 0,
	}
}

func drain(sink *events.Sink) []events.Event {
	var out []events.Event
	for e := range sink.Events() {
		out = append(out, e)
	}
	return out
}

func eventTypes(evts []events.Event) []events.Type {
	out := make([]events.Type, len(evts))
	for i, e := range evts {
		out[i] = e.Type
	}
	return out
}

func wellFormedJudgement(first, second, third, fourthOmit string) string {
	return "Response A: Strength: uses `contextDeadline` pattern; Flaw: none found\n" +
		"Response B: Strength: retries on `backoffLoop` failure; Flaw: ignores rate limit\n" +
		"Response C: Strength: validates `inputShape`; Flaw: no docs\n" +
		"FINAL_RANKING: Response " + first + ", Response " + second + ", Response " + third
}

func TestRun_HappyPath_StrongConsensusNoAdjudication(t *testing.T) {
	client := testclient.NewClient()
	client.EnqueueText("model-a", "uses `contextDeadline` pattern for cancellation")
	client.EnqueueText("model-b", "retries on `backoffLoop` failure automatically")
	client.EnqueueText("model-c", "validates `inputShape` before processing")

	unanimous := wellFormedJudgement("A", "B", "C", "")
	client.EnqueueText("model-a", unanimous)
	client.EnqueueText("model-b", unanimous)
	client.EnqueueText("model-c", unanimous)

	client.EnqueueText("model-a", "Final synthesized answer text.\n"+
		`{"base_label": "A", "contributors": [{"label": "B", "reason": "better retry", "dimension": "robustness"}], "rejections": []}`)

	client.EnqueueText("model-a", "Deadline-aware retry pattern")

	store := newFakeStore()
	metrics := newFakeMetrics()
	o := New(client, baseConfig(), store)
	o.Metrics = metrics

	sink := events.NewSink()
	msg, err := o.Run(context.Background(), "conv-1", "How should I handle request timeouts?", sink)
	require.NoError(t, err)

	evts := drain(sink)
	assert.Equal(t, []events.Type{
		events.Stage1Start, events.Stage1Complete,
		events.Stage2Start, events.Stage2Complete,
		events.Stage3Start, events.Stage3Complete,
		events.TitleComplete, events.Complete,
	}, eventTypes(evts))

	require.Len(t, msg.Stage1, 3)
	require.Len(t, msg.Stage2, 3)
	assert.Equal(t, trace.Label("A"), msg.Meta.Top1Consensus)
	assert.Equal(t, 1.0, msg.Meta.EvidenceOkRate)
	assert.Equal(t, 0.0, msg.Meta.PartialRate)
	assert.Nil(t, msg.Meta.Adjudication)
	assert.False(t, msg.Stage3.IsEmpty())
	assert.Equal(t, trace.Label("A"), msg.Stage3.BaseLabel)
	require.Len(t, msg.Stage3.Contributors, 1)
	assert.Empty(t, msg.Meta.Errors)

	require.Len(t, store.messages["conv-1"], 1)
	assert.Equal(t, 3, metrics.successes["stage1"])
}

func TestRun_TitlePersistedWhenStoreSupportsIt(t *testing.T) {
	client := testclient.NewClient()
	client.EnqueueText("model-a", "uses `contextDeadline` pattern for cancellation")
	client.EnqueueText("model-b", "retries on `backoffLoop` failure automatically")
	client.EnqueueText("model-c", "validates `inputShape` before processing")

	unanimous := wellFormedJudgement("A", "B", "C", "")
	client.EnqueueText("model-a", unanimous)
	client.EnqueueText("model-b", unanimous)
	client.EnqueueText("model-c", unanimous)

	client.EnqueueText("model-a", "Final synthesized answer text.\n"+
		`{"base_label": "A", "contributors": [], "rejections": []}`)
	client.EnqueueText("model-a", "Handling request timeouts")

	store := newTitledStore()
	o := New(client, baseConfig(), store)

	sink := events.NewSink()
	_, err := o.Run(context.Background(), "conv-title", "How should I handle request timeouts?", sink)
	require.NoError(t, err)
	drain(sink)

	assert.Equal(t, "Handling request timeouts", store.titles["conv-title"])
}

func TestRun_Stage1PermanentError_ExcludesMemberFromLabels(t *testing.T) {
	client := testclient.NewClient()
	client.EnqueueError("model-a", clienterrors.Permanent, "invalid api key")
	client.EnqueueText("model-b", "retries on `backoffLoop` failure")
	client.EnqueueText("model-c", "validates `inputShape` before processing")

	judgeText := "Response A: Strength: solid; Flaw: none\n" +
		"Response B: Strength: good; Flaw: none\n" +
		"FINAL_RANKING: Response A, Response B"
	client.EnqueueText("model-b", judgeText)
	client.EnqueueText("model-c", judgeText)

	client.EnqueueText("model-b", "final answer\n"+`{"base_label": "A", "contributors": [], "rejections": []}`)
	client.SetFallback(testclient.Reply{Text: "a title"})

	cfg := baseConfig()
	cfg.ChairmanModelID = "model-b"
	store := newFakeStore()
	o := New(client, cfg, store)

	sink := events.NewSink()
	msg, err := o.Run(context.Background(), "conv-2", "prompt", sink)
	require.NoError(t, err)
	drain(sink)

	require.Len(t, msg.Stage1, 3)
	assert.True(t, msg.Stage1[0].Failed())
	assert.NotEmpty(t, msg.Meta.Errors)
	found := false
	for _, e := range msg.Meta.Errors {
		if e.ModelID == "model-a" && e.Kind == trace.ModelPermanent {
			found = true
		}
	}
	assert.True(t, found, "expected a ModelPermanent error record for model-a")

	// Only the two surviving models get labels and are judged.
	assert.Len(t, msg.Meta.LabelToModel, 2)
	require.Len(t, msg.Stage2, 2)
}

func TestRun_PlaceholderMajority_AdjudicationTriggeredButNotConfigured(t *testing.T) {
	client := testclient.NewClient()
	client.EnqueueText("model-a", "answer a")
	client.EnqueueText("model-b", "answer b")
	client.EnqueueText("model-c", "answer c")

	placeholderJudgement := "Response A: Strength: insufficient signal in text; Flaw: insufficient signal in text\n" +
		"Response B: Strength: insufficient signal in text; Flaw: insufficient signal in text\n" +
		"Response C: Strength: insufficient signal in text; Flaw: insufficient signal in text\n" +
		"FINAL_RANKING: Response A, Response B, Response C"
	client.EnqueueText("model-a", placeholderJudgement)
	client.EnqueueText("model-b", placeholderJudgement)
	client.EnqueueText("model-c", placeholderJudgement)

	client.EnqueueText("model-a", "final answer")
	client.SetFallback(testclient.Reply{Text: "title"})

	cfg := baseConfig()
	store := newFakeStore()
	o := New(client, cfg, store)

	sink := events.NewSink()
	msg, err := o.Run(context.Background(), "conv-3", "prompt", sink)
	require.NoError(t, err)
	drain(sink)

	require.NotNil(t, msg.Meta.Adjudication)
	found := false
	for _, e := range msg.Meta.Errors {
		if e.Kind == trace.ConsensusUndefined {
			found = true
		}
	}
	assert.True(t, found)
}

func TestRun_AdjudicationOverridesWeakConsensus(t *testing.T) {
	client := testclient.NewClient()
	client.EnqueueText("model-a", "answer a with `uniqueTokenA`")
	client.EnqueueText("model-b", "answer b with `uniqueTokenB`")
	client.EnqueueText("model-c", "answer c with `uniqueTokenC`")

	// Every judge picks a different top choice: divergence is extreme,
	// which alone trips adjudication even with perfect evidence coverage.
	client.EnqueueText("model-a", "Response A: Strength: uses `uniqueTokenA`; Flaw: x\n"+
		"Response B: Strength: uses `uniqueTokenB`; Flaw: x\n"+
		"Response C: Strength: uses `uniqueTokenC`; Flaw: x\n"+
		"FINAL_RANKING: Response A, Response B, Response C")
	client.EnqueueText("model-b", "Response A: Strength: uses `uniqueTokenA`; Flaw: x\n"+
		"Response B: Strength: uses `uniqueTokenB`; Flaw: x\n"+
		"Response C: Strength: uses `uniqueTokenC`; Flaw: x\n"+
		"FINAL_RANKING: Response B, Response A, Response C")
	client.EnqueueText("model-c", "Response A: Strength: uses `uniqueTokenA`; Flaw: x\n"+
		"Response B: Strength: uses `uniqueTokenB`; Flaw: x\n"+
		"Response C: Strength: uses `uniqueTokenC`; Flaw: x\n"+
		"FINAL_RANKING: Response C, Response A, Response B")

	client.EnqueueText("model-z", "Response A: Strength: uses `uniqueTokenA`; Flaw: x\n"+
		"Response B: Strength: uses `uniqueTokenB`; Flaw: x\n"+
		"Response C: Strength: uses `uniqueTokenC`; Flaw: x\n"+
		"FINAL_RANKING: Response B, Response C, Response A")

	client.EnqueueText("model-a", "final synthesized")
	client.SetFallback(testclient.Reply{Text: "title"})

	cfg := baseConfig()
	cfg.AdjudicatorModelID = "model-z"
	store := newFakeStore()
	metrics := newFakeMetrics()
	o := New(client, cfg, store)
	o.Metrics = metrics

	sink := events.NewSink()
	msg, err := o.Run(context.Background(), "conv-4", "prompt", sink)
	require.NoError(t, err)
	drain(sink)

	require.NotNil(t, msg.Meta.Adjudication)
	require.NotNil(t, msg.Meta.Adjudication.Result)
	assert.True(t, msg.Meta.Adjudication.Result.Adjudicator)
	assert.Equal(t, trace.Label("B"), msg.Meta.Top1Consensus)
	assert.Equal(t, 1, metrics.adjudicationTriggers)
}

func TestRun_ChairmanTimeout_EmptyStage3Result(t *testing.T) {
	client := testclient.NewClient()
	client.EnqueueText("model-a", "answer a")
	client.EnqueueText("model-b", "answer b")
	client.EnqueueText("model-c", "answer c")

	judgeText := "Response A: Strength: good; Flaw: none\n" +
		"Response B: Strength: good; Flaw: none\n" +
		"Response C: Strength: good; Flaw: none\n" +
		"FINAL_RANKING: Response A, Response B, Response C"
	client.EnqueueText("model-a", judgeText)
	client.EnqueueText("model-b", judgeText)
	client.EnqueueText("model-c", judgeText)

	client.EnqueueError("model-a", clienterrors.Timeout, "deadline exceeded")
	client.SetFallback(testclient.Reply{Text: "title"})

	cfg := baseConfig()
	store := newFakeStore()
	o := New(client, cfg, store)

	sink := events.NewSink()
	msg, err := o.Run(context.Background(), "conv-5", "prompt", sink)
	require.NoError(t, err)
	drain(sink)

	assert.True(t, msg.Stage3.IsEmpty())
	found := false
	for _, e := range msg.Meta.Errors {
		if e.ModelID == "model-a" && e.Kind == trace.ModelTimeout {
			found = true
		}
	}
	assert.True(t, found)
}

func TestRun_AllStage1Failed_SkipsJudgingAndSynthesis(t *testing.T) {
	client := testclient.NewClient()
	client.EnqueueError("model-a", clienterrors.Permanent, "permanent: invalid api key")
	client.EnqueueError("model-b", clienterrors.Permanent, "permanent: invalid api key")
	client.EnqueueError("model-c", clienterrors.Permanent, "permanent: invalid api key")
	client.SetFallback(testclient.Reply{Text: "title"})

	store := newFakeStore()
	o := New(client, baseConfig(), store)

	sink := events.NewSink()
	msg, err := o.Run(context.Background(), "conv-empty", "prompt", sink)
	require.NoError(t, err)

	evts := drain(sink)
	assert.Equal(t, []events.Type{
		events.Stage1Start, events.Stage1Complete,
		events.Stage2Start, events.Stage2Complete,
		events.TitleComplete, events.Complete,
	}, eventTypes(evts))

	// Degraded but well-formed: every field present, empty stages signal the
	// failure, the cause lives in meta.errors.
	require.Len(t, msg.Stage1, 3)
	assert.Empty(t, msg.Stage2)
	assert.True(t, msg.Stage3.IsEmpty())
	assert.Empty(t, msg.Meta.LabelToModel)
	assert.Len(t, msg.Meta.Errors, 3)
	require.Len(t, store.messages["conv-empty"], 1)
}

func TestRun_StoreFailure_EmitsErrorEvent(t *testing.T) {
	client := testclient.NewClient()
	client.SetFallback(testclient.Reply{Text: "answer"})

	judgeText := "Response A: Strength: good; Flaw: none\n" +
		"Response B: Strength: good; Flaw: none\n" +
		"Response C: Strength: good; Flaw: none\n" +
		"FINAL_RANKING: Response A, Response B, Response C"
	client.EnqueueText("model-a", "answer a")
	client.EnqueueText("model-b", "answer b")
	client.EnqueueText("model-c", "answer c")
	client.EnqueueText("model-a", judgeText)
	client.EnqueueText("model-b", judgeText)
	client.EnqueueText("model-c", judgeText)
	client.EnqueueText("model-a", "final answer")

	store := newFakeStore()
	store.err = assertErr("disk full")
	cfg := baseConfig()
	o := New(client, cfg, store)

	sink := events.NewSink()
	_, err := o.Run(context.Background(), "conv-6", "prompt", sink)
	require.Error(t, err)

	evts := drain(sink)
	require.NotEmpty(t, evts)
	assert.Equal(t, events.Error, evts[len(evts)-1].Type)
}

func TestRun_PromptTooLarge_ReturnsBoundaryError(t *testing.T) {
	client := testclient.NewClient()
	cfg := baseConfig()
	cfg.MaxPromptBytes = 4
	o := New(client, cfg, newFakeStore())

	sink := events.NewSink()
	_, err := o.Run(context.Background(), "conv-7", "this prompt is too long", sink)
	require.Error(t, err)
	assert.ErrorIs(t, err, trace.ErrPromptTooLarge)
}

func TestCheckBoundary_PromptTooLarge(t *testing.T) {
	cfg := baseConfig()
	cfg.MaxPromptBytes = 4
	o := New(testclient.NewClient(), cfg, newFakeStore())

	err := o.CheckBoundary("this prompt is too long")
	require.Error(t, err)
	assert.ErrorIs(t, err, trace.ErrPromptTooLarge)
}

func TestCheckBoundary_EmptyPrompt(t *testing.T) {
	o := New(testclient.NewClient(), baseConfig(), newFakeStore())

	err := o.CheckBoundary("   \n")
	require.Error(t, err)
	assert.ErrorIs(t, err, trace.ErrPromptEmpty)
}

func TestCheckBoundary_ConfigMissingOnInvalidCouncilConfig(t *testing.T) {
	cfg := baseConfig()
	cfg.ChairmanModelID = ""
	o := New(testclient.NewClient(), cfg, newFakeStore())

	err := o.CheckBoundary("hello")
	require.Error(t, err)
	assert.ErrorIs(t, err, trace.ErrConfigMissing)
}

func TestCheckBoundary_ConfigMissingOnNilClient(t *testing.T) {
	o := New(nil, baseConfig(), newFakeStore())

	err := o.CheckBoundary("hello")
	require.Error(t, err)
	assert.ErrorIs(t, err, trace.ErrConfigMissing)
}

func TestCheckBoundary_OK(t *testing.T) {
	o := New(testclient.NewClient(), baseConfig(), newFakeStore())

	assert.NoError(t, o.CheckBoundary("hello"))
}

type assertErr string

func (e assertErr) Error() string { return string(e) }

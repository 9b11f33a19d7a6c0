package trace

// AssistantMessage is the schema-stable contract handed to the conversation
// store and, ultimately, the client. Meta and Metadata are intentionally the
// same value under two keys: some client integrations read `meta`, others
// read the more verbose `metadata`, and the wire contract tolerates the
// duplicate rather than picking one and breaking the other.
type AssistantMessage struct {
	Role string `json:"role"`

	Stage1 []Stage1Answer `json:"stage1"`
	Stage2 []Judgement    `json:"stage2"`
	Stage3 Stage3Result   `json:"stage3"`

	Meta     DecisionTrace `json:"meta"`
	Metadata DecisionTrace `json:"metadata"`
}

// NewAssistantMessage builds an AssistantMessage with non-nil stage slices
// and both meta fields set to the same trace value.
func NewAssistantMessage(stage1 []Stage1Answer, stage2 []Judgement, stage3 Stage3Result, dt DecisionTrace) AssistantMessage {
	if stage1 == nil {
		stage1 = []Stage1Answer{}
	}
	if stage2 == nil {
		stage2 = []Judgement{}
	}
	return AssistantMessage{
		Role:     "assistant",
		Stage1:   stage1,
		Stage2:   stage2,
		Stage3:   stage3,
		Meta:     dt,
		Metadata: dt,
	}
}

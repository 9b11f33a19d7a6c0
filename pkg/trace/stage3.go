package trace

// Contribution records one improvement the Chairman folded into the base
// answer from a non-base label.
type Contribution struct {
	Label     Label  `json:"label"`
	Reason    string `json:"reason"`
	Dimension string `json:"dimension,omitempty"`
}

// Rejection records one suggestion the Chairman explicitly declined.
type Rejection struct {
	Label  Label  `json:"label"`
	Point  string `json:"point"`
	Reason string `json:"reason"`
}

// Stage3Result is the Chairman's synthesis. A zero-value Stage3Result (empty
// ModelID and Text) represents "no Stage 3 output" — e.g. after a Chairman
// timeout — and is distinguished from success by an empty Text, never by a
// sentinel error value, matching the spec's "empty list/struct, not absent"
// contract.
type Stage3Result struct {
	ModelID      string         `json:"model_id"`
	Text         string         `json:"text"`
	BaseLabel    Label          `json:"base_label,omitempty"`
	Contributors []Contribution `json:"contributors"`
	Rejections   []Rejection    `json:"rejections"`
}

// IsEmpty reports whether no Stage-3 result was produced.
func (r Stage3Result) IsEmpty() bool {
	return r.ModelID == "" && r.Text == ""
}

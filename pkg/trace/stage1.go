package trace

import "github.com/modelcouncil/council/pkg/roles"

// Stage1Answer is one council member's response, immutable after creation.
// Exactly one is produced per council member per run, whether it succeeded
// or failed.
type Stage1Answer struct {
	ModelID   string     `json:"model_id"`
	RoleName  roles.Name `json:"role_name"`
	Text      string     `json:"text"`
	Error     string     `json:"error,omitempty"`
	LatencyMs int64      `json:"latency_ms"`
}

// Failed reports whether this answer carries a model error rather than text.
func (a Stage1Answer) Failed() bool {
	return a.Error != ""
}

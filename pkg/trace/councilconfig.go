package trace

import (
	"fmt"
	"time"

	"github.com/modelcouncil/council/pkg/roles"
)

// CouncilMember pairs a model id with the role it plays in Stage 1.
type CouncilMember struct {
	ModelID  string     `json:"model_id"`
	RoleName roles.Name `json:"role_name"`
}

// RetryPolicy bounds StageRunner's retry behavior for a single model call.
type RetryPolicy struct {
	MaxAttempts         int           `json:"max_attempts"`
	RetryableErrorKinds []ErrorKind   `json:"retryable_error_kinds"`
	BackoffBase         time.Duration `json:"backoff_base"`
	BackoffCap          time.Duration `json:"backoff_cap"`
}

// DefaultRetryPolicy matches the teacher's scanner default: a handful of
// attempts with exponential backoff bounded by a cap, retrying only the
// error kinds StageRunner is allowed to retry.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:         3,
		RetryableErrorKinds: []ErrorKind{ModelTransient, ModelTimeout},
		BackoffBase:         200 * time.Millisecond,
		BackoffCap:          5 * time.Second,
	}
}

// CouncilConfig is the full, process-wide configuration for one deliberation
// pipeline. It is built once at startup and never mutated afterward.
type CouncilConfig struct {
	Members            []CouncilMember `json:"members"`
	ChairmanModelID    string          `json:"chairman_model_id"`
	AdjudicatorModelID string          `json:"adjudicator_model_id,omitempty"`

	Stage1Timeout time.Duration `json:"stage1_timeout"`
	Stage2Timeout time.Duration `json:"stage2_timeout"`
	Stage3Timeout time.Duration `json:"stage3_timeout"`
	TitleTimeout  time.Duration `json:"title_timeout"`

	Retry RetryPolicy `json:"retry"`

	MaxPromptBytes int `json:"max_prompt_bytes"`
}

// Validate checks the structural invariants a CouncilConfig must satisfy
// before the orchestrator can run: between 1 and 26 members, a non-empty
// chairman model id, and a model id and a known role on every member.
// Member model ids are not checked for distinctness, and the chairman may
// also be a council member.
func (c CouncilConfig) Validate() error {
	if len(c.Members) == 0 {
		return fmt.Errorf("council config: at least one member is required")
	}
	if len(c.Members) > 26 {
		return fmt.Errorf("council config: at most 26 members are supported (label space is A-Z), got %d", len(c.Members))
	}
	if c.ChairmanModelID == "" {
		return fmt.Errorf("council config: chairman_model_id is required")
	}
	for i, m := range c.Members {
		if m.ModelID == "" {
			return fmt.Errorf("council config: member %d has an empty model_id", i)
		}
		if _, ok := roles.Get(m.RoleName); !ok {
			return fmt.Errorf("council config: member %d has unknown role %q", i, m.RoleName)
		}
	}
	return nil
}

// Package config defines the process-wide configuration schema and its
// validation. Grounded in the teacher's pkg/config.Config: a tree of
// per-concern structs, struct tags doing the mechanical validation
// (go-playground/validator), and a Validate() method doing the validation
// a tag can't express (cross-field checks, duration parsing, role lookup).
package config

import (
	"fmt"
	"time"

	"github.com/modelcouncil/council/pkg/roles"
	"github.com/modelcouncil/council/pkg/trace"
)

// Config is the complete, process-wide configuration for one council
// deployment: the HTTP server, the conversation store, CORS, logging, the
// deliberation policy, and the per-provider model client settings.
type Config struct {
	Server       ServerConfig              `yaml:"server" koanf:"server"`
	Store        StoreConfig               `yaml:"store" koanf:"store"`
	CORS         CORSConfig                `yaml:"cors" koanf:"cors"`
	Logging      LoggingConfig             `yaml:"logging" koanf:"logging"`
	Council      CouncilConfig             `yaml:"council" koanf:"council"`
	ModelClients map[string]ModelClientRef `yaml:"model_clients" koanf:"model_clients"`
}

// ServerConfig configures the HTTP/SSE boundary.
type ServerConfig struct {
	Address string `yaml:"address" koanf:"address" validate:"required"`
}

// StoreConfig configures the file-backed conversation store.
type StoreConfig struct {
	Path string `yaml:"path" koanf:"path" validate:"required"`
}

// CORSConfig configures which origins the HTTP boundary accepts.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins" koanf:"allowed_origins"`
}

// LoggingConfig configures pkg/logging.Configure.
type LoggingConfig struct {
	Level  string `yaml:"level" koanf:"level" validate:"omitempty,oneof=debug info warn error"`
	Format string `yaml:"format" koanf:"format" validate:"omitempty,oneof=json text"`
}

// ModelClientRef names the registered modelclient factory an alias (e.g.
// "openai") resolves to, plus the registry.Config parameters passed to it.
type ModelClientRef struct {
	Adapter string         `yaml:"adapter" koanf:"adapter" validate:"required"`
	Params  map[string]any `yaml:"params" koanf:"params"`
}

// CouncilMemberConfig is one council member as read from the config file:
// a model id and a role name string, validated against roles.Get before
// conversion to trace.CouncilMember.
type CouncilMemberConfig struct {
	ModelID string `yaml:"model_id" koanf:"model_id" validate:"required"`
	Role    string `yaml:"role" koanf:"role" validate:"required"`
}

// CouncilConfig is the YAML-facing shape of trace.CouncilConfig: durations
// and retry parameters as human-writable strings, converted to a
// trace.CouncilConfig by ToTraceConfig once validated.
type CouncilConfig struct {
	Members            []CouncilMemberConfig `yaml:"members" koanf:"members" validate:"required,min=1,max=26,dive"`
	ChairmanModelID    string                `yaml:"chairman_model_id" koanf:"chairman_model_id" validate:"required"`
	AdjudicatorModelID string                `yaml:"adjudicator_model_id,omitempty" koanf:"adjudicator_model_id"`

	Stage1Timeout string `yaml:"stage1_timeout" koanf:"stage1_timeout"`
	Stage2Timeout string `yaml:"stage2_timeout" koanf:"stage2_timeout"`
	Stage3Timeout string `yaml:"stage3_timeout" koanf:"stage3_timeout"`
	TitleTimeout  string `yaml:"title_timeout" koanf:"title_timeout"`

	MaxAttempts int    `yaml:"max_attempts" koanf:"max_attempts" validate:"gte=0"`
	BackoffBase string `yaml:"backoff_base" koanf:"backoff_base"`
	BackoffCap  string `yaml:"backoff_cap" koanf:"backoff_cap"`

	MaxPromptBytes int `yaml:"max_prompt_bytes" koanf:"max_prompt_bytes" validate:"gte=0"`
}

const (
	defaultStageTimeout = 30 * time.Second
	defaultTitleTimeout = 10 * time.Second
	defaultMaxAttempts  = 3
	defaultBackoffBase  = 200 * time.Millisecond
	defaultBackoffCap   = 5 * time.Second
)

// Validate checks the fields a struct tag can't: duration strings parse,
// and every member references a known role. The Chairman and Adjudicator
// are not checked here, and whether a model id is present in ModelClients'
// alias space is left to runtime wiring (model ids are opaque
// "<provider>:<model>" strings, not something this package can check
// against a live registry).
func (c *Config) Validate() error {
	for _, d := range []struct{ name, value string }{
		{"council.stage1_timeout", c.Council.Stage1Timeout},
		{"council.stage2_timeout", c.Council.Stage2Timeout},
		{"council.stage3_timeout", c.Council.Stage3Timeout},
		{"council.title_timeout", c.Council.TitleTimeout},
		{"council.backoff_base", c.Council.BackoffBase},
		{"council.backoff_cap", c.Council.BackoffCap},
	} {
		if d.value == "" {
			continue
		}
		if _, err := time.ParseDuration(d.value); err != nil {
			return fmt.Errorf("invalid %s: %w", d.name, err)
		}
	}

	for i, m := range c.Council.Members {
		if _, ok := roles.Get(roles.Name(m.Role)); !ok {
			return fmt.Errorf("council.members[%d]: unknown role %q", i, m.Role)
		}
	}

	return nil
}

// ToTraceConfig converts the YAML-facing CouncilConfig into the
// trace.CouncilConfig the Orchestrator consumes, applying defaults for any
// timing field left unset.
func (c Config) ToTraceConfig() (trace.CouncilConfig, error) {
	members := make([]trace.CouncilMember, len(c.Council.Members))
	for i, m := range c.Council.Members {
		members[i] = trace.CouncilMember{ModelID: m.ModelID, RoleName: roles.Name(m.Role)}
	}

	stage1Timeout, err := parseDurationOrDefault(c.Council.Stage1Timeout, defaultStageTimeout)
	if err != nil {
		return trace.CouncilConfig{}, err
	}
	stage2Timeout, err := parseDurationOrDefault(c.Council.Stage2Timeout, defaultStageTimeout)
	if err != nil {
		return trace.CouncilConfig{}, err
	}
	stage3Timeout, err := parseDurationOrDefault(c.Council.Stage3Timeout, defaultStageTimeout)
	if err != nil {
		return trace.CouncilConfig{}, err
	}
	titleTimeout, err := parseDurationOrDefault(c.Council.TitleTimeout, defaultTitleTimeout)
	if err != nil {
		return trace.CouncilConfig{}, err
	}
	backoffBase, err := parseDurationOrDefault(c.Council.BackoffBase, defaultBackoffBase)
	if err != nil {
		return trace.CouncilConfig{}, err
	}
	backoffCap, err := parseDurationOrDefault(c.Council.BackoffCap, defaultBackoffCap)
	if err != nil {
		return trace.CouncilConfig{}, err
	}

	maxAttempts := c.Council.MaxAttempts
	if maxAttempts == 0 {
		maxAttempts = defaultMaxAttempts
	}

	cfg := trace.CouncilConfig{
		Members:            members,
		ChairmanModelID:    c.Council.ChairmanModelID,
		AdjudicatorModelID: c.Council.AdjudicatorModelID,
		Stage1Timeout:      stage1Timeout,
		Stage2Timeout:      stage2Timeout,
		Stage3Timeout:      stage3Timeout,
		TitleTimeout:       titleTimeout,
		Retry: trace.RetryPolicy{
			MaxAttempts:         maxAttempts,
			RetryableErrorKinds: []trace.ErrorKind{trace.ModelTransient, trace.ModelTimeout},
			BackoffBase:         backoffBase,
			BackoffCap:          backoffCap,
		},
		MaxPromptBytes: c.Council.MaxPromptBytes,
	}

	if err := cfg.Validate(); err != nil {
		return trace.CouncilConfig{}, err
	}
	return cfg, nil
}

func parseDurationOrDefault(s string, def time.Duration) (time.Duration, error) {
	if s == "" {
		return def, nil
	}
	return time.ParseDuration(s)
}

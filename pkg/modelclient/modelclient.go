// Package modelclient defines the abstraction every LLM provider adapter
// must satisfy and the registry new adapters self-register into.
//
// A ModelClient issues exactly one prompt to exactly one named model and
// returns text or a classified error (see pkg/clienterrors). It holds no
// conversation state of its own — the council, judge, chairman, and
// adjudicator calls are all single-turn from the client's point of view.
package modelclient

import (
	"context"

	"github.com/modelcouncil/council/pkg/registry"
)

// ModelClient is the interface every provider adapter (OpenAI, Anthropic,
// Bedrock, Replicate, the deterministic test double) implements.
type ModelClient interface {
	// Complete sends systemPrompt and userPrompt to modelID and returns the
	// model's text. It must honor ctx's deadline: once ctx is done, Complete
	// must return promptly with a Timeout-classified error (or ctx.Err()'s
	// cause) rather than blocking past it. Implementations never retry
	// internally — StageRunner owns retry policy.
	Complete(ctx context.Context, modelID, systemPrompt, userPrompt string) (string, error)
	// Name returns the adapter's registered name (e.g. "openai.Chat").
	Name() string
}

// Registry is the global ModelClient registry. Provider packages register
// themselves via an init() func, matching the teacher's plugin pattern.
var Registry = registry.New[ModelClient]("modelclient")

// Register adds a ModelClient factory to the global registry.
func Register(name string, factory func(registry.Config) (ModelClient, error)) {
	Registry.Register(name, factory)
}

// Create instantiates a ModelClient by registered name.
func Create(name string, cfg registry.Config) (ModelClient, error) {
	return Registry.Create(name, cfg)
}

// List returns all registered ModelClient names.
func List() []string {
	return Registry.List()
}

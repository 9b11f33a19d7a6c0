package modelclient

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/modelcouncil/council/pkg/clienterrors"
)

// Router dispatches a Complete call to a specific provider adapter based on
// a "<provider>:<model-id>" convention (e.g. "openai:gpt-4o-mini",
// "bedrock:anthropic.claude-3-sonnet-20240229-v1:0"), so one CouncilConfig
// can mix council members, the Chairman, and the Adjudicator across
// multiple providers without the orchestrator knowing which adapter backs
// which member. Router itself satisfies ModelClient, so it is the single
// abstract gateway spec.md's ModelClient contract describes — the fact that
// it fans out to several adapters internally is invisible to callers.
type Router struct {
	mu       sync.RWMutex
	adapters map[string]ModelClient
}

// NewRouter constructs an empty Router. Adapters are added with Register.
func NewRouter() *Router {
	return &Router{adapters: make(map[string]ModelClient)}
}

// Register associates a provider prefix with the ModelClient that serves it.
// Re-registering a provider replaces its adapter.
func (r *Router) Register(provider string, client ModelClient) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.adapters[provider] = client
}

// Complete implements ModelClient by splitting modelID on its first colon,
// looking up the provider's adapter, and delegating with the bare model id.
func (r *Router) Complete(ctx context.Context, modelID, systemPrompt, userPrompt string) (string, error) {
	provider, bareModelID, ok := splitModelID(modelID)
	if !ok {
		return "", clienterrors.PermanentErr("router", fmt.Errorf("model id %q is missing a \"provider:model\" prefix", modelID))
	}

	r.mu.RLock()
	client, ok := r.adapters[provider]
	r.mu.RUnlock()
	if !ok {
		return "", clienterrors.PermanentErr("router", fmt.Errorf("no adapter registered for provider %q", provider))
	}

	return client.Complete(ctx, bareModelID, systemPrompt, userPrompt)
}

// Name implements ModelClient.
func (r *Router) Name() string {
	return "router"
}

// Providers returns the registered provider prefixes, for diagnostics.
func (r *Router) Providers() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.adapters))
	for p := range r.adapters {
		out = append(out, p)
	}
	return out
}

func splitModelID(modelID string) (provider, bareModelID string, ok bool) {
	idx := strings.Index(modelID, ":")
	if idx <= 0 || idx == len(modelID)-1 {
		return "", "", false
	}
	return modelID[:idx], modelID[idx+1:], true
}

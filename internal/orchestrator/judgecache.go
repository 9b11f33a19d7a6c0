package orchestrator

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"

	"github.com/modelcouncil/council/pkg/trace"
)

// judgeCache memoizes a judge/adjudicator call by (model, system prompt, user
// prompt) within a single run, grounded in the teacher's
// internal/detectors/judge.Cache length-prefixed SHA-256 key. Scoped to one
// Orchestrator.Run call — a fresh cache is constructed per run, so this never
// grows unbounded and never crosses the cross-run response cache spec.md's
// Non-goals exclude.
type judgeCache struct {
	mu      sync.Mutex
	entries map[string]trace.Judgement
}

func newJudgeCache() *judgeCache {
	return &judgeCache{entries: make(map[string]trace.Judgement)}
}

func judgeCacheKey(modelID, systemPrompt, userPrompt string) string {
	h := sha256.New()
	fmt.Fprintf(h, "%d:%s|%d:%s|%d:%s",
		len(modelID), modelID,
		len(systemPrompt), systemPrompt,
		len(userPrompt), userPrompt)
	return hex.EncodeToString(h.Sum(nil))
}

func (c *judgeCache) get(modelID, systemPrompt, userPrompt string) (trace.Judgement, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	j, ok := c.entries[judgeCacheKey(modelID, systemPrompt, userPrompt)]
	return j, ok
}

func (c *judgeCache) set(modelID, systemPrompt, userPrompt string, j trace.Judgement) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[judgeCacheKey(modelID, systemPrompt, userPrompt)] = j
}

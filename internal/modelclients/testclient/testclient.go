// Package testclient provides a deterministic ModelClient double for testing
// the orchestrator, StageRunner, and adjudication logic without making real
// network calls. It plays the same role as the teacher's internal/generators/test
// package (test.Single, test.Nones, test.Lipsum) but is scriptable: callers
// preload canned responses, latencies, and injected errors per model id.
package testclient

import (
	"context"
	"fmt"
	"sync"

	"github.com/modelcouncil/council/pkg/clienterrors"
	"github.com/modelcouncil/council/pkg/modelclient"
	"github.com/modelcouncil/council/pkg/registry"
)

func init() {
	modelclient.Register("test.Scripted", New)
}

// Reply is one scripted response for a model id.
type Reply struct {
	Text string
	Err  error
}

// Client is a scriptable ModelClient. Zero value is ready to use: Complete
// returns an empty string for any model unless a Reply is queued for it.
type Client struct {
	mu       sync.Mutex
	queues   map[string][]Reply
	fallback *Reply
	calls    []Call
}

// Call records one invocation for assertions in tests.
type Call struct {
	ModelID      string
	SystemPrompt string
	UserPrompt   string
}

// New constructs an empty scripted client. The registry.Config argument is
// ignored; scripted clients are configured programmatically via Enqueue.
func New(_ registry.Config) (modelclient.ModelClient, error) {
	return NewClient(), nil
}

// NewClient constructs an empty scripted client for direct use in tests.
func NewClient() *Client {
	return &Client{queues: make(map[string][]Reply)}
}

// Enqueue appends a scripted reply for modelID. Replies for a model are
// consumed in FIFO order across successive Complete calls; once exhausted,
// the fallback reply (if set via SetFallback) is used.
func (c *Client) Enqueue(modelID string, reply Reply) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.queues == nil {
		c.queues = make(map[string][]Reply)
	}
	c.queues[modelID] = append(c.queues[modelID], reply)
}

// EnqueueText is a convenience wrapper around Enqueue for the success case.
func (c *Client) EnqueueText(modelID, text string) {
	c.Enqueue(modelID, Reply{Text: text})
}

// EnqueueError is a convenience wrapper around Enqueue for the failure case.
func (c *Client) EnqueueError(modelID string, kind clienterrors.Kind, msg string) {
	c.Enqueue(modelID, Reply{Err: clienterrors.New("test", kind, fmt.Errorf("%s", msg))})
}

// SetFallback sets the reply returned once a model's queue is exhausted.
func (c *Client) SetFallback(reply Reply) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fallback = &reply
}

// Complete implements modelclient.ModelClient.
func (c *Client) Complete(ctx context.Context, modelID, systemPrompt, userPrompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", clienterrors.TimeoutErr("test", err)
	}

	c.mu.Lock()
	c.calls = append(c.calls, Call{ModelID: modelID, SystemPrompt: systemPrompt, UserPrompt: userPrompt})

	queue := c.queues[modelID]
	var reply Reply
	if len(queue) > 0 {
		reply = queue[0]
		c.queues[modelID] = queue[1:]
	} else if c.fallback != nil {
		reply = *c.fallback
	}
	c.mu.Unlock()

	if reply.Err != nil {
		return "", reply.Err
	}
	return reply.Text, nil
}

// Calls returns a copy of every recorded invocation, in order.
func (c *Client) Calls() []Call {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Call, len(c.calls))
	copy(out, c.calls)
	return out
}

// Name implements modelclient.ModelClient.
func (c *Client) Name() string {
	return "test.Scripted"
}

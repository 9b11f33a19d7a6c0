// Package httpapi implements the thin demo HTTP+SSE boundary: one endpoint
// that accepts a prompt and streams deliberation lifecycle events, plus a
// /metrics debug endpoint. Grounded in jordanhubbard-tokenhub's
// internal/events.Bus + its SSEHandler, narrowed from that package's
// multi-subscriber pub/sub bus to this system's per-run, single-subscriber
// events.Sink, and using a `data: {...}` wire format (no leading `event:`
// line) to match the JSON envelope the Sink already carries a `type` field
// in. This is the external-HTTP-surface stand-in spec.md names as an
// out-of-scope collaborator contract — the CRUD/auth product surface behind
// it stays unimplemented; only CORS middleware is installed.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/modelcouncil/council/pkg/events"
	"github.com/modelcouncil/council/pkg/trace"
)

// Runner is the narrow contract the demo server depends on. The real
// implementation is *orchestrator.Orchestrator; tests supply a double.
type Runner interface {
	Run(ctx context.Context, conversationID, prompt string, sink *events.Sink) (trace.AssistantMessage, error)
}

// BoundaryChecker is an optional capability a Runner may implement to let
// the HTTP boundary classify a fatal, pre-stage error — an empty or
// oversized prompt, or missing configuration — before committing
// to a streaming response. *orchestrator.Orchestrator implements it; test
// doubles that don't exercise boundary classification don't need to.
type BoundaryChecker interface {
	CheckBoundary(prompt string) error
}

// NewRouter builds the demo server's chi.Mux: CORS, a POST deliberation
// endpoint streaming SSE, and (if metricsHandler is non-nil) /metrics.
func NewRouter(runner Runner, metricsHandler http.Handler, allowedOrigins []string) *chi.Mux {
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Post("/conversations/{conversationID}/messages", deliberateHandler(runner))

	if metricsHandler != nil {
		r.Get("/metrics", metricsHandler.ServeHTTP)
	}

	return r
}

type deliberateRequest struct {
	Prompt string `json:"prompt"`
}

// deliberateHandler decodes a prompt, runs one deliberation, and streams
// every lifecycle event as a `data: {...}\n\n` line, matching spec.md §6's
// wire format. A client disconnect propagates into sink.Abort(), which the
// Orchestrator observes to cancel in-flight stage calls without losing
// whatever already completed.
func deliberateHandler(runner Runner) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conversationID := chi.URLParam(r, "conversationID")
		if conversationID == "" {
			conversationID = uuid.NewString()
		}

		var req deliberateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, fmt.Sprintf("invalid request body: %v", err), http.StatusBadRequest)
			return
		}

		if bc, ok := runner.(BoundaryChecker); ok {
			if err := bc.CheckBoundary(req.Prompt); err != nil {
				status := http.StatusInternalServerError
				switch {
				case errors.Is(err, trace.ErrPromptTooLarge):
					status = http.StatusRequestEntityTooLarge
				case errors.Is(err, trace.ErrPromptEmpty):
					status = http.StatusBadRequest
				}
				http.Error(w, err.Error(), status)
				return
			}
		}

		flusher, ok := w.(http.Flusher)
		if !ok {
			http.Error(w, "streaming unsupported", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.WriteHeader(http.StatusOK)

		sink := events.NewSink()
		runDone := make(chan struct{})
		go func() {
			defer close(runDone)
			_, _ = runner.Run(r.Context(), conversationID, req.Prompt, sink)
		}()

		clientGone := r.Context().Done()
		for {
			select {
			case evt, ok := <-sink.Events():
				if !ok {
					return
				}
				fmt.Fprintf(w, "data: %s\n\n", evt.JSON())
				flusher.Flush()
			case <-clientGone:
				sink.Abort()
				<-runDone
				return
			}
		}
	}
}

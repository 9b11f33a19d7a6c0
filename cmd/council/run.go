package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/modelcouncil/council/pkg/events"
)

// RunCmd runs one deliberation end to end against a loaded config and
// prints each lifecycle event followed by the final assistant message as
// JSON, mirroring the teacher's jsonlEvaluator streaming-then-summary shape.
type RunCmd struct {
	ConfigFile     string        `help:"YAML config file path." type:"existingfile" name:"config-file" required:""`
	Prompt         string        `help:"Prompt text. Reads stdin if omitted." short:"p"`
	ConversationID string        `help:"Conversation id to append to. A new id is generated if omitted." name:"conversation-id"`
	Timeout        time.Duration `help:"Overall run timeout." default:"5m"`
}

func (r *RunCmd) Run() error {
	prompt := r.Prompt
	if prompt == "" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return fmt.Errorf("read prompt from stdin: %w", err)
		}
		prompt = string(data)
	}

	conversationID := r.ConversationID
	if conversationID == "" {
		conversationID = uuid.NewString()
	}

	a, err := buildApp(r.ConfigFile)
	if err != nil {
		return err
	}

	baseCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(baseCtx, r.Timeout)
	defer cancel()

	sink := events.NewSink()
	done := make(chan struct{})
	go func() {
		defer close(done)
		for evt := range sink.Events() {
			fmt.Fprintf(os.Stderr, "event: %s\n", evt.Type)
		}
	}()

	msg, err := a.orch.Run(ctx, conversationID, prompt, sink)
	<-done
	if err != nil {
		return fmt.Errorf("run: %w", err)
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(msg)
}

// Package stagerunner implements the fan-out primitive every stage of the
// deliberation pipeline dispatches its model calls through: concurrent
// dispatch with a per-task deadline, bounded retry for Transient/Timeout
// errors, input-order-preserving results, and cancellation-token
// propagation. It never fails as a whole — a task either succeeds or its
// slot records a classified failure.
//
// Grounded in the teacher's concurrent-fan-out idiom (queryTarget/scoreJudge
// in internal/attackengine/engine.go: an errgroup.Group per batch, one
// goroutine per item via g.Go, each goroutine always returning nil so a
// single item's failure never aborts the others, writing its outcome into a
// pre-sized slice under the shared index instead) combined with
// pkg/retry's backoff loop, generalized via retry.DoWithBackoff to the
// full-jitter formula spec.md requires.
package stagerunner

import (
	"context"
	"errors"
	"time"

	"github.com/modelcouncil/council/pkg/clienterrors"
	"github.com/modelcouncil/council/pkg/retry"
	"github.com/modelcouncil/council/pkg/trace"
	"golang.org/x/sync/errgroup"
)

// Task is one unit of fan-out work: an identifier for logging/results
// correlation and the call to make. Fn must honor the context it is given.
type Task struct {
	ID string
	Fn func(ctx context.Context) (string, error)
}

// Result is one task's outcome. Exactly one of Text or Err is meaningful:
// Err == nil means the task succeeded.
type Result struct {
	ID        string
	Text      string
	Err       error
	Kind      clienterrors.Kind
	Canceled  bool
	Attempts  int
	LatencyMs int64
}

// RunAll dispatches every task concurrently, retries Transient/Timeout
// failures per policy, and returns results in the same order as tasks.
// It never returns an error itself: partial success is the normal outcome.
func RunAll(ctx context.Context, tasks []Task, perTaskTimeout time.Duration, policy trace.RetryPolicy) []Result {
	results := make([]Result, len(tasks))
	retryable := retryableSet(policy.RetryableErrorKinds)
	backoff := retry.FullJitterBackoff(policy.BackoffBase, policy.BackoffCap)

	g, gctx := errgroup.WithContext(ctx)
	for i, task := range tasks {
		i, task := i, task
		g.Go(func() error {
			results[i] = runOne(gctx, task, perTaskTimeout, policy.MaxAttempts, backoff, retryable)
			return nil // a task's own failure is recorded in its slot, never aborts the batch
		})
	}
	_ = g.Wait() // every g.Go above always returns nil; Wait only ever joins the goroutines

	return results
}

func runOne(ctx context.Context, task Task, perTaskTimeout time.Duration, maxAttempts int, backoff func(int) time.Duration, retryable map[trace.ErrorKind]bool) Result {
	start := time.Now()
	res := Result{ID: task.ID}

	err := retry.DoWithBackoff(ctx, maxAttempts, backoff, func(err error) bool {
		if ctx.Err() != nil {
			return false
		}
		return retryable[errorKindOf(err)]
	}, func() error {
		res.Attempts++

		if ctx.Err() != nil {
			return ctx.Err()
		}

		taskCtx := ctx
		var cancel context.CancelFunc
		if perTaskTimeout > 0 {
			taskCtx, cancel = context.WithTimeout(ctx, perTaskTimeout)
			defer cancel()
		}

		text, err := task.Fn(taskCtx)
		if err != nil {
			if taskCtx.Err() != nil && ctx.Err() == nil {
				// The per-task deadline (not the outer cancellation token)
				// expired; make sure the result is classified as Timeout
				// even if the adapter returned an unclassified error.
				err = clienterrors.TimeoutErr("stagerunner", err)
			}
			res.Err = err
			return err
		}
		res.Text = text
		res.Err = nil
		return nil
	})

	res.LatencyMs = time.Since(start).Milliseconds()

	if err == nil {
		res.Err = nil
		res.Kind = ""
		return res
	}

	res.Err = err
	res.Kind = clienterrors.KindOf(err)
	if ctx.Err() != nil && errors.Is(ctx.Err(), context.Canceled) {
		res.Canceled = true
	}
	return res
}

func errorKindOf(err error) trace.ErrorKind {
	switch clienterrors.KindOf(err) {
	case clienterrors.Transient:
		return trace.ModelTransient
	case clienterrors.Permanent:
		return trace.ModelPermanent
	case clienterrors.Timeout:
		return trace.ModelTimeout
	default:
		return ""
	}
}

func retryableSet(kinds []trace.ErrorKind) map[trace.ErrorKind]bool {
	set := make(map[trace.ErrorKind]bool, len(kinds))
	for _, k := range kinds {
		set[k] = true
	}
	return set
}

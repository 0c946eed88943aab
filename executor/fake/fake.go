// Package fake provides a scripted Executor for tests: each task kind
// plays back a fixed sequence of exit codes, and every submission is
// recorded for inspection.
package fake

import (
	"context"
	"sync"

	"github.com/seqpipe/flowsched/executor"
)

type Executor struct {
	mu        sync.Mutex
	scripts   map[string][]int
	plays     map[string]int
	submitted []executor.SubmissionRequest
}

func NewExecutor() *Executor {
	return &Executor{
		scripts: map[string][]int{},
		plays:   map[string]int{},
	}
}

// Script sets the exit codes the kind returns on successive submissions.
// The last code repeats once the script is exhausted; an unscripted kind
// exits 0.
func (e *Executor) Script(kind string, exitCodes ...int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.scripts[kind] = exitCodes
}

func (e *Executor) Submit(ctx context.Context, req executor.SubmissionRequest) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.submitted = append(e.submitted, req)
	codes := e.scripts[req.Kind]
	if len(codes) == 0 {
		return 0, nil
	}
	i := e.plays[req.Kind]
	e.plays[req.Kind]++
	if i >= len(codes) {
		i = len(codes) - 1
	}
	return codes[i], nil
}

// Submitted returns a copy of every request seen so far.
func (e *Executor) Submitted() []executor.SubmissionRequest {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]executor.SubmissionRequest, len(e.submitted))
	copy(out, e.submitted)
	return out
}

// Flaky wraps an Executor so the first n Submit calls fail with err,
// for exercising submission retry.
type Flaky struct {
	Wrapped  executor.Executor
	Err      error
	mu       sync.Mutex
	failures int
}

func NewFlaky(wrapped executor.Executor, failures int, err error) *Flaky {
	return &Flaky{Wrapped: wrapped, Err: err, failures: failures}
}

func (f *Flaky) Submit(ctx context.Context, req executor.SubmissionRequest) (int, error) {
	f.mu.Lock()
	if f.failures > 0 {
		f.failures--
		f.mu.Unlock()
		return 0, f.Err
	}
	f.mu.Unlock()
	return f.Wrapped.Submit(ctx, req)
}

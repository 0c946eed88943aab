// Package sched drives task instances through the policy resolver and
// the executor. Each task instance runs in its own goroutine and owns
// its AttemptState exclusively; the registry, ceiling table and composer
// are shared read-only, so the loop needs no locking.
package sched

import (
	"context"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/seqpipe/flowsched/common/stats"
	"github.com/seqpipe/flowsched/executor"
	"github.com/seqpipe/flowsched/policy"
	"github.com/seqpipe/flowsched/resource"
)

// DeadLetterExitCode marks a task that exhausted its attempts; the real
// last exit code is preserved in the decision stream, the archived
// result carries this sentinel.
const DeadLetterExitCode = -200

// TaskSpec names one unit of pipeline work to run.
type TaskSpec struct {
	Kind       string
	GroupLabel string
}

// TaskResult is the archived terminal state of one task instance.
// Action is the terminal classification; its zero value means the task
// completed successfully and was never classified.
type TaskResult struct {
	TaskID   string
	Kind     string
	Action   policy.Action
	Attempts int
	ExitCode int
}

type Scheduler struct {
	tracker  *policy.Tracker
	resolver *policy.Resolver
	composer *executor.Composer
	exec     executor.Executor
	listener Listener
	stat     stats.StatsReceiver
}

// NewScheduler wires the resolver core to an executor back-end. listener
// may be nil.
func NewScheduler(
	reg *policy.Registry,
	ceilings *resource.CeilingTable,
	composer *executor.Composer,
	exec executor.Executor,
	listener Listener,
	stat stats.StatsReceiver,
) *Scheduler {
	if stat == nil {
		stat = stats.NilStatsReceiver()
	}
	if listener == nil {
		listener = &noopListener{}
	}
	return &Scheduler{
		tracker:  policy.NewTracker(reg, stat.Scope("tracker")),
		resolver: policy.NewResolver(reg, ceilings, stat.Scope("resolver")),
		composer: composer,
		exec:     exec,
		listener: listener,
		stat:     stat,
	}
}

// Resolve is the first of the two core entry points: decide the fate of
// the attempt described by state.
func (s *Scheduler) Resolve(state *policy.AttemptState) (policy.Decision, error) {
	return s.resolver.Resolve(state)
}

// RecordExit is the second core entry point: record a terminal exit code
// for the previous attempt and advance the state.
func (s *Scheduler) RecordExit(state *policy.AttemptState, exitCode int) *policy.AttemptState {
	return s.tracker.RecordExit(state, exitCode)
}

// RunTask drives one task instance until it succeeds or reaches a
// terminal classification. Cancellation is honored between resolver
// calls; an in-flight attempt is left to the executor to wind down.
func (s *Scheduler) RunTask(ctx context.Context, spec TaskSpec) (*TaskResult, error) {
	// A cancelled run must not begin tracking new tasks.
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	state, err := s.tracker.Begin(spec.Kind)
	if err != nil {
		return nil, err
	}
	s.listener.TaskStarted(state)

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		dec, err := s.resolver.Resolve(state)
		if err != nil {
			return nil, err
		}
		s.listener.Resolved(state, dec)

		if dec.Action != policy.Retry {
			exitCode, _ := state.LastExit()
			if dec.Exhausted {
				log.Infof("Dead lettering task:%s kind:%s after max attempts, last exit %d",
					state.TaskID, state.Kind, exitCode)
				exitCode = DeadLetterExitCode
			}
			// RecordExit already advanced past the attempt that failed.
			return s.archive(state, dec.Action, state.AttemptNumber-1, exitCode), nil
		}

		req, err := s.composer.Compose(state.TaskID, state.Kind, dec.Resources, spec.GroupLabel)
		if err != nil {
			return nil, err
		}
		s.listener.Submitting(req)

		exitCode, err := s.exec.Submit(ctx, req)
		if err != nil {
			return nil, err
		}
		s.listener.Exited(state, exitCode)

		if exitCode == 0 {
			s.stat.Counter("completedTasksCounter").Inc(1)
			return s.archive(state, policy.ActionUnknown, state.AttemptNumber, 0), nil
		}
		state = s.tracker.RecordExit(state, exitCode)
	}
}

func (s *Scheduler) archive(state *policy.AttemptState, action policy.Action, attempts, exitCode int) *TaskResult {
	s.tracker.Archive(state)
	result := &TaskResult{
		TaskID:   state.TaskID,
		Kind:     state.Kind,
		Action:   action,
		Attempts: attempts,
		ExitCode: exitCode,
	}
	s.listener.TaskDone(result)
	return result
}

// RunSummary aggregates one pipeline run. Degraded is set when any task
// was ignored, so downstream aggregation steps can tell the report was
// produced from incomplete coverage.
type RunSummary struct {
	Completed int
	Ignored   int
	Fatal     int
	Degraded  bool
	Results   []*TaskResult
}

// RunPipeline runs every spec concurrently and aggregates the results.
// Ignored tasks degrade the summary without stopping the run; the first
// hard error (unknown kind, composition or submission failure) is
// returned after all branches settle.
func (s *Scheduler) RunPipeline(ctx context.Context, specs []TaskSpec) (*RunSummary, error) {
	var wg sync.WaitGroup
	var mu sync.Mutex
	summary := &RunSummary{}
	var firstErr error

	for _, spec := range specs {
		wg.Add(1)
		go func(spec TaskSpec) {
			defer wg.Done()
			result, err := s.RunTask(ctx, spec)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if firstErr == nil {
					firstErr = err
				}
				return
			}
			summary.Results = append(summary.Results, result)
			switch result.Action {
			case policy.Ignore:
				summary.Ignored++
				summary.Degraded = true
			case policy.Fatal:
				summary.Fatal++
			default:
				summary.Completed++
			}
		}(spec)
	}
	wg.Wait()

	if firstErr != nil {
		return summary, firstErr
	}
	return summary, nil
}

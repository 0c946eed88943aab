// Package policy holds the per-task-kind resource and retry policies and
// the resolver that turns (task kind, attempt number, previous exit
// status) into a scheduling decision.
package policy

import (
	"fmt"

	"github.com/seqpipe/flowsched/resource"
)

// Action is the classification of a task attempt.
type Action int

const (
	// An unambiguous 0-value.
	ActionUnknown Action = iota

	// Run (or re-run) the task with resolved resources.
	Retry

	// Soft failure. The task is not resubmitted but the surrounding
	// pipeline keeps going without its output.
	Ignore

	// Unrecoverable. The task is not resubmitted and the failure must be
	// surfaced to the caller.
	Fatal
)

func (a Action) String() string {
	switch a {
	case ActionUnknown:
		return "UNKNOWN"
	case Retry:
		return "RETRY"
	case Ignore:
		return "IGNORE"
	case Fatal:
		return "FATAL"
	default:
		panic(fmt.Sprintf("Unexpected Action %v", int(a)))
	}
}

// GrowthMode says how one resource kind escalates with the attempt number.
type GrowthMode int

const (
	GrowthUnknown GrowthMode = iota

	// Request the base quantity on every attempt.
	Constant

	// Request base * attemptNumber.
	Linear
)

func (g GrowthMode) String() string {
	switch g {
	case GrowthUnknown:
		return "UNKNOWN"
	case Constant:
		return "constant"
	case Linear:
		return "linear"
	default:
		panic(fmt.Sprintf("Unexpected GrowthMode %v", int(g)))
	}
}

// Escalation is a serializable escalation rule, one growth mode per
// resource kind. Linear growth is monotone non-decreasing in the attempt
// number by construction, which resubmission relies on: a retry may hold
// or grow a request, never shrink it.
type Escalation struct {
	CPU    GrowthMode
	Memory GrowthMode
	Time   GrowthMode
}

// DefaultEscalation holds cpu flat and grows memory and wall-time with
// each attempt, the common shape for resource-killed retries.
func DefaultEscalation() Escalation {
	return Escalation{CPU: Constant, Memory: Linear, Time: Linear}
}

func (e Escalation) mode(k resource.Kind) GrowthMode {
	switch k {
	case resource.CPU:
		return e.CPU
	case resource.Memory:
		return e.Memory
	case resource.Time:
		return e.Time
	default:
		panic(fmt.Sprintf("Unexpected resource Kind %v", int(k)))
	}
}

// ExitClass classifies exit codes in two tiers: a reserved band of codes
// produced by out-of-memory/out-of-time kills classifies as Retry,
// per-code overrides win over everything, and any other non-zero code is
// an Ignore. The band boundaries are configuration, not constants; the
// conventional default is 137-140.
type ExitClass struct {
	RetryBandLow  int
	RetryBandHigh int
	Overrides     map[int]Action
}

// DefaultRetryBand covers the exit codes grid engines and container
// runtimes conventionally emit for limit kills (128+SIGKILL .. 140).
const (
	DefaultRetryBandLow  = 137
	DefaultRetryBandHigh = 140
)

func DefaultExitClass() ExitClass {
	return ExitClass{RetryBandLow: DefaultRetryBandLow, RetryBandHigh: DefaultRetryBandHigh}
}

// Classify maps a previous exit code to an Action. Exit 0 never reaches
// classification; the scheduler completes the task instead.
func (c ExitClass) Classify(code int) Action {
	if a, ok := c.Overrides[code]; ok {
		return a
	}
	if code >= c.RetryBandLow && code <= c.RetryBandHigh {
		return Retry
	}
	return Ignore
}

// TaskPolicy is the immutable per-task-kind policy record. Policies are
// built at startup, registered, and shared read-only across every
// concurrent resolver call.
type TaskPolicy struct {
	Kind        string
	Base        resource.Bundle
	Escalation  Escalation
	MaxAttempts int
	Exit        ExitClass
}

// Escalate computes the raw (unclamped) resource request for the given
// attempt. Attempts below 1 are treated as 1.
func (p *TaskPolicy) Escalate(attempt int) resource.Bundle {
	if attempt < 1 {
		attempt = 1
	}
	out := p.Base
	for _, k := range resource.Kinds {
		if p.Escalation.mode(k) == Linear {
			out = out.With(k, p.Base.Get(k)*uint64(attempt))
		}
	}
	return out
}

// Validate checks the policy is well-formed enough to dispatch against.
func (p *TaskPolicy) Validate() error {
	if p.Kind == "" {
		return fmt.Errorf("task policy with empty kind")
	}
	if !p.Base.IsComplete() {
		return fmt.Errorf("task policy %q: base resources incomplete: %v", p.Kind, p.Base)
	}
	if p.MaxAttempts < 1 {
		return fmt.Errorf("task policy %q: maxAttempts %d < 1", p.Kind, p.MaxAttempts)
	}
	if p.Exit.RetryBandLow > p.Exit.RetryBandHigh {
		return fmt.Errorf("task policy %q: retry band [%d,%d] inverted",
			p.Kind, p.Exit.RetryBandLow, p.Exit.RetryBandHigh)
	}
	return nil
}

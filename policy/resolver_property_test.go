// +build property_test

package policy

import (
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/seqpipe/flowsched/resource"
)

func propPolicy(baseGB int, maxAttempts int) *TaskPolicy {
	return &TaskPolicy{
		Kind:        "prop_task",
		Base:        resource.Bundle{CPUs: 1, Memory: resource.MemSize(baseGB) * gb, Time: time.Hour},
		Escalation:  DefaultEscalation(),
		MaxAttempts: maxAttempts,
		Exit:        DefaultExitClass(),
	}
}

func Test_Escalation_MonotoneNonDecreasing(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 1000
	properties := gopter.NewProperties(parameters)

	properties.Property("memory and time never shrink with the attempt number", prop.ForAll(
		func(baseGB int, attempt int) bool {
			p := propPolicy(baseGB, 100)
			prev := p.Escalate(attempt - 1)
			cur := p.Escalate(attempt)
			return cur.Memory >= prev.Memory && cur.Time >= prev.Time && cur.CPUs == prev.CPUs
		},
		gen.IntRange(1, 64),
		gen.IntRange(2, 50),
	))

	properties.TestingRun(t)
}

func Test_Resolve_ExhaustedAlwaysFatal(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 1000
	properties := gopter.NewProperties(parameters)

	properties.Property("any exit code past maxAttempts resolves Fatal", prop.ForAll(
		func(maxAttempts int, past int, exitCode int) bool {
			reg := NewRegistry()
			if err := reg.Register(propPolicy(4, maxAttempts)); err != nil {
				return false
			}
			tracker := NewTracker(reg, nil)
			resolver := NewResolver(reg, nil, nil)

			state, err := tracker.Begin("prop_task")
			if err != nil {
				return false
			}
			for state.AttemptNumber <= maxAttempts+past {
				state = tracker.RecordExit(state, exitCode)
			}
			dec, err := resolver.Resolve(state)
			if err != nil {
				return false
			}
			return dec.Action == Fatal && dec.Exhausted
		},
		gen.IntRange(1, 10),
		gen.IntRange(0, 5),
		gen.IntRange(1, 255),
	))

	properties.TestingRun(t)
}

func Test_Resolve_FirstAttemptAlwaysRuns(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 1000
	properties := gopter.NewProperties(parameters)

	properties.Property("a fresh state resolves Retry whatever the classifier says", prop.ForAll(
		func(overrideCode int, overrideAction int) bool {
			p := propPolicy(4, 1)
			p.Exit.Overrides = map[int]Action{overrideCode: Action(overrideAction)}
			reg := NewRegistry()
			if err := reg.Register(p); err != nil {
				return false
			}
			tracker := NewTracker(reg, nil)
			resolver := NewResolver(reg, nil, nil)

			state, err := tracker.Begin("prop_task")
			if err != nil {
				return false
			}
			dec, err := resolver.Resolve(state)
			return err == nil && dec.Action == Retry
		},
		gen.IntRange(0, 255),
		gen.IntRange(int(Retry), int(Fatal)),
	))

	properties.TestingRun(t)
}

package policy

import (
	log "github.com/sirupsen/logrus"

	"github.com/seqpipe/flowsched/common/stats"
	"github.com/seqpipe/flowsched/resource"
)

// Decision is the resolver's answer for one attempt: what to do, and for
// a Retry, the clamped resources to request.
type Decision struct {
	Action    Action
	Resources resource.Bundle

	// Exhausted is set when a Retry classification was downgraded to
	// Fatal because the task used up its attempts.
	Exhausted bool
}

// Resolver applies the policy for a task's next attempt. It is a pure
// function over the read-only registry and ceiling table plus the
// caller-owned AttemptState, so concurrent calls need no locking.
type Resolver struct {
	reg      *Registry
	ceilings *resource.CeilingTable
	stat     stats.StatsReceiver
}

func NewResolver(reg *Registry, ceilings *resource.CeilingTable, stat stats.StatsReceiver) *Resolver {
	if stat == nil {
		stat = stats.NilStatsReceiver()
	}
	if ceilings == nil {
		ceilings = resource.Unbounded()
	}
	return &Resolver{reg: reg, ceilings: ceilings, stat: stat}
}

// Resolve decides the fate of the attempt described by state:
//
// A first attempt (no recorded exit) always runs. Otherwise the previous
// exit code is classified by the task's policy; a Retry that has already
// used up MaxAttempts is downgraded to Fatal. For a Retry the escalated
// request is clamped against the ceiling table before it is returned.
//
// Retry, Ignore and Fatal are all regular outcomes, not errors; the only
// error is an unregistered task kind, which startup validation should
// have caught already.
func (r *Resolver) Resolve(state *AttemptState) (Decision, error) {
	p, err := r.reg.Lookup(state.Kind)
	if err != nil {
		return Decision{}, err
	}

	action := Retry
	if code, ok := state.LastExit(); ok {
		action = p.Exit.Classify(code)
	}
	exhausted := false
	if state.AttemptNumber > p.MaxAttempts {
		// Attempts exhausted: Fatal no matter what the code said.
		action = Fatal
		exhausted = true
	}

	switch action {
	case Retry:
		raw := p.Escalate(state.AttemptNumber)
		resolved := r.ceilings.ClampBundle(raw)
		if resolved != raw {
			r.stat.Counter("clampedRequestsCounter").Inc(1)
		}
		r.stat.Counter("resolvedRetryCounter").Inc(1)
		log.Debugf("Resolved task:%s kind:%s attempt:%d -> %v %v",
			state.TaskID, state.Kind, state.AttemptNumber, action, resolved)
		return Decision{Action: Retry, Resources: resolved}, nil
	case Ignore:
		r.stat.Counter("resolvedIgnoreCounter").Inc(1)
	case Fatal:
		r.stat.Counter("resolvedFatalCounter").Inc(1)
	}
	log.Debugf("Resolved task:%s kind:%s attempt:%d -> %v exhausted:%t",
		state.TaskID, state.Kind, state.AttemptNumber, action, exhausted)
	return Decision{Action: action, Exhausted: exhausted}, nil
}

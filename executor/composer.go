package executor

import (
	"fmt"
	"time"

	"github.com/seqpipe/flowsched/common/stats"
	"github.com/seqpipe/flowsched/resource"
)

// Composer merges a resolved bundle with any group-level override,
// applies the executor profile overlay, and emits the final
// SubmissionRequest. Groups pin resources independent of attempt count,
// so an override wins over the resolver's escalation result; the global
// ceilings still bound whatever the group asks for.
type Composer struct {
	groups   map[string]resource.Bundle
	profile  Profile
	ceilings *resource.CeilingTable
	defaults resource.Bundle
	stat     stats.StatsReceiver
}

// DefaultBaseline completes partially specified bundles before
// submission when a task's merge chain leaves a kind unset.
var DefaultBaseline = resource.Bundle{CPUs: 1, Memory: 1024 * mega, Time: time.Hour}

func NewComposer(groups map[string]resource.Bundle, profile Profile, ceilings *resource.CeilingTable, stat stats.StatsReceiver) *Composer {
	if stat == nil {
		stat = stats.NilStatsReceiver()
	}
	if ceilings == nil {
		ceilings = resource.Unbounded()
	}
	if groups == nil {
		groups = map[string]resource.Bundle{}
	}
	return &Composer{
		groups:   groups,
		profile:  profile,
		ceilings: ceilings,
		defaults: DefaultBaseline,
		stat:     stat,
	}
}

// Groups returns the configured group labels.
func (c *Composer) Groups() []string {
	labels := make([]string, 0, len(c.groups))
	for label := range c.groups {
		labels = append(labels, label)
	}
	return labels
}

// Compose builds the submission for one attempt. groupLabel may be
// empty; a non-empty label must name a configured group.
func (c *Composer) Compose(taskID, kind string, resolved resource.Bundle, groupLabel string) (SubmissionRequest, error) {
	merged := resolved
	if groupLabel != "" {
		override, ok := c.groups[groupLabel]
		if !ok {
			return SubmissionRequest{}, fmt.Errorf("no resource group configured for label %q", groupLabel)
		}
		// Set kinds in the override replace the resolved values.
		merged = override.Merge(resolved)
		c.stat.Counter("groupOverridesCounter").Inc(1)
	}

	merged = merged.Merge(c.defaults)
	merged = c.ceilings.ClampBundle(merged)
	final := c.profile.Overlay(merged)
	if !final.IsComplete() {
		return SubmissionRequest{}, fmt.Errorf(
			"task %s kind %s: incomplete resources after composition: %v", taskID, kind, final)
	}

	return SubmissionRequest{
		TaskID:     taskID,
		Kind:       kind,
		GroupLabel: groupLabel,
		Resources:  final,
		Argv:       c.profile.SubmissionArgs(final),
	}, nil
}

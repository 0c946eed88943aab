// Package config parses the static startup configuration: global
// resource ceilings, per-task-kind policies, named resource groups and
// the executor profile. Everything is loaded once; the objects it
// creates are read-only for the rest of the run.
package config

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/pkg/errors"

	"github.com/seqpipe/flowsched/common/stats"
	"github.com/seqpipe/flowsched/executor"
	"github.com/seqpipe/flowsched/policy"
	"github.com/seqpipe/flowsched/resource"
	"github.com/seqpipe/flowsched/sched"
)

// Config is the top-level parsed configuration. It defines how to create
// each of the resolver's (configurable) collaborators and then creates
// the scheduler.
type Config struct {
	Ceilings CeilingsConfig
	Groups   map[string]GroupConfig
	Policies []PolicyConfig
	Executor ExecutorConfig
}

// CeilingsConfig is the global ceiling set. Empty fields are unbounded.
// Values are kept as strings here; malformed entries are deferred to
// clamp-time warnings rather than failing startup.
type CeilingsConfig struct {
	MaxCpus   string
	MaxMemory string
	MaxTime   string
}

func (c *CeilingsConfig) Create() *resource.CeilingTable {
	return resource.NewCeilingTable(resource.CeilingSpec{
		MaxCPUs:   c.MaxCpus,
		MaxMemory: c.MaxMemory,
		MaxTime:   c.MaxTime,
	})
}

// GroupConfig is a named resource-group override, e.g.
// "high_sensitivity": {"Cpus": 1, "Memory": "40 GB"}. Unset fields leave
// the task's own resolution in place.
type GroupConfig struct {
	Cpus   int    `json:",omitempty"`
	Memory string `json:",omitempty"`
	Time   string `json:",omitempty"`
}

func (g *GroupConfig) Create() (resource.Bundle, error) {
	b := resource.Bundle{CPUs: g.Cpus}
	if g.Memory != "" {
		m, err := resource.ParseMemSize(g.Memory)
		if err != nil {
			return b, errors.Wrapf(err, "parsing group memory %q", g.Memory)
		}
		b.Memory = m
	}
	if g.Time != "" {
		d, err := time.ParseDuration(g.Time)
		if err != nil {
			return b, errors.Wrapf(err, "parsing group time %q", g.Time)
		}
		b.Time = d
	}
	return b, nil
}

// PolicyConfig is one per-task-kind policy entry.
type PolicyConfig struct {
	Kind        string
	Cpus        int
	Memory      string
	Time        string
	MaxAttempts int

	// Escalation mode per kind: "constant" or "linear". Empty means the
	// default (constant cpu, linear memory/time).
	Escalation EscalationConfig `json:",omitempty"`

	// RetryBand overrides the default 137-140 resource-kill band,
	// inclusive on both ends.
	RetryBand *BandConfig `json:",omitempty"`

	// FatalCodes are exit codes that are unrecoverable application
	// errors for this kind; RetryCodes force a retry for codes outside
	// the band.
	FatalCodes []int `json:",omitempty"`
	RetryCodes []int `json:",omitempty"`
}

type EscalationConfig struct {
	Cpu    string `json:",omitempty"`
	Memory string `json:",omitempty"`
	Time   string `json:",omitempty"`
}

type BandConfig struct {
	Low  int
	High int
}

func (p *PolicyConfig) Create() (*policy.TaskPolicy, error) {
	mem, err := resource.ParseMemSize(p.Memory)
	if err != nil {
		return nil, errors.Wrapf(err, "policy %q: parsing memory %q", p.Kind, p.Memory)
	}
	dur, err := time.ParseDuration(p.Time)
	if err != nil {
		return nil, errors.Wrapf(err, "policy %q: parsing time %q", p.Kind, p.Time)
	}

	esc := policy.DefaultEscalation()
	if err := applyGrowth(&esc.CPU, p.Escalation.Cpu); err != nil {
		return nil, errors.Wrapf(err, "policy %q: cpu escalation", p.Kind)
	}
	if err := applyGrowth(&esc.Memory, p.Escalation.Memory); err != nil {
		return nil, errors.Wrapf(err, "policy %q: memory escalation", p.Kind)
	}
	if err := applyGrowth(&esc.Time, p.Escalation.Time); err != nil {
		return nil, errors.Wrapf(err, "policy %q: time escalation", p.Kind)
	}

	exit := policy.DefaultExitClass()
	if p.RetryBand != nil {
		exit.RetryBandLow = p.RetryBand.Low
		exit.RetryBandHigh = p.RetryBand.High
	}
	if len(p.FatalCodes) > 0 || len(p.RetryCodes) > 0 {
		exit.Overrides = map[int]policy.Action{}
		for _, code := range p.RetryCodes {
			exit.Overrides[code] = policy.Retry
		}
		for _, code := range p.FatalCodes {
			exit.Overrides[code] = policy.Fatal
		}
	}

	maxAttempts := p.MaxAttempts
	if maxAttempts == 0 {
		maxAttempts = 1
	}

	tp := &policy.TaskPolicy{
		Kind:        p.Kind,
		Base:        resource.Bundle{CPUs: p.Cpus, Memory: mem, Time: dur},
		Escalation:  esc,
		MaxAttempts: maxAttempts,
		Exit:        exit,
	}
	if err := tp.Validate(); err != nil {
		return nil, err
	}
	return tp, nil
}

func applyGrowth(mode *policy.GrowthMode, s string) error {
	switch s {
	case "":
		return nil
	case "constant":
		*mode = policy.Constant
	case "linear":
		*mode = policy.Linear
	default:
		return fmt.Errorf("unknown growth mode %q", s)
	}
	return nil
}

// ExecutorConfig parses into an executor profile; the back-end that
// honors it is supplied by the embedding application.
type ExecutorConfig interface {
	Create() (executor.Profile, error)
}

// CreateRegistry builds and populates the task policy registry.
func (c *Config) CreateRegistry() (*policy.Registry, error) {
	reg := policy.NewRegistry()
	for i := range c.Policies {
		p, err := c.Policies[i].Create()
		if err != nil {
			return nil, err
		}
		if err := reg.Register(p); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

// CreateGroups builds the named override bundles.
func (c *Config) CreateGroups() (map[string]resource.Bundle, error) {
	groups := map[string]resource.Bundle{}
	for label := range c.Groups {
		g := c.Groups[label]
		b, err := g.Create()
		if err != nil {
			return nil, errors.Wrapf(err, "group %q", label)
		}
		groups[label] = b
	}
	return groups, nil
}

// Create assembles a scheduler over the given executor back-end. The
// caller supplies the kinds the surrounding pipeline will dispatch so a
// missing policy fails here, at startup, not at dispatch time.
func (c *Config) Create(exec executor.Executor, kinds []string, listener sched.Listener, stat stats.StatsReceiver) (*sched.Scheduler, error) {
	if stat == nil {
		stat = stats.NilStatsReceiver()
	}
	reg, err := c.CreateRegistry()
	if err != nil {
		return nil, err
	}
	if err := reg.Validate(kinds); err != nil {
		return nil, err
	}

	ceilings := c.Ceilings.Create()

	groups, err := c.CreateGroups()
	if err != nil {
		return nil, err
	}

	profile, err := c.Executor.Create()
	if err != nil {
		return nil, err
	}

	composer := executor.NewComposer(groups, profile, ceilings, stat.Scope("composer"))
	exec = executor.NewRetryingExecutor(exec, stat.Scope("executor"))
	return sched.NewScheduler(reg, ceilings, composer, exec, listener, stat), nil
}

// Scheduler config parsed from JSON. Executor parses into an empty
// string or a JSON object with a "type" field which picks the concrete
// config to parse it as.
type topLevelConfig struct {
	Ceilings json.RawMessage
	Groups   json.RawMessage
	Policies json.RawMessage
	Executor json.RawMessage
}

type typeConfig struct {
	Type string
}

var emptyJson = []byte("{}")

func parseType(data json.RawMessage) (string, []byte) {
	if len(data) == 0 {
		return "", emptyJson
	}

	var t typeConfig
	err := json.Unmarshal(data, &t)
	if err != nil {
		return "", emptyJson
	}
	return t.Type, data
}

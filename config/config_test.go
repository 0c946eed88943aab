package config_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/seqpipe/flowsched/common/stats"
	"github.com/seqpipe/flowsched/config"
	"github.com/seqpipe/flowsched/executor"
	"github.com/seqpipe/flowsched/policy"
	"github.com/seqpipe/flowsched/resource"
)

const gb = 1024 * 1024 * 1024

type nopExecutor struct{}

func (nopExecutor) Submit(ctx context.Context, req executor.SubmissionRequest) (int, error) {
	return 0, nil
}

const fullConfig = `{
	"Ceilings": {"MaxCpus": "8", "MaxMemory": "36 GB", "MaxTime": "24h"},
	"Groups": {
		"standard":         {"Cpus": 1, "Memory": "36 GB"},
		"high_sensitivity": {"Cpus": 1, "Memory": "40 GB"},
		"low_resource":     {"Cpus": 1, "Memory": "10 GB"}
	},
	"Policies": [
		{"Kind": "kmer_freqs", "Cpus": 1, "Memory": "2 GB", "Time": "1h", "MaxAttempts": 2},
		{"Kind": "consensus_build", "Cpus": 2, "Memory": "4 GB", "Time": "2h", "MaxAttempts": 3},
		{"Kind": "draft_selection", "Cpus": 1, "Memory": "2 GB", "Time": "1h", "MaxAttempts": 5,
		 "FatalCodes": [73]}
	],
	"Executor": {"Type": "gridengine", "Options": "-q long.q"}
}`

func TestParseFullConfig(t *testing.T) {
	p := config.DefaultParser()
	cfg, err := p.Parse([]byte(fullConfig))
	if err != nil {
		t.Fatalf("Error parsing config: %v", err)
	}

	reg, err := cfg.CreateRegistry()
	if err != nil {
		t.Fatalf("Error creating registry: %v", err)
	}
	if err := reg.Validate([]string{"kmer_freqs", "consensus_build", "draft_selection"}); err != nil {
		t.Errorf("Expected registry to validate the configured kinds: %v", err)
	}

	pol, err := reg.Lookup("consensus_build")
	if err != nil {
		t.Fatalf("Error looking up policy: %v", err)
	}
	if pol.Base.Memory != 4*gb || pol.MaxAttempts != 3 {
		t.Errorf("Unexpected policy values: %+v", pol)
	}
	if pol.Escalation.Memory != policy.Linear || pol.Escalation.CPU != policy.Constant {
		t.Errorf("Expected default escalation modes, got %+v", pol.Escalation)
	}

	draft, _ := reg.Lookup("draft_selection")
	if draft.Exit.Classify(73) != policy.Fatal {
		t.Errorf("Expected fatal override for exit 73")
	}

	groups, err := cfg.CreateGroups()
	if err != nil {
		t.Fatalf("Error creating groups: %v", err)
	}
	if groups["high_sensitivity"].Memory != 40*gb {
		t.Errorf("Unexpected group bundle: %+v", groups["high_sensitivity"])
	}

	profile, err := cfg.Executor.Create()
	if err != nil {
		t.Fatalf("Error creating executor profile: %v", err)
	}
	if profile.Flavor != executor.GridEngine || profile.ExtraOptions != "-q long.q" {
		t.Errorf("Unexpected executor profile: %+v", profile)
	}

	table := cfg.Ceilings.Create()
	if got := table.Clamp(resource.Memory, 40*gb); got != 36*gb {
		t.Errorf("Expected ceilings wired through, got %d", got)
	}
}

func TestExecutorRoundtrip(t *testing.T) {
	before := `{
 "Type": "gridengine",
 "Options": "-q long.q"
}`

	p := config.DefaultParser()
	cfg, err := p.Parse([]byte(`{"Executor": ` + before + `}`))
	if err != nil {
		t.Fatalf("Error parsing before: %v", err)
	}

	bytes, err := json.MarshalIndent(cfg.Executor, "", " ")
	if err != nil {
		t.Fatalf("Error encoding Executor to json: %v.", err)
	}
	after := string(bytes)
	if before != after {
		t.Fatalf("Error converting back to json, before/after:\n^%v$\n#####\n^%v$", before, after)
	}
}

func TestParseDefaults(t *testing.T) {
	p := config.DefaultParser()
	cfg, err := p.Parse(nil)
	if err != nil {
		t.Fatalf("Error parsing empty config: %v", err)
	}
	profile, err := cfg.Executor.Create()
	if err != nil {
		t.Fatalf("Error creating default profile: %v", err)
	}
	if profile.Flavor != executor.Local {
		t.Errorf("Expected local execution by default, got %v", profile.Flavor)
	}

	if _, err := p.DefaultJSON(); err != nil {
		t.Errorf("Error rendering default JSON: %v", err)
	}
}

func TestParseErrors(t *testing.T) {
	p := config.DefaultParser()

	if _, err := p.Parse([]byte(`{"Executor": {"Type": "mainframe"}}`)); err == nil {
		t.Errorf("Expected unknown executor type to fail parsing")
	}

	cfg, err := p.Parse([]byte(`{"Policies": [
		{"Kind": "kmer_freqs", "Cpus": 1, "Memory": "plenty", "Time": "1h", "MaxAttempts": 2}]}`))
	if err != nil {
		t.Fatalf("Error parsing config: %v", err)
	}
	if _, err := cfg.CreateRegistry(); err == nil {
		t.Errorf("Expected malformed policy memory to fail registry creation")
	}

	cfg, err = p.Parse([]byte(`{"Policies": [
		{"Kind": "kmer_freqs", "Cpus": 1, "Memory": "2 GB", "Time": "1h", "MaxAttempts": 2,
		 "Escalation": {"Memory": "exponential"}}]}`))
	if err != nil {
		t.Fatalf("Error parsing config: %v", err)
	}
	if _, err := cfg.CreateRegistry(); err == nil {
		t.Errorf("Expected unknown growth mode to fail registry creation")
	}

	cfg, err = p.Parse([]byte(`{"Groups": {"standard": {"Memory": "plenty"}}}`))
	if err != nil {
		t.Fatalf("Error parsing config: %v", err)
	}
	if _, err := cfg.CreateGroups(); err == nil {
		t.Errorf("Expected malformed group memory to fail group creation")
	}
}

func TestCreateScheduler(t *testing.T) {
	p := config.DefaultParser()
	cfg, err := p.Parse([]byte(fullConfig))
	if err != nil {
		t.Fatalf("Error parsing config: %v", err)
	}

	_, err = cfg.Create(nopExecutor{}, []string{"kmer_freqs"}, nil, stats.NilStatsReceiver())
	if err != nil {
		t.Fatalf("Error creating scheduler: %v", err)
	}

	_, err = cfg.Create(nopExecutor{}, []string{"polishing"}, nil, stats.NilStatsReceiver())
	if _, ok := err.(*policy.UnknownTaskKindError); !ok {
		t.Errorf("Expected startup validation to catch the unknown kind, got %v", err)
	}
}

func TestMalformedCeilingDeferred(t *testing.T) {
	p := config.DefaultParser()
	cfg, err := p.Parse([]byte(`{"Ceilings": {"MaxMemory": "many gigabytes"}}`))
	if err != nil {
		t.Fatalf("Expected malformed ceiling not to fail parsing: %v", err)
	}
	table := cfg.Ceilings.Create()
	if got := table.Clamp(resource.Memory, 40*gb); got != 40*gb {
		t.Errorf("Expected malformed ceiling to defer to unclamped values, got %d", got)
	}
}

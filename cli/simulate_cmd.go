package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/seqpipe/flowsched/executor/fake"
	"github.com/seqpipe/flowsched/sched"
)

// simulateCmd runs a scripted pipeline against the fake executor and
// prints the decision stream. Each arg is kind[:group][=code,code,...]
// where the codes are the exit codes successive attempts will see, e.g.
//
//	flowsched simulate -config f.json consensus_build=137,137,0 kmer_freqs
type simulateCmd struct {
	configPath string
	verbose    bool
}

func (c *simulateCmd) registerFlags() *cobra.Command {
	r := &cobra.Command{
		Use:   "simulate",
		Short: "simulate a pipeline run with scripted exit codes",
	}
	r.Flags().StringVar(&c.configPath, "config", "", "path to JSON configuration")
	r.Flags().BoolVar(&c.verbose, "verbose", false, "log every scheduling event")
	return r
}

func (c *simulateCmd) run(cl *simpleCLIClient, cmd *cobra.Command, args []string) error {
	cfg, err := cl.loadConfig(c.configPath)
	if err != nil {
		return err
	}

	exec := fake.NewExecutor()
	var specs []sched.TaskSpec
	var kinds []string
	for _, arg := range args {
		spec, codes, err := parseTaskArg(arg)
		if err != nil {
			return err
		}
		specs = append(specs, spec)
		kinds = append(kinds, spec.Kind)
		if len(codes) > 0 {
			exec.Script(spec.Kind, codes...)
		}
	}

	listener := sched.NewNoopListener()
	if c.verbose {
		listener = sched.NewLoggingListener()
	}
	scheduler, err := cfg.Create(exec, kinds, listener, cl.stat.Scope("sim"))
	if err != nil {
		return err
	}

	summary, err := scheduler.RunPipeline(context.Background(), specs)
	if err != nil {
		return err
	}

	for _, r := range summary.Results {
		fmt.Printf("%s: attempts:%d exit:%d action:%v\n", r.Kind, r.Attempts, r.ExitCode, r.Action)
	}
	fmt.Printf("completed:%d ignored:%d fatal:%d degraded:%t\n",
		summary.Completed, summary.Ignored, summary.Fatal, summary.Degraded)
	return nil
}

func parseTaskArg(arg string) (sched.TaskSpec, []int, error) {
	spec := sched.TaskSpec{}
	var codes []int

	kindPart := arg
	if i := strings.Index(arg, "="); i >= 0 {
		kindPart = arg[:i]
		for _, c := range strings.Split(arg[i+1:], ",") {
			code, err := strconv.Atoi(c)
			if err != nil {
				return spec, nil, errors.Wrapf(err, "bad exit code in %q", arg)
			}
			codes = append(codes, code)
		}
	}
	if i := strings.Index(kindPart, ":"); i >= 0 {
		spec.Kind = kindPart[:i]
		spec.GroupLabel = kindPart[i+1:]
	} else {
		spec.Kind = kindPart
	}
	if spec.Kind == "" {
		return spec, nil, fmt.Errorf("empty task kind in %q", arg)
	}
	return spec, codes, nil
}

package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/seqpipe/flowsched/executor"
	"github.com/seqpipe/flowsched/policy"
)

// resolveCmd answers a one-shot policy query: for this kind, attempt
// number and previous exit code, what would the scheduler do next?
type resolveCmd struct {
	configPath string
	task       string
	attempt    int
	exitCode   int
	group      string
}

func (c *resolveCmd) registerFlags() *cobra.Command {
	r := &cobra.Command{
		Use:   "resolve",
		Short: "resolve the next action and resources for one task attempt",
	}
	r.Flags().StringVar(&c.configPath, "config", "", "path to JSON configuration")
	r.Flags().StringVar(&c.task, "task", "", "task kind to resolve")
	r.Flags().IntVar(&c.attempt, "attempt", 1, "attempt number about to run (from 1)")
	r.Flags().IntVar(&c.exitCode, "exit", -1,
		"previous attempt's exit code, replayed for every prior attempt (-1 for none; negative codes are not queryable)")
	r.Flags().StringVar(&c.group, "group", "", "resource group label")
	return r
}

func (c *resolveCmd) run(cl *simpleCLIClient, cmd *cobra.Command, args []string) error {
	cfg, err := cl.loadConfig(c.configPath)
	if err != nil {
		return err
	}

	reg, err := cfg.CreateRegistry()
	if err != nil {
		return err
	}
	ceilings := cfg.Ceilings.Create()
	groups, err := cfg.CreateGroups()
	if err != nil {
		return err
	}
	profile, err := cfg.Executor.Create()
	if err != nil {
		return err
	}

	tracker := policy.NewTracker(reg, cl.stat.Scope("tracker"))
	state, err := tracker.Begin(c.task)
	if err != nil {
		return err
	}
	if c.exitCode >= 0 {
		for state.AttemptNumber < c.attempt {
			state = tracker.RecordExit(state, c.exitCode)
		}
	}

	resolver := policy.NewResolver(reg, ceilings, cl.stat.Scope("resolver"))
	dec, err := resolver.Resolve(state)
	if err != nil {
		return err
	}

	fmt.Printf("action: %v\n", dec.Action)
	if dec.Exhausted {
		fmt.Println("attempts exhausted")
	}
	if dec.Action != policy.Retry {
		return nil
	}

	composer := executor.NewComposer(groups, profile, ceilings, cl.stat.Scope("composer"))
	req, err := composer.Compose(state.TaskID, state.Kind, dec.Resources, c.group)
	if err != nil {
		return err
	}
	fmt.Printf("resources: %v\n", req.Resources)
	if len(req.Argv) > 0 {
		fmt.Printf("submission args: %v\n", req.Argv)
	}
	return nil
}

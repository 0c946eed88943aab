package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// validateCmd checks a configuration against the task-kind set the
// pipeline will dispatch. A kind without a policy is a configuration/
// code mismatch and fails here rather than at dispatch time.
type validateCmd struct {
	configPath string
	kinds      string
}

func (c *validateCmd) registerFlags() *cobra.Command {
	r := &cobra.Command{
		Use:   "validate",
		Short: "validate a policy configuration against a task-kind set",
	}
	r.Flags().StringVar(&c.configPath, "config", "", "path to JSON configuration")
	r.Flags().StringVar(&c.kinds, "kinds", "", "comma-separated task kinds the pipeline dispatches")
	return r
}

func (c *validateCmd) run(cl *simpleCLIClient, cmd *cobra.Command, args []string) error {
	cfg, err := cl.loadConfig(c.configPath)
	if err != nil {
		return err
	}

	reg, err := cfg.CreateRegistry()
	if err != nil {
		return err
	}

	var kinds []string
	if c.kinds != "" {
		kinds = strings.Split(c.kinds, ",")
	}
	if err := reg.Validate(kinds); err != nil {
		return err
	}

	if _, err := cfg.CreateGroups(); err != nil {
		return err
	}
	if _, err := cfg.Executor.Create(); err != nil {
		return err
	}

	fmt.Printf("OK: %d policies registered (%s)\n", len(reg.Kinds()), strings.Join(reg.Kinds(), ", "))
	return nil
}

// Package cli implements the flowsched command-line tool: startup
// validation of a policy configuration, one-shot policy queries, and a
// scripted simulation of a pipeline run.
package cli

import (
	"io/ioutil"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/seqpipe/flowsched/common/stats"
	"github.com/seqpipe/flowsched/config"
)

// CLI handling for the flowsched tool.
type CLIClient interface {
	Exec() error
}

// Implements CLIClient - basic
type simpleCLIClient struct {
	rootCmd  *cobra.Command
	parser   *config.Parser
	stat     stats.StatsReceiver
	logLevel string
}

func (c *simpleCLIClient) Exec() error {
	return c.rootCmd.Execute()
}

func NewSimpleCLIClient(stat stats.StatsReceiver) (CLIClient, error) {
	if stat == nil {
		stat = stats.NilStatsReceiver()
	}
	c := &simpleCLIClient{parser: config.DefaultParser(), stat: stat}

	c.rootCmd = &cobra.Command{
		Use:               "flowsched",
		Short:             "flowsched resolves task resource & retry policies for a pipeline scheduler",
		Run:               func(*cobra.Command, []string) {},
		PersistentPreRunE: c.setLogLevel,
	}
	c.rootCmd.PersistentFlags().StringVar(&c.logLevel, "log_level", "info",
		"Log everything at this level and above (error|info|debug)")

	c.addCmd(&validateCmd{})
	c.addCmd(&resolveCmd{})
	c.addCmd(&simulateCmd{})

	return c, nil
}

func (c *simpleCLIClient) setLogLevel(cmd *cobra.Command, args []string) error {
	level, err := log.ParseLevel(c.logLevel)
	if err != nil {
		return err
	}
	log.SetLevel(level)
	return nil
}

type cmd interface {
	registerFlags() *cobra.Command
	run(cl *simpleCLIClient, cmd *cobra.Command, args []string) error
}

func (c *simpleCLIClient) addCmd(cmd cmd) {
	cobraCmd := cmd.registerFlags()
	cobraCmd.RunE = func(innerCmd *cobra.Command, args []string) error {
		return cmd.run(c, innerCmd, args)
	}
	c.rootCmd.AddCommand(cobraCmd)
}

func (c *simpleCLIClient) loadConfig(path string) (*config.Config, error) {
	var text []byte
	var err error
	if path != "" {
		text, err = ioutil.ReadFile(path)
		if err != nil {
			return nil, errors.Wrapf(err, "reading config %s", path)
		}
	}
	return c.parser.Parse(text)
}

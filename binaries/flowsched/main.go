package main

import (
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/seqpipe/flowsched/cli"
	"github.com/seqpipe/flowsched/common/log/hooks"
	"github.com/seqpipe/flowsched/common/stats"
)

// CLI binary for the flowsched policy resolver.
//	Supported commands: (see "-h" for all options)
//		validate -config [file] -kinds [k1,k2,...]
//		resolve -config [file] -task [kind] -attempt [n] -exit [code]
//		simulate -config [file] kind[:group][=code,code,...] ...
//	Global flags:
//		--log_level [<error|info|debug> level and above should be logged]

func main() {
	log.AddHook(hooks.NewContextHook())

	stat, cancel := stats.NewLatchedStatsReceiver(500 * time.Millisecond)
	defer cancel()

	cl, err := cli.NewSimpleCLIClient(stat)
	if err != nil {
		log.Fatal("Failed to create flowsched CLI client: ", err)
	}

	err = cl.Exec()
	if err != nil {
		log.Fatal("Error running flowsched ", err)
	}
}

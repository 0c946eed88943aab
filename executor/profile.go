package executor

import (
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/seqpipe/flowsched/resource"
)

// Flavor selects one of the closed set of executor back-end shapes. New
// back-ends are new variants, not submission-string templates.
type Flavor int

const (
	// An unambiguous 0-value.
	FlavorUnknown Flavor = iota

	// In-process / forked local execution.
	Local

	// SGE-style grid engine (qsub semantics).
	GridEngine

	// Slurm-style batch system (sbatch semantics).
	Batch
)

func (f Flavor) String() string {
	switch f {
	case FlavorUnknown:
		return "UNKNOWN"
	case Local:
		return "local"
	case GridEngine:
		return "gridengine"
	case Batch:
		return "batch"
	default:
		panic(fmt.Sprintf("Unexpected executor Flavor %v", int(f)))
	}
}

// ParseFlavor maps a config string to a Flavor.
func ParseFlavor(s string) (Flavor, error) {
	switch s {
	case "", "local":
		return Local, nil
	case "gridengine":
		return GridEngine, nil
	case "batch":
		return Batch, nil
	default:
		return FlavorUnknown, fmt.Errorf("unknown executor flavor %q", s)
	}
}

const mega = 1024 * 1024

// Profile is the executor-specific overlay selected at startup.
// ExtraOptions are platform submission flags appended verbatim to every
// request's argv.
type Profile struct {
	Flavor       Flavor
	ExtraOptions string
}

// Overlay rewrites a bundle into the platform's representation. It may
// round units up or clamp to host capacity but never drops a kind.
func (p Profile) Overlay(b resource.Bundle) resource.Bundle {
	switch p.Flavor {
	case Local:
		// A local run can't use more cores than the host has.
		if n := runtime.NumCPU(); b.CPUs > n {
			b.CPUs = n
		}
		return b
	case GridEngine, Batch:
		// Grid schedulers take whole megabytes and whole seconds; round
		// up so the request never shrinks below what was resolved.
		b.Memory = resource.MemSize(ceilDiv(uint64(b.Memory), mega) * mega)
		if rem := b.Time % time.Second; rem != 0 {
			b.Time += time.Second - rem
		}
		return b
	default:
		return b
	}
}

// SubmissionArgs renders the platform flags for a bundle, with
// ExtraOptions appended.
func (p Profile) SubmissionArgs(b resource.Bundle) []string {
	var args []string
	switch p.Flavor {
	case Local:
		// The local back-end reads the bundle directly.
	case GridEngine:
		args = []string{
			"-pe", "smp", fmt.Sprintf("%d", b.CPUs),
			"-l", fmt.Sprintf("h_vmem=%dM", uint64(b.Memory)/mega),
			"-l", fmt.Sprintf("h_rt=%s", hms(b.Time)),
		}
	case Batch:
		args = []string{
			fmt.Sprintf("--cpus-per-task=%d", b.CPUs),
			fmt.Sprintf("--mem=%dM", uint64(b.Memory)/mega),
			fmt.Sprintf("--time=%d", int(ceilDiv(uint64(b.Time), uint64(time.Minute)))),
		}
	}
	if p.ExtraOptions != "" {
		args = append(args, strings.Fields(p.ExtraOptions)...)
	}
	return args
}

func ceilDiv(v, unit uint64) uint64 {
	return (v + unit - 1) / unit
}

func hms(d time.Duration) string {
	secs := int64(d / time.Second)
	return fmt.Sprintf("%02d:%02d:%02d", secs/3600, (secs%3600)/60, secs%60)
}

package executor

import (
	"reflect"
	"runtime"
	"testing"
	"time"

	"github.com/seqpipe/flowsched/resource"
)

const gb = 1024 * 1024 * 1024

func TestParseFlavor(t *testing.T) {
	for s, want := range map[string]Flavor{"": Local, "local": Local, "gridengine": GridEngine, "batch": Batch} {
		got, err := ParseFlavor(s)
		if err != nil || got != want {
			t.Errorf("ParseFlavor(%q) = %v, %v; want %v", s, got, err, want)
		}
	}
	if _, err := ParseFlavor("mainframe"); err == nil {
		t.Errorf("expected unknown flavor to fail")
	}
}

func TestLocalOverlayClampsToHostCores(t *testing.T) {
	p := Profile{Flavor: Local}
	b := p.Overlay(resource.Bundle{CPUs: 10000, Memory: gb, Time: time.Hour})
	if b.CPUs > runtime.NumCPU() {
		t.Errorf("expected local overlay to clamp cpus to host cores, got %d", b.CPUs)
	}
	if b.Memory != gb || b.Time != time.Hour {
		t.Errorf("expected local overlay to leave memory and time alone, got %v", b)
	}
}

func TestGridOverlayRoundsUnitsUp(t *testing.T) {
	p := Profile{Flavor: GridEngine}
	in := resource.Bundle{CPUs: 2, Memory: gb + 1, Time: time.Hour + time.Millisecond}
	out := p.Overlay(in)

	if out.Memory < in.Memory || uint64(out.Memory)%(1024*1024) != 0 {
		t.Errorf("expected memory rounded up to whole megabytes, got %d", out.Memory)
	}
	if out.Time < in.Time || out.Time%time.Second != 0 {
		t.Errorf("expected time rounded up to whole seconds, got %v", out.Time)
	}
	// No kind may be dropped by an overlay.
	if out.CPUs == 0 || out.Memory == 0 || out.Time == 0 {
		t.Errorf("expected overlay to preserve every resource kind, got %v", out)
	}
}

func TestGridSubmissionArgs(t *testing.T) {
	p := Profile{Flavor: GridEngine, ExtraOptions: "-q long.q"}
	args := p.SubmissionArgs(resource.Bundle{CPUs: 4, Memory: 8 * gb, Time: 2 * time.Hour})
	want := []string{"-pe", "smp", "4", "-l", "h_vmem=8192M", "-l", "h_rt=02:00:00", "-q", "long.q"}
	if !reflect.DeepEqual(args, want) {
		t.Errorf("unexpected grid submission args:\ngot  %v\nwant %v", args, want)
	}
}

func TestBatchSubmissionArgs(t *testing.T) {
	p := Profile{Flavor: Batch}
	args := p.SubmissionArgs(resource.Bundle{CPUs: 1, Memory: 10 * gb, Time: 90 * time.Minute})
	want := []string{"--cpus-per-task=1", "--mem=10240M", "--time=90"}
	if !reflect.DeepEqual(args, want) {
		t.Errorf("unexpected batch submission args:\ngot  %v\nwant %v", args, want)
	}
}

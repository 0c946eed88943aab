package resource

import (
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
)

func TestClamp(t *testing.T) {
	table := NewCeilingTable(CeilingSpec{MaxCPUs: "4", MaxMemory: "36 GB", MaxTime: "24h"})

	if got := table.Clamp(CPU, 8); got != 4 {
		t.Errorf("expected cpu clamped to 4, got %d", got)
	}
	if got := table.Clamp(CPU, 2); got != 2 {
		t.Errorf("expected cpu under the ceiling unchanged, got %d", got)
	}
	if got := table.Clamp(Memory, 40*1024*1024*1024); got != 36*1024*1024*1024 {
		t.Errorf("expected memory clamped to 36 GB, got %d", got)
	}
	if got := table.Clamp(Time, uint64(48*time.Hour)); got != uint64(24*time.Hour) {
		t.Errorf("expected time clamped to 24h, got %d", got)
	}
}

func TestClampIdempotent(t *testing.T) {
	table := NewCeilingTable(CeilingSpec{MaxMemory: "36 GB"})
	v := uint64(50 * 1024 * 1024 * 1024)
	once := table.Clamp(Memory, v)
	if twice := table.Clamp(Memory, once); twice != once {
		t.Errorf("expected clamp to be idempotent: %d != %d", twice, once)
	}
}

func TestClampUnconfiguredKind(t *testing.T) {
	table := NewCeilingTable(CeilingSpec{MaxCPUs: "4"})
	if got := table.Clamp(Memory, 123); got != 123 {
		t.Errorf("expected unconfigured kind to pass through, got %d", got)
	}
	if got := Unbounded().Clamp(CPU, 999); got != 999 {
		t.Errorf("expected unbounded table to pass everything through, got %d", got)
	}
}

// A malformed ceiling must not fail resolution: the value passes through
// unclamped and exactly one warning is logged no matter how often the
// kind is consulted.
func TestClampMalformedCeiling(t *testing.T) {
	hook := test.NewGlobal()
	defer hook.Reset()

	table := NewCeilingTable(CeilingSpec{MaxMemory: "many gigabytes", MaxCPUs: "4"})

	for i := 0; i < 3; i++ {
		if got := table.Clamp(Memory, 40*1024*1024*1024); got != 40*1024*1024*1024 {
			t.Errorf("expected malformed ceiling to leave value unclamped, got %d", got)
		}
	}

	warnings := 0
	for _, e := range hook.AllEntries() {
		if e.Level == logrus.WarnLevel {
			warnings++
		}
	}
	if warnings != 1 {
		t.Errorf("expected exactly one warning for the malformed ceiling, got %d", warnings)
	}

	// The well-formed cpu ceiling still applies.
	if got := table.Clamp(CPU, 8); got != 4 {
		t.Errorf("expected cpu ceiling to survive a malformed sibling, got %d", got)
	}
}

// Package resource provides the quantities the scheduler requests for a
// task attempt: cpu counts, memory byte counts and wall-time, grouped
// into Bundles, plus the process-wide ceiling table they are clamped by.
package resource

import (
	"fmt"
	"time"

	"github.com/c2h5oh/datasize"
)

type Kind int

const (
	// An unambiguous 0-value.
	KindUnknown Kind = iota
	CPU
	Memory
	Time
)

func (k Kind) String() string {
	switch k {
	case KindUnknown:
		return "UNKNOWN"
	case CPU:
		return "CPU"
	case Memory:
		return "MEMORY"
	case Time:
		return "TIME"
	default:
		panic(fmt.Sprintf("Unexpected resource Kind %v", int(k)))
	}
}

// Kinds lists every concrete resource kind, in submission order.
var Kinds = []Kind{CPU, Memory, Time}

// MemSize is a memory quantity in bytes.
type MemSize uint64

func (m MemSize) String() string {
	return datasize.ByteSize(m).HR()
}

// ParseMemSize parses strings like "36 GB" or "512MB" into a byte count.
func ParseMemSize(s string) (MemSize, error) {
	var b datasize.ByteSize
	if err := b.UnmarshalText([]byte(s)); err != nil {
		return 0, err
	}
	return MemSize(b.Bytes()), nil
}

// Bundle is a (possibly partial) resource request. Zero values mean the
// kind is unset; a Bundle must be completed against defaults before it is
// handed to an executor.
type Bundle struct {
	CPUs   int
	Memory MemSize
	Time   time.Duration
}

// Get returns the quantity for kind as a raw count (cores, bytes, ns).
func (b Bundle) Get(k Kind) uint64 {
	switch k {
	case CPU:
		return uint64(b.CPUs)
	case Memory:
		return uint64(b.Memory)
	case Time:
		return uint64(b.Time)
	default:
		panic(fmt.Sprintf("Unexpected resource Kind %v", int(k)))
	}
}

// With returns a copy of b with kind set to the given raw count.
func (b Bundle) With(k Kind, v uint64) Bundle {
	switch k {
	case CPU:
		b.CPUs = int(v)
	case Memory:
		b.Memory = MemSize(v)
	case Time:
		b.Time = time.Duration(v)
	default:
		panic(fmt.Sprintf("Unexpected resource Kind %v", int(k)))
	}
	return b
}

// Merge fills every unset kind in b from defaults and returns the result.
// Set kinds in b always win.
func (b Bundle) Merge(defaults Bundle) Bundle {
	if b.CPUs == 0 {
		b.CPUs = defaults.CPUs
	}
	if b.Memory == 0 {
		b.Memory = defaults.Memory
	}
	if b.Time == 0 {
		b.Time = defaults.Time
	}
	return b
}

// IsComplete reports whether every resource kind is set.
func (b Bundle) IsComplete() bool {
	return b.CPUs > 0 && b.Memory > 0 && b.Time > 0
}

func (b Bundle) String() string {
	return fmt.Sprintf("cpus:%d mem:%s time:%s", b.CPUs, b.Memory, b.Time)
}

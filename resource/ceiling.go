package resource

import (
	"strconv"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// CeilingSpec is the raw, process-wide ceiling configuration. Empty
// strings mean the kind is unbounded.
type CeilingSpec struct {
	MaxCPUs   string
	MaxMemory string
	MaxTime   string
}

// CeilingTable holds the hard upper bound per resource kind. It is built
// once at startup and never mutated, so any number of goroutines may call
// Clamp concurrently.
//
// A ceiling that fails to parse does not fail table construction: the
// kind is treated as unbounded and Clamp logs a warning the first time it
// is consulted. An unbounded request is recoverable downstream, a crashed
// submission is not.
type CeilingTable struct {
	limits map[Kind]uint64
	bad    map[Kind]*badCeiling
}

type badCeiling struct {
	raw  string
	err  error
	once sync.Once
}

// NewCeilingTable parses spec into a table. Parse failures are deferred
// to Clamp time as warnings, never returned.
func NewCeilingTable(spec CeilingSpec) *CeilingTable {
	t := &CeilingTable{
		limits: map[Kind]uint64{},
		bad:    map[Kind]*badCeiling{},
	}
	if spec.MaxCPUs != "" {
		if n, err := strconv.Atoi(spec.MaxCPUs); err != nil || n <= 0 {
			t.bad[CPU] = &badCeiling{raw: spec.MaxCPUs, err: err}
		} else {
			t.limits[CPU] = uint64(n)
		}
	}
	if spec.MaxMemory != "" {
		if m, err := ParseMemSize(spec.MaxMemory); err != nil {
			t.bad[Memory] = &badCeiling{raw: spec.MaxMemory, err: err}
		} else {
			t.limits[Memory] = uint64(m)
		}
	}
	if spec.MaxTime != "" {
		if d, err := time.ParseDuration(spec.MaxTime); err != nil || d <= 0 {
			t.bad[Time] = &badCeiling{raw: spec.MaxTime, err: err}
		} else {
			t.limits[Time] = uint64(d)
		}
	}
	return t
}

// Unbounded returns a table with no ceilings configured.
func Unbounded() *CeilingTable {
	return NewCeilingTable(CeilingSpec{})
}

// Clamp returns min(v, ceiling[k]) if a ceiling is configured for k,
// else v unchanged. Clamp is idempotent.
func (t *CeilingTable) Clamp(k Kind, v uint64) uint64 {
	if b, ok := t.bad[k]; ok {
		b.once.Do(func() {
			log.Warnf("Ignoring malformed %v ceiling %q: %v", k, b.raw, b.err)
		})
		return v
	}
	limit, ok := t.limits[k]
	if !ok {
		return v
	}
	if v > limit {
		return limit
	}
	return v
}

// ClampBundle clamps every kind in b against the table.
func (t *CeilingTable) ClampBundle(b Bundle) Bundle {
	for _, k := range Kinds {
		b = b.With(k, t.Clamp(k, b.Get(k)))
	}
	return b
}

// Limit returns the configured ceiling for k, if any.
func (t *CeilingTable) Limit(k Kind) (uint64, bool) {
	limit, ok := t.limits[k]
	return limit, ok
}

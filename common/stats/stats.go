// Package stats provides a minimal scoped metrics interface backed by
// go-metrics. A StatsReceiver is passed down the call tree and scoped at
// each level, so the resolver, tracker and executor all count into one
// registry without knowing where they sit in the hierarchy.
package stats

import (
	"encoding/json"
	"strings"
	"sync"
	"time"

	metrics "github.com/rcrowley/go-metrics"
	log "github.com/sirupsen/logrus"
	"golang.org/x/net/context"
)

// Hierarchical names use '/' as the path separator; variadic name
// elements containing '/' have it replaced rather than failing, since
// counter names are sometimes built from dynamic values.
const scopeSep = "/"

type Counter interface {
	Inc(int64)
	Count() int64
}

type Gauge interface {
	Update(int64)
	Value() int64
}

type StatsReceiver interface {
	// Scope returns a receiver that namespaces all instruments under the
	// given scope elements:
	//
	//   stat.Scope("resolver").Counter("resolvedRetryCounter")
	Scope(scope ...string) StatsReceiver

	Counter(name ...string) Counter

	Gauge(name ...string) Gauge

	// Remove drops the named instrument if it exists.
	Remove(name ...string)

	// Render marshals the current registry contents to JSON.
	Render(pretty bool) []byte
}

// DefaultStatsReceiver returns a receiver over a fresh registry.
func DefaultStatsReceiver() StatsReceiver {
	return &defaultStatsReceiver{registry: metrics.NewRegistry()}
}

// NewLatchedStatsReceiver starts a goroutine that snapshots the registry
// every interval; Render serves the latest snapshot. Call cancelFn to
// stop the capture goroutine.
func NewLatchedStatsReceiver(interval time.Duration) (stat StatsReceiver, cancelFn func()) {
	s := &defaultStatsReceiver{registry: metrics.NewRegistry(), latched: &latch{}}
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.latched.set(s.render(false))
			}
		}
	}()
	return s, cancel
}

// NilStatsReceiver discards everything it is given.
func NilStatsReceiver(scope ...string) StatsReceiver {
	return &nilStatsReceiver{}
}

type latch struct {
	mu       sync.Mutex
	snapshot []byte
}

func (l *latch) set(b []byte) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.snapshot = b
}

func (l *latch) get() []byte {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.snapshot
}

type defaultStatsReceiver struct {
	registry metrics.Registry
	scope    []string
	latched  *latch
}

func (s *defaultStatsReceiver) Scope(scope ...string) StatsReceiver {
	return &defaultStatsReceiver{
		registry: s.registry,
		scope:    append(append([]string{}, s.scope...), cleanElems(scope)...),
		latched:  s.latched,
	}
}

func (s *defaultStatsReceiver) Counter(name ...string) Counter {
	c := s.registry.GetOrRegister(s.scoped(name), metrics.NewCounter)
	counter, ok := c.(metrics.Counter)
	if !ok {
		log.Errorf("Instrument %s already registered as %T, not a counter", s.scoped(name), c)
		return metrics.NewCounter()
	}
	return counter
}

func (s *defaultStatsReceiver) Gauge(name ...string) Gauge {
	g := s.registry.GetOrRegister(s.scoped(name), metrics.NewGauge)
	gauge, ok := g.(metrics.Gauge)
	if !ok {
		log.Errorf("Instrument %s already registered as %T, not a gauge", s.scoped(name), g)
		return metrics.NewGauge()
	}
	return gauge
}

func (s *defaultStatsReceiver) Remove(name ...string) {
	s.registry.Unregister(s.scoped(name))
}

func (s *defaultStatsReceiver) Render(pretty bool) []byte {
	if s.latched != nil {
		if snap := s.latched.get(); snap != nil {
			return snap
		}
	}
	return s.render(pretty)
}

func (s *defaultStatsReceiver) render(pretty bool) []byte {
	out := map[string]int64{}
	s.registry.Each(func(name string, i interface{}) {
		switch m := i.(type) {
		case metrics.Counter:
			out[name] = m.Count()
		case metrics.Gauge:
			out[name] = m.Value()
		}
	})
	var bytes []byte
	var err error
	if pretty {
		bytes, err = json.MarshalIndent(out, "", "  ")
	} else {
		bytes, err = json.Marshal(out)
	}
	if err != nil {
		log.Errorf("Error rendering stats registry: %v", err)
		return []byte("{}")
	}
	return bytes
}

func (s *defaultStatsReceiver) scoped(name []string) string {
	return strings.Join(append(append([]string{}, s.scope...), cleanElems(name)...), scopeSep)
}

func cleanElems(elems []string) []string {
	out := make([]string, len(elems))
	for i, e := range elems {
		out[i] = strings.Replace(e, scopeSep, "_SLASH_", -1)
	}
	return out
}

type nilStatsReceiver struct{}

func (s *nilStatsReceiver) Scope(scope ...string) StatsReceiver { return s }
func (s *nilStatsReceiver) Counter(name ...string) Counter      { return &nilCounter{} }
func (s *nilStatsReceiver) Gauge(name ...string) Gauge          { return &nilGauge{} }
func (s *nilStatsReceiver) Remove(name ...string)               {}
func (s *nilStatsReceiver) Render(pretty bool) []byte           { return []byte("{}") }

type nilCounter struct{}

func (c *nilCounter) Inc(int64)    {}
func (c *nilCounter) Count() int64 { return 0 }

type nilGauge struct{}

func (g *nilGauge) Update(int64) {}
func (g *nilGauge) Value() int64 { return 0 }

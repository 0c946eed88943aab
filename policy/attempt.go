package policy

import (
	"fmt"
	"time"

	uuid "github.com/nu7hatch/gouuid"

	"github.com/seqpipe/flowsched/common/stats"
)

// AttemptState tracks one task instance across its attempts. It is
// mutable and owned exclusively by the goroutine coordinating that task
// instance; the tracker never shares a state between callers.
type AttemptState struct {
	// TaskID uniquely identifies this task instance across attempts.
	TaskID string

	Kind string

	// AttemptNumber starts at 1 and only ever increments.
	AttemptNumber int

	lastExitCode *int
	archived     bool
}

// LastExit returns the exit code of the previous attempt, if one has
// been recorded.
func (s *AttemptState) LastExit() (int, bool) {
	if s.lastExitCode == nil {
		return 0, false
	}
	return *s.lastExitCode, true
}

// Archived reports whether the state has reached a terminal
// classification and must not be resolved again.
func (s *AttemptState) Archived() bool {
	return s.archived
}

// Tracker creates and advances AttemptStates. One tracker serves all
// task instances; the per-instance state it hands out is not shared.
type Tracker struct {
	reg  *Registry
	stat stats.StatsReceiver
}

func NewTracker(reg *Registry, stat stats.StatsReceiver) *Tracker {
	if stat == nil {
		stat = stats.NilStatsReceiver()
	}
	return &Tracker{reg: reg, stat: stat}
}

// Begin creates the state for a task instance about to run its first
// attempt. Fails with UnknownTaskKindError for an unregistered kind.
func (t *Tracker) Begin(kind string) (*AttemptState, error) {
	if _, err := t.reg.Lookup(kind); err != nil {
		return nil, err
	}
	t.stat.Counter("beganTasksCounter").Inc(1)
	return &AttemptState{TaskID: newTaskID(), Kind: kind, AttemptNumber: 1}, nil
}

// RecordExit stores the exit code of the attempt that just finished and
// advances the attempt number. The resolver reads the advanced state to
// decide whether that next attempt actually runs.
func (t *Tracker) RecordExit(s *AttemptState, exitCode int) *AttemptState {
	code := exitCode
	s.lastExitCode = &code
	s.AttemptNumber++
	t.stat.Counter("recordedExitsCounter").Inc(1)
	return s
}

// Archive marks the state terminal after an Ignore or Fatal
// classification or a successful exit.
func (t *Tracker) Archive(s *AttemptState) {
	if !s.archived {
		s.archived = true
		t.stat.Counter("archivedTasksCounter").Inc(1)
	}
}

func newTaskID() string {
	for i := 0; i < 3; i++ {
		if id, err := uuid.NewV4(); err == nil {
			return id.String()
		}
	}
	// Entropy source persistently failing; fall back to a timestamp id
	// rather than spinning.
	return fmt.Sprintf("task-%d", time.Now().UnixNano())
}

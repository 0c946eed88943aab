package sched

import (
	log "github.com/sirupsen/logrus"

	"github.com/luci/go-render/render"

	"github.com/seqpipe/flowsched/executor"
	"github.com/seqpipe/flowsched/policy"
)

// Listener observes the decision stream for one scheduler. External
// collaborators (trace and report writers) hang off this interface; the
// core never writes files itself.
type Listener interface {
	TaskStarted(*policy.AttemptState)
	Resolved(*policy.AttemptState, policy.Decision)
	Submitting(executor.SubmissionRequest)
	Exited(*policy.AttemptState, int)
	TaskDone(*TaskResult)
}

type noopListener struct{}

func (l *noopListener) TaskStarted(s *policy.AttemptState)                 {}
func (l *noopListener) Resolved(s *policy.AttemptState, d policy.Decision) {}
func (l *noopListener) Submitting(req executor.SubmissionRequest)          {}
func (l *noopListener) Exited(s *policy.AttemptState, exitCode int)        {}
func (l *noopListener) TaskDone(r *TaskResult)                             {}

// NewNoopListener returns a listener that discards everything.
func NewNoopListener() Listener {
	return &noopListener{}
}

// loggingListener logs every event, rendering structs fully for
// debugging.
type loggingListener struct{}

func NewLoggingListener() Listener {
	return &loggingListener{}
}

func (l *loggingListener) TaskStarted(s *policy.AttemptState) {
	log.Infof("Task started - task:%s kind:%s", s.TaskID, s.Kind)
}

func (l *loggingListener) Resolved(s *policy.AttemptState, d policy.Decision) {
	log.Infof("Resolved - task:%s attempt:%d decision:%s", s.TaskID, s.AttemptNumber, render.Render(d))
}

func (l *loggingListener) Submitting(req executor.SubmissionRequest) {
	log.Infof("Submitting - %s", render.Render(req))
}

func (l *loggingListener) Exited(s *policy.AttemptState, exitCode int) {
	log.Infof("Exited - task:%s attempt:%d code:%d", s.TaskID, s.AttemptNumber, exitCode)
}

func (l *loggingListener) TaskDone(r *TaskResult) {
	log.Infof("Task done - %s", render.Render(r))
}

// Package executor turns resolved resource bundles into executor-ready
// submission requests. The executor back-ends themselves (local process
// runner, grid engines) live behind the Executor interface; this package
// only owns the profile overlays, group overrides and submission retry.
package executor

import (
	"context"

	"github.com/cenkalti/backoff"
	log "github.com/sirupsen/logrus"

	"github.com/seqpipe/flowsched/common/stats"
	"github.com/seqpipe/flowsched/resource"
)

// SubmissionRequest is the fully composed unit handed to an executor:
// complete resources plus the platform submission argv rendered by the
// selected profile.
type SubmissionRequest struct {
	TaskID     string
	Kind       string
	GroupLabel string
	Resources  resource.Bundle
	Argv       []string
}

// Executor submits one attempt and blocks until it reports a terminal
// exit code. A non-nil error means the submission itself failed (the
// attempt never ran); task failures are exit codes, not errors.
type Executor interface {
	Submit(ctx context.Context, req SubmissionRequest) (exitCode int, err error)
}

// retryingExecutor retries transient submission errors with exponential
// backoff. Exit codes pass through untouched; retry-on-failure policy
// belongs to the resolver, not here.
type retryingExecutor struct {
	del        Executor
	newBackOff func() backoff.BackOff
	stat       stats.StatsReceiver
}

// NewRetryingExecutor wraps del so Submit survives transient submission
// errors (lost grid master, socket hiccup). Backoff stops when ctx is
// cancelled.
func NewRetryingExecutor(del Executor, stat stats.StatsReceiver) Executor {
	if stat == nil {
		stat = stats.NilStatsReceiver()
	}
	return &retryingExecutor{
		del: del,
		newBackOff: func() backoff.BackOff {
			return backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 5)
		},
		stat: stat,
	}
}

func (e *retryingExecutor) Submit(ctx context.Context, req SubmissionRequest) (exitCode int, err error) {
	try := 0
	b := backoff.WithContext(e.newBackOff(), ctx)
	backoff.Retry(func() error {
		if try > 0 {
			e.stat.Counter("submitRetriesCounter").Inc(1)
			log.Debugf("Submit retry #%d task:%s kind:%s", try, req.TaskID, req.Kind)
		}
		try++
		exitCode, err = e.del.Submit(ctx, req)
		return err
	}, b)
	return exitCode, err
}

package observes

import (
	"context"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/ncobase/askflow/job"
)

type SentryOptions struct {
	Dsn         string
	Name        string
	Release     string
	Environment string
	SampleRate  float64
}

// NewSentry is the register sentry
func NewSentry(opt *SentryOptions) error {
	// if not exist sentry config, skip initialization
	if opt == nil || opt.Dsn == "" {
		return nil
	}

	return sentry.Init(sentry.ClientOptions{
		Dsn:              opt.Dsn,
		AttachStacktrace: true,
		SampleRate:       opt.SampleRate,
		ServerName:       opt.Name,
		Release:          opt.Release,
		Environment:      opt.Environment,
	})
}

// FlushSentry waits for buffered events to be delivered.
func FlushSentry(timeout time.Duration) {
	sentry.Flush(timeout)
}

// SentryObserver reports failed jobs to Sentry.
type SentryObserver struct {
	hub *sentry.Hub
}

// NewSentryObserver creates an observer bound to the current hub.
func NewSentryObserver() *SentryObserver {
	return &SentryObserver{hub: sentry.CurrentHub()}
}

// Observe implements job.Observer.
func (o *SentryObserver) Observe(_ context.Context, e job.Event) {
	if e.To != job.StateFailed || o.hub.Client() == nil {
		return
	}
	o.hub.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("job_kind", string(e.Kind))
		scope.SetTag("job_id", e.JobID)
		msg := "job failed"
		if e.Failure != nil {
			scope.SetTag("failure_code", string(e.Failure.Code))
			msg = e.Failure.Error()
		}
		o.hub.CaptureMessage(msg)
	})
}

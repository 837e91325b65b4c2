package app

import (
	"context"
	"time"

	"github.com/ncobase/askflow/config"
	"github.com/ncobase/askflow/job"
	"github.com/ncobase/askflow/logging/logger"
	"github.com/ncobase/askflow/logging/observes"
	"github.com/ncobase/askflow/messaging"
	"github.com/ncobase/askflow/version"
)

// Telemetry marks that tracing and error reporting are initialised.
type Telemetry struct {
	Tracing bool
	Sentry  bool
}

// ProvideTelemetry installs the OTLP tracer and the Sentry client when they
// are configured. The cleanup flushes both.
func ProvideTelemetry(cfg *config.Config, log *logger.Logger) (*Telemetry, func(), error) {
	t := &Telemetry{}
	if cfg.Observes == nil {
		return t, func() {}, nil
	}
	ver := version.GetVersionInfo().Version

	shutdown := func(context.Context) error { return nil }
	if tc := cfg.Observes.Tracer; tc != nil && tc.Endpoint != "" {
		var err error
		shutdown, err = observes.NewTracer(&observes.TracerOption{
			URL:                tc.Endpoint,
			Name:               tc.ServiceName,
			Version:            ver,
			Environment:        tc.Environment,
			SamplingRate:       tc.SamplingRate,
			BatchTimeout:       tc.BatchTimeout,
			ExportTimeout:      tc.ExportTimeout,
			MaxExportBatchSize: tc.MaxExportBatchSize,
		})
		if err != nil {
			return nil, nil, err
		}
		t.Tracing = true
	}

	if sc := cfg.Observes.Sentry; sc != nil && sc.Endpoint != "" {
		err := observes.NewSentry(&observes.SentryOptions{
			Dsn:         sc.Endpoint,
			Name:        cfg.AppName,
			Release:     ver,
			Environment: sc.Environment,
			SampleRate:  sc.SampleRate,
		})
		if err != nil {
			_ = shutdown(context.Background())
			return nil, nil, err
		}
		t.Sentry = true
	}

	cleanup := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(ctx); err != nil {
			log.Warn(ctx, "Failed to flush traces", "error", err)
		}
		if t.Sentry {
			observes.FlushSentry(2 * time.Second)
		}
	}
	return t, cleanup, nil
}

// ProvideObservers lists the job observers: the event notifier and, when
// configured, Sentry.
func ProvideObservers(t *Telemetry, n *messaging.Notifier) []job.Observer {
	observers := []job.Observer{n}
	if t != nil && t.Sentry {
		observers = append(observers, observes.NewSentryObserver())
	}
	return observers
}

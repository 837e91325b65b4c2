//go:build wireinject

package app

import (
	"github.com/google/wire"
	"github.com/ncobase/askflow/concurrency/worker"
	"github.com/ncobase/askflow/config"
	"github.com/ncobase/askflow/data"
	"github.com/ncobase/askflow/handler"
	"github.com/ncobase/askflow/job"
	"github.com/ncobase/askflow/logging/logger"
	"github.com/ncobase/askflow/messaging"
	"github.com/ncobase/askflow/service"
)

// InitializeApp wires the service from the loaded configuration. The
// cleanup stops the job manager, drains the worker pool, flushes events and
// closes the stores.
func InitializeApp() (*App, func(), error) {
	panic(wire.Build(
		config.ProviderSet,
		logger.ProviderSet,
		ProvideTelemetry,
		data.ProviderSet,
		messaging.ProviderSet,
		ProvideObservers,
		worker.ProviderSet,
		job.ProviderSet,
		service.ProviderSet,
		wire.Bind(new(handler.HealthChecker), new(*data.Data)),
		handler.New,
		NewApp,
	))
}

package service

import (
	"github.com/google/wire"
	"github.com/ncobase/askflow/ask"
	"github.com/ncobase/askflow/config"
	"github.com/ncobase/askflow/job"
	"github.com/ncobase/askflow/logging/logger"
	"github.com/ncobase/askflow/semantics"
)

// ProviderSet is the wire provider set for the service package.
var ProviderSet = wire.NewSet(ProvidePreparer, ProvidePipeline, New)

// ProvidePreparer provides the preparation routine.
func ProvidePreparer(indexes semantics.IndexStore, log *logger.Logger) *semantics.Preparer {
	return semantics.NewPreparer(indexes, log)
}

// ProvidePipeline provides the ask routine with the configured generator.
func ProvidePipeline(indexes semantics.IndexStore, jobs job.Store, cfg *config.Generator, log *logger.Logger) (*ask.Pipeline, error) {
	gen, err := ask.NewGenerator(cfg)
	if err != nil {
		return nil, err
	}
	maxSQLs := 0
	if cfg != nil {
		maxSQLs = cfg.MaxSQLs
	}
	return ask.NewPipeline(indexes, gen, maxSQLs, log, ask.WithPreparations(jobs)), nil
}

package data

import (
	"context"

	"github.com/google/wire"
	"github.com/ncobase/askflow/config"
	"github.com/ncobase/askflow/job"
	"github.com/ncobase/askflow/semantics"
)

// ProviderSet is the wire provider set for the data package.
var ProviderSet = wire.NewSet(ProvideData, ProvideJobStore, ProvideIndexStore)

// ProvideData opens the configured backends; the cleanup closes them.
func ProvideData(cfg *config.Data) (*Data, func(), error) {
	return New(context.Background(), cfg)
}

// ProvideJobStore exposes the job store.
func ProvideJobStore(d *Data) job.Store { return d.Jobs }

// ProvideIndexStore exposes the semantic index store.
func ProvideIndexStore(d *Data) semantics.IndexStore { return d.Indexes }

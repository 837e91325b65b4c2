// Package service exposes preparation and ask use cases over the job manager.
package service

import (
	"time"

	"github.com/ncobase/askflow/ask"
	"github.com/ncobase/askflow/config"
	"github.com/ncobase/askflow/job"
	"github.com/ncobase/askflow/semantics"
)

// Service groups the use cases served over HTTP.
type Service struct {
	Preparation *PreparationService
	Ask         *AskService
	Jobs        *job.Manager
}

// New registers the preparation and ask routines with m.
func New(m *job.Manager, preparer *semantics.Preparer, pipeline *ask.Pipeline, cfg *config.Jobs) (*Service, error) {
	var prepTimeout, askTimeout time.Duration
	if cfg != nil {
		prepTimeout, askTimeout = cfg.PreparationTimeout, cfg.AskTimeout
	}
	if err := m.Register(preparer.Definition(prepTimeout)); err != nil {
		return nil, err
	}
	if err := m.Register(pipeline.Definition(askTimeout)); err != nil {
		return nil, err
	}
	return &Service{
		Preparation: &PreparationService{jobs: m},
		Ask:         &AskService{jobs: m},
		Jobs:        m,
	}, nil
}

package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/ncobase/askflow/ecode"
	"github.com/ncobase/askflow/job"
	"github.com/ncobase/askflow/semantics"
	"github.com/ncobase/askflow/validator"
)

// PreparationService accepts MDL documents and reports indexing progress.
type PreparationService struct {
	jobs *job.Manager
}

// Prepare queues a preparation. A missing id is generated.
func (s *PreparationService) Prepare(ctx context.Context, req *PrepareRequest) (*PrepareResponse, error) {
	if err := validator.Validate(req); err != nil {
		return nil, job.InvalidRequest("%s", err.Error())
	}
	id := req.ID
	if id == "" {
		id = uuid.NewString()
	}

	id, err := s.jobs.Submit(ctx, job.KindPreparation, semantics.PreparationInput{ID: id, MDL: req.MDL}, id)
	if errors.Is(err, job.ErrConflict) {
		return nil, fmt.Errorf("%w: %s", job.ErrConflict, ecode.AlreadyExist("semantics preparation "+req.ID))
	}
	if err != nil {
		return nil, err
	}
	return &PrepareResponse{ID: id}, nil
}

// Status reports the preparation state; asks are not visible here.
func (s *PreparationService) Status(ctx context.Context, id string) (*PreparationStatus, error) {
	rec, err := s.jobs.GetStatus(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec.Kind != job.KindPreparation {
		return nil, fmt.Errorf("%w: %s", job.ErrNotFound, ecode.NotExist("semantics preparation "+id))
	}
	return &PreparationStatus{Status: preparationStatus(rec.State), Error: errorInfo(rec.Error)}, nil
}

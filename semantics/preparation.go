package semantics

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ncobase/askflow/ctxutil"
	"github.com/ncobase/askflow/ecode"
	"github.com/ncobase/askflow/job"
	"github.com/ncobase/askflow/logging/logger"
)

// PreparationInput is what a preparation job receives.
type PreparationInput struct {
	ID  string `json:"id"`
	MDL string `json:"mdl"`
}

// Preparer indexes MDL documents into an IndexStore.
type Preparer struct {
	indexes IndexStore
	log     *logger.Logger
}

// NewPreparer creates a preparation routine backed by indexes.
func NewPreparer(indexes IndexStore, log *logger.Logger) *Preparer {
	if log == nil {
		log = logger.StdLogger()
	}
	return &Preparer{indexes: indexes, log: log}
}

// Definition registers the preparation kind with the job manager.
func (p *Preparer) Definition(timeout time.Duration) job.Definition {
	return job.Definition{
		Kind:     job.KindPreparation,
		Routine:  p,
		Validate: ValidatePreparation,
		Timeout:  timeout,
	}
}

// ValidatePreparation rejects inputs whose mdl cannot be parsed.
func ValidatePreparation(input any) error {
	in, ok := input.(PreparationInput)
	if !ok {
		return job.InvalidRequest("unexpected preparation input %T", input)
	}
	if in.ID == "" {
		return job.InvalidRequest("%s", ecode.FieldIsRequired("id"))
	}
	if _, err := ParseManifest(in.MDL); err != nil {
		return job.InvalidRequest("%s: %v", ecode.FieldIsInvalid("mdl"), err)
	}
	return nil
}

// Run implements job.Routine.
func (p *Preparer) Run(ctx context.Context, input any, probe job.CancelProbe) (any, error) {
	in, ok := input.(PreparationInput)
	if !ok {
		return nil, fmt.Errorf("unexpected preparation input %T", input)
	}

	manifest, err := ParseManifest(in.MDL)
	if err != nil {
		return nil, job.Fail(job.CodeMDLParseError, "%v", err)
	}

	idx, err := BuildIndex(ctx, in.ID, manifest)
	if err != nil {
		return nil, err
	}
	if probe != nil && probe() {
		return nil, job.ErrStopped
	}

	// a preparation past its deadline is already FAILED; its index must not stay behind
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := p.indexes.Save(ctx, idx); err != nil {
		return nil, fmt.Errorf("save index: %w", err)
	}
	if err := ctx.Err(); err != nil {
		if derr := p.indexes.Delete(ctxutil.Detach(ctx), idx.ID); derr != nil {
			p.log.Warn(ctx, "Failed to discard index of an expired preparation", "id", idx.ID, "error", derr)
		}
		return nil, err
	}

	summary := idx.Summary()
	p.log.Info(ctx, "Semantics index built",
		"models", summary.Models,
		"columns", summary.Columns,
		"relationships", summary.Relationships,
	)
	return summary, nil
}

// IsNotReady reports whether err means the preparation has not produced an index.
func IsNotReady(err error) bool {
	return errors.Is(err, ErrIndexNotFound)
}

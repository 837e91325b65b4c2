// Package ask answers natural language questions against a prepared
// semantics index.
package ask

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ncobase/askflow/ecode"
	"github.com/ncobase/askflow/job"
	"github.com/ncobase/askflow/logging/logger"
	"github.com/ncobase/askflow/semantics"
)

// Input is what an ask job receives. ID names the semantics preparation.
type Input struct {
	Query string `json:"query"`
	ID    string `json:"id"`
}

// Pipeline is the ask routine: understanding, searching, then generating,
// with a stop checkpoint after each stage.
type Pipeline struct {
	indexes      semantics.IndexStore
	preparations Records
	generator    Generator
	maxSQLs      int
	log          *logger.Logger
}

// Records looks up job records. job.Store satisfies it.
type Records interface {
	Get(ctx context.Context, id string) (*job.Record, error)
}

// PipelineOption configures a Pipeline.
type PipelineOption func(*Pipeline)

// WithPreparations makes the pipeline answer only against preparations whose
// job record is FINISHED. An index left behind by a preparation that timed
// out or was interrupted is then never used.
func WithPreparations(records Records) PipelineOption {
	return func(p *Pipeline) { p.preparations = records }
}

// NewPipeline creates the ask routine.
func NewPipeline(indexes semantics.IndexStore, generator Generator, maxSQLs int, log *logger.Logger, opts ...PipelineOption) *Pipeline {
	if log == nil {
		log = logger.StdLogger()
	}
	if maxSQLs <= 0 {
		maxSQLs = 3
	}
	p := &Pipeline{indexes: indexes, generator: generator, maxSQLs: maxSQLs, log: log}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Definition registers the ask kind with the job manager.
func (p *Pipeline) Definition(timeout time.Duration) job.Definition {
	return job.Definition{
		Kind:     job.KindAsk,
		Routine:  p,
		Validate: ValidateInput,
		Timeout:  timeout,
	}
}

// ValidateInput requires a non-empty query.
func ValidateInput(input any) error {
	in, ok := input.(Input)
	if !ok {
		return job.InvalidRequest("unexpected ask input %T", input)
	}
	if in.Query == "" {
		return job.InvalidRequest("%s", ecode.FieldIsRequired("query"))
	}
	if strings.TrimSpace(in.Query) == "" {
		return job.InvalidRequest("%s", ecode.FieldIsEmpty("query"))
	}
	return nil
}

func checkpoint(ctx context.Context, probe job.CancelProbe) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if probe != nil && probe() {
		return job.ErrStopped
	}
	return nil
}

// Run implements job.Routine.
func (p *Pipeline) Run(ctx context.Context, input any, probe job.CancelProbe) (any, error) {
	in, ok := input.(Input)
	if !ok {
		return nil, fmt.Errorf("unexpected ask input %T", input)
	}

	// understanding
	tokens := semantics.Tokenize(in.Query)
	if err := checkpoint(ctx, probe); err != nil {
		return nil, err
	}

	// searching
	notReady := job.Fail(job.CodePreparationNotReady, "%s", ecode.NotReady(fmt.Sprintf("semantics preparation %q", in.ID)))
	if p.preparations != nil {
		rec, err := p.preparations.Get(ctx, in.ID)
		if errors.Is(err, job.ErrNotFound) {
			return nil, notReady
		}
		if err != nil {
			return nil, fmt.Errorf("load preparation: %w", err)
		}
		if rec.Kind != job.KindPreparation || rec.State != job.StateFinished {
			return nil, notReady
		}
	}
	idx, err := p.indexes.Load(ctx, in.ID)
	if semantics.IsNotReady(err) {
		return nil, notReady
	}
	if err != nil {
		return nil, fmt.Errorf("load index: %w", err)
	}
	matches := Retrieve(idx, tokens, p.maxSQLs)
	if len(matches) == 0 {
		return nil, job.Fail(job.CodeNoRelevantData, "no model matches the question")
	}
	p.log.Debug(ctx, "Retrieved documents", "matches", len(matches), "top", matches[0].Document.Name)
	if err := checkpoint(ctx, probe); err != nil {
		return nil, err
	}

	// generating
	candidates, err := p.generator.Generate(ctx, Request{
		Query:     in.Query,
		Tokens:    tokens,
		Catalog:   idx.Catalog,
		Schema:    idx.Schema,
		Matches:   matches,
		Relations: Related(idx, matches),
		Limit:     p.maxSQLs,
	})
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, job.Fail(job.CodeNoRelevantData, "no sql could be generated")
	}
	if err := checkpoint(ctx, probe); err != nil {
		return nil, err
	}
	return candidates, nil
}

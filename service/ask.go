package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ncobase/askflow/ask"
	"github.com/ncobase/askflow/ecode"
	"github.com/ncobase/askflow/job"
	"github.com/ncobase/askflow/validator"
)

// AskService accepts questions, reports their results and stops them.
type AskService struct {
	jobs *job.Manager
}

// Ask queues a question against the preparation named by req.ID.
func (s *AskService) Ask(ctx context.Context, req *AskRequest) (*AskResponse, error) {
	if err := validator.Validate(req); err != nil {
		return nil, job.InvalidRequest("%s", err.Error())
	}
	id, err := s.jobs.Submit(ctx, job.KindAsk, ask.Input{Query: req.Query, ID: req.ID}, "")
	if err != nil {
		return nil, err
	}
	return &AskResponse{QueryID: id}, nil
}

// Result reports the ask state and, once finished, its candidates.
func (s *AskService) Result(ctx context.Context, queryID string) (*AskResult, error) {
	rec, err := s.get(ctx, queryID)
	if err != nil {
		return nil, err
	}
	out := &AskResult{Status: askStatus(rec.State), Error: errorInfo(rec.Error)}
	if rec.State == job.StateFinished && len(rec.Result) > 0 {
		if err := json.Unmarshal(rec.Result, &out.Response); err != nil {
			return nil, fmt.Errorf("decode ask result %s: %w", queryID, err)
		}
	}
	return out, nil
}

// Stop requests the ask to stop. It returns before the ask settles.
func (s *AskService) Stop(ctx context.Context, queryID string, req *StopRequest) (*AskResponse, error) {
	if err := validator.Validate(req); err != nil {
		return nil, job.InvalidRequest("%s", err.Error())
	}
	if _, err := s.get(ctx, queryID); err != nil {
		return nil, err
	}
	if _, err := s.jobs.Stop(ctx, queryID); err != nil {
		return nil, err
	}
	return &AskResponse{QueryID: queryID}, nil
}

func (s *AskService) get(ctx context.Context, queryID string) (*job.Record, error) {
	rec, err := s.jobs.GetStatus(ctx, queryID)
	if err != nil {
		return nil, err
	}
	if rec.Kind != job.KindAsk {
		return nil, fmt.Errorf("%w: %s", job.ErrNotFound, ecode.NotExist("ask "+queryID))
	}
	return rec, nil
}

package service

import (
	"strings"

	"github.com/ncobase/askflow/ask"
	"github.com/ncobase/askflow/job"
)

// PrepareRequest starts a semantics preparation.
type PrepareRequest struct {
	MDL string `json:"mdl" validate:"required,notblank"`
	ID  string `json:"id" validate:"omitempty,max=128"`
}

// PrepareResponse echoes the preparation id.
type PrepareResponse struct {
	ID string `json:"id"`
}

// ErrorInfo is the failure reported to pollers.
type ErrorInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// PreparationStatus is the poll view of a preparation.
type PreparationStatus struct {
	Status string     `json:"status"`
	Error  *ErrorInfo `json:"error,omitempty"`
}

// AskRequest starts an ask against a preparation.
type AskRequest struct {
	Query string `json:"query" validate:"required,notblank"`
	ID    string `json:"id" validate:"omitempty,max=128"`
}

// AskResponse carries the ask id.
type AskResponse struct {
	QueryID string `json:"query_id"`
}

// StopRequest is the body of an ask status update.
type StopRequest struct {
	Status string `json:"status" validate:"required,oneof=stopped"`
}

// AskResult is the poll view of an ask.
type AskResult struct {
	Status   string          `json:"status"`
	Response []ask.Candidate `json:"response,omitempty"`
	Error    *ErrorInfo      `json:"error,omitempty"`
}

// Preparation statuses
const (
	PreparationIndexing = "indexing"
	PreparationFinished = "finished"
	PreparationFailed   = "failed"
)

func errorInfo(f *job.Failure) *ErrorInfo {
	if f == nil {
		return nil
	}
	return &ErrorInfo{Code: string(f.Code), Message: f.Message}
}

// preparationStatus folds PENDING into indexing.
func preparationStatus(s job.State) string {
	switch s {
	case job.StateFinished:
		return PreparationFinished
	case job.StateFailed:
		return PreparationFailed
	default:
		return PreparationIndexing
	}
}

func askStatus(s job.State) string {
	return strings.ToLower(string(s))
}

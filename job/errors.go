package job

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidRequest reports a malformed submission or an operation the job does not support.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrNotFound reports an unknown job id.
	ErrNotFound = errors.New("job not found")
	// ErrConflict reports a duplicate job id.
	ErrConflict = errors.New("job already exists")
	// ErrInvalidTransition reports a check-and-set that did not match the current state.
	ErrInvalidTransition = errors.New("invalid state transition")
	// ErrUnavailable reports that no worker capacity is left to accept the job.
	ErrUnavailable = errors.New("job capacity exhausted")
	// ErrStopped is returned by routines that observed a cancel request and gave up.
	ErrStopped = errors.New("job stopped")
)

type requestError struct {
	detail string
}

func (e *requestError) Error() string { return e.detail }

func (e *requestError) Unwrap() error { return ErrInvalidRequest }

// InvalidRequest returns an error matching ErrInvalidRequest whose message is detail.
func InvalidRequest(format string, args ...any) error {
	return &requestError{detail: fmt.Sprintf(format, args...)}
}

// FailureCode classifies why a job ended FAILED.
type FailureCode string

const (
	CodeOthers              FailureCode = "OTHERS"
	CodeTimeout             FailureCode = "TIMEOUT"
	CodeInterrupted         FailureCode = "INTERRUPTED"
	CodeMDLParseError       FailureCode = "MDL_PARSE_ERROR"
	CodePreparationNotReady FailureCode = "PREPARATION_NOT_READY"
	CodeNoRelevantData      FailureCode = "NO_RELEVANT_DATA"
)

// Failure is the error payload of a FAILED job. Routines return it to pick
// the code reported to pollers.
type Failure struct {
	Code    FailureCode `json:"code"`
	Message string      `json:"message"`
}

func (f *Failure) Error() string {
	if f.Message == "" {
		return string(f.Code)
	}
	return fmt.Sprintf("%s: %s", f.Code, f.Message)
}

// Fail builds a Failure with a formatted message.
func Fail(code FailureCode, format string, args ...any) *Failure {
	return &Failure{Code: code, Message: fmt.Sprintf(format, args...)}
}

// AsFailure converts any routine error into a Failure.
func AsFailure(err error) *Failure {
	if err == nil {
		return nil
	}
	var f *Failure
	if errors.As(err, &f) {
		return &Failure{Code: f.Code, Message: f.Message}
	}
	return &Failure{Code: CodeOthers, Message: err.Error()}
}

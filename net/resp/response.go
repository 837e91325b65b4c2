package resp

import (
	"encoding/json"
	"net/http"

	"github.com/ncobase/askflow/ecode"
)

// Exception represents an error response.
type Exception struct {
	Status int    `json:"-"`                // HTTP status
	Code   int    `json:"code,omitempty"`   // Business code
	Detail string `json:"detail"`           // Human readable message, never empty
	Errors any    `json:"errors,omitempty"` // Validation errors
}

// Error implements error so an Exception can travel through error returns.
func (e *Exception) Error() string {
	return e.Detail
}

// newException creates a new exception.
func newException(status, code int, detail string, data ...any) *Exception {
	var errs any
	if len(data) > 0 {
		errs = data[0]
	}
	if detail == "" {
		detail = ecode.Text(code)
	}
	return &Exception{
		Status: status,
		Code:   code,
		Detail: detail,
		Errors: errs,
	}
}

// Success handles success responses.
func Success(w http.ResponseWriter, data ...any) {
	WithStatusCode(w, http.StatusOK, data...)
}

// WithStatusCode handles success responses with custom status code.
func WithStatusCode(w http.ResponseWriter, statusCode int, data ...any) {
	var body any = map[string]any{"message": "ok"}
	if len(data) > 0 && data[0] != nil {
		if msg, ok := data[0].(string); ok {
			body = map[string]any{"message": msg}
		} else {
			body = data[0]
		}
	}
	writeJSON(w, statusCode, body)
}

// Fail handles failure responses.
func Fail(w http.ResponseWriter, r *Exception) {
	if r == nil {
		r = InternalServer("")
	}
	status := r.Status
	if status == 0 {
		status = ecode.ToHTTPStatus(r.Code)
	}
	if r.Code == 0 {
		r.Code = ecode.RequestErr
	}
	if r.Detail == "" {
		r.Detail = ecode.Text(r.Code)
	}
	writeJSON(w, status, r)
}

// writeJSON writes res as a JSON body.
func writeJSON(w http.ResponseWriter, code int, res any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(res); err != nil {
		http.Error(w, "Failed to encode JSON response", http.StatusInternalServerError)
	}
}

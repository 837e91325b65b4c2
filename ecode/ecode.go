package ecode

import "net/http"

// Business codes carried in error response bodies.
const (
	OK = 0

	RequestErr = -400
	ParamErr   = -401
	NotFound   = -404
	NotAllowed = -405
	Conflict   = -409

	ServerErr          = -500
	ServiceUnavailable = -503
	Deadline           = -504

	// NothingFound is kept as an alias used by the response helpers.
	NothingFound = NotFound
)

var texts = map[int]string{
	OK:                 "ok",
	RequestErr:         "Invalid request",
	ParamErr:           "Invalid parameters",
	NotFound:           "Resource not found",
	NotAllowed:         "Operation not allowed",
	Conflict:           "Resource conflict",
	ServerErr:          "Internal server error",
	ServiceUnavailable: "Service unavailable",
	Deadline:           "Deadline exceeded",
}

var statuses = map[int]int{
	OK:                 http.StatusOK,
	RequestErr:         http.StatusBadRequest,
	ParamErr:           http.StatusBadRequest,
	NotFound:           http.StatusNotFound,
	NotAllowed:         http.StatusMethodNotAllowed,
	Conflict:           http.StatusConflict,
	ServerErr:          http.StatusInternalServerError,
	ServiceUnavailable: http.StatusServiceUnavailable,
	Deadline:           http.StatusGatewayTimeout,
}

// Text returns the default message for a code.
func Text(code int) string {
	if msg, ok := texts[code]; ok {
		return msg
	}
	return texts[ServerErr]
}

// ToHTTPStatus maps a business code to an HTTP status.
func ToHTTPStatus(code int) int {
	if status, ok := statuses[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

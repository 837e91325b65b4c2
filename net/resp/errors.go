package resp

import (
	"net/http"

	"github.com/ncobase/askflow/ecode"
)

// BadRequest indicates that the request is invalid.
func BadRequest(detail string, data ...any) *Exception {
	return newException(http.StatusBadRequest, ecode.RequestErr, detail, data...)
}

// NotFound indicates that the resource is not found.
func NotFound(detail string, data ...any) *Exception {
	return newException(http.StatusNotFound, ecode.NotFound, detail, data...)
}

// Conflict indicates that the resource already exists.
func Conflict(detail string, data ...any) *Exception {
	return newException(http.StatusConflict, ecode.Conflict, detail, data...)
}

// NotAllowed indicates that the operation is not allowed on the resource.
func NotAllowed(detail string, data ...any) *Exception {
	return newException(http.StatusBadRequest, ecode.NotAllowed, detail, data...)
}

// ServiceUnavailable indicates that the service cannot take more work.
func ServiceUnavailable(detail string, data ...any) *Exception {
	return newException(http.StatusServiceUnavailable, ecode.ServiceUnavailable, detail, data...)
}

// InternalServer indicates an internal server error.
func InternalServer(detail string, data ...any) *Exception {
	return newException(http.StatusInternalServerError, ecode.ServerErr, detail, data...)
}

package ecode

import (
	"net/http"
	"testing"
)

func TestToHTTPStatus(t *testing.T) {
	tests := []struct {
		code int
		want int
	}{
		{RequestErr, http.StatusBadRequest},
		{NotFound, http.StatusNotFound},
		{Conflict, http.StatusConflict},
		{ServiceUnavailable, http.StatusServiceUnavailable},
		{12345, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		if got := ToHTTPStatus(tt.code); got != tt.want {
			t.Errorf("ToHTTPStatus(%d) = %d, want %d", tt.code, got, tt.want)
		}
	}
}

func TestMessages(t *testing.T) {
	if got := FieldIsRequired("query"); got != "query required" {
		t.Errorf("FieldIsRequired() = %q", got)
	}
	if got := NotExist("job abc"); got != "job abc does not exist" {
		t.Errorf("NotExist() = %q", got)
	}
	if Text(99999) != Text(ServerErr) {
		t.Error("unknown code should fall back to server error text")
	}
}

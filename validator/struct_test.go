package validator

import (
	"errors"
	"testing"
)

type askRequest struct {
	Query  string `json:"query" validate:"required,notblank"`
	ID     string `json:"id" validate:"omitempty,max=64"`
	Status string `json:"status,omitempty" validate:"omitempty,oneof=stopped"`
}

func TestValidateStruct(t *testing.T) {
	tests := []struct {
		name string
		in   askRequest
		want map[string]string
	}{
		{"valid", askRequest{Query: "How many books?"}, map[string]string{}},
		{"missing", askRequest{}, map[string]string{"query": "The field 'query' is required."}},
		{"blank", askRequest{Query: "  "}, map[string]string{"query": "The field 'query' must not be blank."}},
		{"oneof", askRequest{Query: "q", Status: "running"}, map[string]string{"status": "The field 'status' must be one of [stopped]."}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ValidateStruct(&tt.in)
			if len(got) != len(tt.want) {
				t.Fatalf("ValidateStruct() = %v, want %v", got, tt.want)
			}
			for k, v := range tt.want {
				if got[k] != v {
					t.Errorf("field %s = %q, want %q", k, got[k], v)
				}
			}
		})
	}
}

func TestValidate(t *testing.T) {
	if err := Validate(&askRequest{Query: "q"}); err != nil {
		t.Fatalf("Validate() = %v", err)
	}
	err := Validate(&askRequest{ID: string(make([]byte, 65))})
	var verr *Error
	if !errors.As(err, &verr) {
		t.Fatalf("Validate() = %v, want *Error", err)
	}
	if len(verr.Fields) != 2 {
		t.Errorf("fields = %v", verr.Fields)
	}
	want := "The field 'id' must be no longer than 64 characters. The field 'query' is required."
	if verr.Error() != want {
		t.Errorf("Error() = %q", verr.Error())
	}
}

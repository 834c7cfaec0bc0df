package validate

import (
	"testing"

	perr "jsonlmerge/internal/platform/errors"
)

type opts struct {
	KeyField  string `json:"key_field" validate:"required"`
	BatchSize int    `json:"batch_size" validate:"gte=1"`
}

func TestStructPasses(t *testing.T) {
	if err := Struct(opts{KeyField: "id", BatchSize: 1000}); err != nil {
		t.Fatalf("valid struct rejected: %v", err)
	}
}

func TestStructRequired(t *testing.T) {
	err := Struct(opts{BatchSize: 10})
	if err == nil {
		t.Fatalf("missing required field accepted")
	}
	if !perr.IsCode(err, perr.ErrorCodeValidation) {
		t.Fatalf("code = %v, want validation", perr.CodeOf(err))
	}
	e, ok := perr.As(err)
	if !ok || e.Field() != "key_field" {
		t.Fatalf("field = %q, want key_field", e.Field())
	}
}

func TestStructRange(t *testing.T) {
	err := Struct(opts{KeyField: "id", BatchSize: 0})
	if err == nil {
		t.Fatalf("out-of-range accepted")
	}
	if e, ok := perr.As(err); !ok || e.Field() != "batch_size" {
		t.Fatalf("field metadata missing: %v", err)
	}
}

func TestStructNonStruct(t *testing.T) {
	if err := Struct(42); err == nil {
		t.Fatalf("non-struct accepted")
	}
}

package services_test

import (
	"errors"
	"testing"

	"gogvault/internal/services"
)

func TestWrapPreservesMarkerAndCause(t *testing.T) {
	cause := errors.New("connection reset")
	err := services.Wrap(services.ErrTransient, "gog", "item detail", "id 42", cause)
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient marker, got %v", err)
	}
	if !errors.Is(err, cause) {
		t.Fatalf("expected wrapped cause, got %v", err)
	}
}

func TestWrapNilMarkerDefaultsToTransient(t *testing.T) {
	err := services.Wrap(nil, "gog", "list owned", "", nil)
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient default, got %v", err)
	}
}

func TestIsFatal(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		expect bool
	}{
		{"auth", services.Wrap(services.ErrAuth, "gog", "list owned", "401", nil), true},
		{"fatal", services.Wrap(services.ErrFatal, "manifest", "save", "", errors.New("disk full")), true},
		{"transient", services.Wrap(services.ErrTransient, "gog", "item detail", "", nil), false},
		{"validation", services.Wrap(services.ErrValidation, "resume", "check", "", nil), false},
	}
	for _, tc := range cases {
		if got := services.IsFatal(tc.err); got != tc.expect {
			t.Fatalf("%s: expected IsFatal=%v, got %v", tc.name, tc.expect, got)
		}
	}
}

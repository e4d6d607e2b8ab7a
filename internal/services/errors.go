package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrTransient marks per-item failures the run can survive: the item is
	// recorded as failed and processing continues.
	ErrTransient = errors.New("transient failure")
	// ErrFatal marks systemic failures that abort the run after a final
	// checkpoint.
	ErrFatal = errors.New("fatal failure")
	// ErrAuth marks authentication failures. Always systemic.
	ErrAuth = errors.New("authentication failure")
	// ErrValidation marks bad input or inconsistent persisted state.
	ErrValidation = errors.New("validation error")
	// ErrNotFound marks missing remote or local records.
	ErrNotFound = errors.New("not found")
)

// Wrap builds an error message that includes component context while tagging
// it with the provided marker for later classification. The marker should be
// one of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// IsFatal reports whether an error should abort the whole run rather than be
// recorded against a single item.
func IsFatal(err error) bool {
	return errors.Is(err, ErrFatal) || errors.Is(err, ErrAuth)
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}

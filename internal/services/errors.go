package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrInvalidState  = errors.New("invalid state")
	ErrOutOfRange    = errors.New("out of range")
	ErrInvalidTarget = errors.New("invalid target")
	ErrProvider      = errors.New("provider error")
	ErrWrite         = errors.New("write error")
	ErrValidation    = errors.New("validation error")
	ErrConfiguration = errors.New("configuration error")
)

var kinds = []struct {
	marker error
	name   string
}{
	{ErrNotFound, "not_found"},
	{ErrInvalidState, "invalid_state"},
	{ErrOutOfRange, "out_of_range"},
	{ErrInvalidTarget, "invalid_target"},
	{ErrProvider, "provider"},
	{ErrWrite, "write"},
	{ErrValidation, "validation"},
	{ErrConfiguration, "configuration"},
}

// Wrap builds an error message that includes component context while tagging it
// with the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrValidation
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Kind returns the taxonomy name of the first marker found in err, or
// "internal" when no marker matches.
func Kind(err error) string {
	if err == nil {
		return ""
	}
	for _, k := range kinds {
		if errors.Is(err, k.marker) {
			return k.name
		}
	}
	return "internal"
}

// IsStructural reports whether err aborts an operation without any state change
// (not found, invalid state, out-of-range or invalid target).
func IsStructural(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrInvalidState) ||
		errors.Is(err, ErrOutOfRange) ||
		errors.Is(err, ErrInvalidTarget)
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

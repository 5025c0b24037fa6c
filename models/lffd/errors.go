package lffd

import (
	"fmt"

	"github.com/pkg/errors"
)

// RequestScale marks an InvalidInputError that is not tied to a single scale.
const RequestScale = -1

// InvalidInputError reports malformed or inconsistent detector inputs: tensor
// shapes that do not agree, zero-sized grids, or a non-positive resize scale.
//
// The error is never retried; the same tensors would fail again.
type InvalidInputError struct {
	// Scale is the index of the offending detection head, or RequestScale.
	Scale int
	// Field names the rejected input.
	Field string
	// Reason describes what is wrong with it.
	Reason string
}

func (e *InvalidInputError) Error() string {
	if e.Scale == RequestScale {
		return fmt.Sprintf("lffd: invalid input: %s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("lffd: invalid input (scale %d): %s: %s", e.Scale, e.Field, e.Reason)
}

func invalidInput(scale int, field, format string, args ...interface{}) error {
	return &InvalidInputError{
		Scale:  scale,
		Field:  field,
		Reason: fmt.Sprintf(format, args...),
	}
}

// IsInvalidInput reports whether err, or any error it wraps, is an
// *InvalidInputError.
func IsInvalidInput(err error) bool {
	var target *InvalidInputError
	return errors.As(err, &target)
}

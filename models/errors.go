package models

import (
	"errors"
	"fmt"
)

// Error kinds shared by every package. Match them with errors.Is.
var (
	// ErrInvalidArgument reports non-positive lengths, short sequences or empty detector input.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrNumericalDegeneracy reports a zero denominator in a closed-form estimate.
	ErrNumericalDegeneracy = errors.New("numerical degeneracy")

	// ErrIO reports a failure reading or writing persisted series.
	ErrIO = errors.New("io error")
)

// InvalidArgument formats a message and wraps it with ErrInvalidArgument.
func InvalidArgument(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))
}

// Degenerate formats a message and wraps it with ErrNumericalDegeneracy.
func Degenerate(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrNumericalDegeneracy, fmt.Sprintf(format, args...))
}

// IOFailure wraps err with ErrIO, keeping err in the chain.
func IOFailure(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrIO, op, err)
}

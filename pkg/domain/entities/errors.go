package entities

import (
	"errors"
	"fmt"
)

var (
	// ErrConfigurationRange marks a policy parameter outside its valid band.
	// Stages recover by clamping and surface it as a warning.
	ErrConfigurationRange = errors.New("configuration parameter out of range")

	// ErrDivisionByZero marks a zero population or weighted population divisor.
	ErrDivisionByZero = errors.New("division by zero")

	// ErrMissingJoinKey marks a code absent from a join table.
	ErrMissingJoinKey = errors.New("missing join key")

	// ErrRootNonconvergence marks a rebalancing solve that fell back to a scan.
	ErrRootNonconvergence = errors.New("root finding did not converge")
)

// RangeError describes a clamped policy parameter
type RangeError struct {
	Parameter string
	Value     float64
	Min       float64
	Max       float64
	Applied   float64
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("%s=%g outside [%g, %g], using %g", e.Parameter, e.Value, e.Min, e.Max, e.Applied)
}

func (e *RangeError) Unwrap() error {
	return ErrConfigurationRange
}

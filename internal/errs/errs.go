// Package errs holds the error classes shared by the pricing engines.
package errs

import (
	"errors"
	"fmt"
)

var (
	// ErrConfig indicates missing or invalid inputs detected before any computation.
	ErrConfig = errors.New("configuration error")

	// ErrNumericalInstability indicates a violated stability bound or non-finite values.
	ErrNumericalInstability = errors.New("numerical instability")

	// ErrDomain indicates a computational domain too small for the contract.
	ErrDomain = errors.New("domain error")
)

// ConfigError reports a single rejected configuration field.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("configuration error: %s %s", e.Field, e.Reason)
}

func (e *ConfigError) Unwrap() error {
	return ErrConfig
}

// Config is a shorthand for building a *ConfigError.
func Config(field, format string, args ...interface{}) *ConfigError {
	return &ConfigError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// InstabilityError carries the location of a numerical blow-up.
// For the PDE solver Index is the space index and Step the time layer;
// for the path simulator Index is the path and Step the time step.
type InstabilityError struct {
	Engine string
	Index  int
	Step   int
	Value  float64
	Reason string
}

func (e *InstabilityError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("%s: numerical instability: %s", e.Engine, e.Reason)
	}
	return fmt.Sprintf("%s: numerical instability at index %d, step %d (value %g): %s",
		e.Engine, e.Index, e.Step, e.Value, e.Reason)
}

func (e *InstabilityError) Unwrap() error {
	return ErrNumericalInstability
}

// DomainError reports a truncated or misplaced computational domain.
type DomainError struct {
	Reason string
}

func (e *DomainError) Error() string {
	return "domain error: " + e.Reason
}

func (e *DomainError) Unwrap() error {
	return ErrDomain
}

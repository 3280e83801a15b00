package agronomy

import (
	"errors"
	"fmt"

	"github.com/LeonardoBeccarini/sdcc_agronomy/pkg/scoring"
)

// ErrInvalidInput is matched by every validation failure of the calculators.
var ErrInvalidInput = errors.New("invalid input")

// ValidationError names the offending field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid input: %s %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrInvalidInput }

type validator struct {
	errs []error
}

func (v *validator) fail(field, reason string) {
	v.errs = append(v.errs, &ValidationError{Field: field, Reason: reason})
}

func (v *validator) finite(field string, x float64) bool {
	if !scoring.Finite(x) {
		v.fail(field, "must be a finite number")
		return false
	}
	return true
}

func (v *validator) percent(field string, x float64) {
	if v.finite(field, x) && (x < 0 || x > 100) {
		v.fail(field, fmt.Sprintf("must be within 0-100, got %g", x))
	}
}

func (v *validator) nonNegative(field string, x float64) {
	if v.finite(field, x) && x < 0 {
		v.fail(field, fmt.Sprintf("must not be negative, got %g", x))
	}
}

func (v *validator) positive(field string, x float64) {
	if v.finite(field, x) && x <= 0 {
		v.fail(field, fmt.Sprintf("must be positive, got %g", x))
	}
}

func (v *validator) within(field string, x, lo, hi float64) {
	if v.finite(field, x) && (x < lo || x > hi) {
		v.fail(field, fmt.Sprintf("must be within %g-%g, got %g", lo, hi, x))
	}
}

func (v *validator) err() error {
	return errors.Join(v.errs...)
}

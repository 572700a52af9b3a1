package schedule

import (
	"errors"
	"fmt"
)

// Sentinel errors shared by the scheduling packages.
var (
	// ErrConflict means the requested interval overlaps an active appointment.
	ErrConflict = errors.New("schedule: slot conflict")
	// ErrNotFound means the referenced appointment, service or tenant row does not exist.
	ErrNotFound = errors.New("schedule: not found")
)

// ValidationError flags unparseable user input (date, service, phone, name).
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("schedule: invalid %s: %s", e.Field, e.Reason)
}

// NewValidationError builds a ValidationError.
func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// PolicyViolation flags a request that is well-formed but not allowed by the
// tenant's booking policy (outside hours, blackout date, horizon exceeded,
// daily cap reached, notice period not met).
type PolicyViolation struct {
	Rule   string
	Reason string
}

func (e *PolicyViolation) Error() string {
	return fmt.Sprintf("schedule: policy %s: %s", e.Rule, e.Reason)
}

// NewPolicyViolation builds a PolicyViolation.
func NewPolicyViolation(rule, reason string) *PolicyViolation {
	return &PolicyViolation{Rule: rule, Reason: reason}
}

// IsPolicyViolation reports whether err is a PolicyViolation.
func IsPolicyViolation(err error) bool {
	var pv *PolicyViolation
	return errors.As(err, &pv)
}

package rules

import "errors"

var (
	// ErrInvariantViolation is returned when an operation would leave the rule set empty
	ErrInvariantViolation = errors.New("invariant violation")

	// ErrValidation is returned when a submission has no usable rules
	ErrValidation = errors.New("validation error")

	// ErrPrecondition is returned for out-of-range indexes and unrecognized enum values
	ErrPrecondition = errors.New("precondition failed")
)

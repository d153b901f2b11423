package points

import (
	"errors"
	"fmt"
	"math"
)

// ValidationError reports caller input rejected before storage is touched.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// RejectionError is an expected business outcome, not an infrastructure failure.
type RejectionError struct {
	Code    string
	Message string
}

func (e *RejectionError) Error() string { return e.Message }

var (
	ErrAlreadyCheckedIn   = &RejectionError{Code: "already_checked_in", Message: "already checked in today"}
	ErrInsufficientPoints = &RejectionError{Code: "insufficient_points", Message: "insufficient points"}
	ErrDuplicateReference = &RejectionError{Code: "duplicate_reference", Message: "reference already recorded for this action"}
	ErrBalanceOverflow    = &RejectionError{Code: "balance_overflow", Message: "points total would exceed the storable maximum"}
)

// addPoints returns a + b, or ErrBalanceOverflow when the sum does not fit in int64.
// Both operands are non-negative.
func addPoints(a, b int64) (int64, error) {
	if b > math.MaxInt64-a {
		return 0, ErrBalanceOverflow
	}
	return a + b, nil
}

// IsRejection reports whether err carries a business rejection.
func IsRejection(err error) bool {
	var re *RejectionError
	return errors.As(err, &re)
}

// IsValidation reports whether err carries a validation failure.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

package utils

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var ErrorRecordNotFound = errors.New("record not found")

// ValidationError rejects bad input before any state mutation.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func NewValidationError(field string, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// OverpaymentError carries the attempted amount and the remaining balance so
// the caller can render a usable message.
type OverpaymentError struct {
	Attempted decimal.Decimal
	Remaining decimal.Decimal
}

func (e *OverpaymentError) Error() string {
	return fmt.Sprintf("payment of %s exceeds remaining balance %s",
		e.Attempted.StringFixed(2), e.Remaining.StringFixed(2))
}

// ConcurrencyError signals a lost race (e.g. a bill number collision).
// The operation was rolled back; the caller should retry.
type ConcurrencyError struct {
	Op string
}

func (e *ConcurrencyError) Error() string {
	return e.Op + ": concurrent update detected, retry"
}

// RateNotSetError is returned by rate-dependent operations when no active
// rate exists for the required metal kind.
type RateNotSetError struct {
	Kind string
}

func (e *RateNotSetError) Error() string {
	return "no active rate for " + e.Kind
}

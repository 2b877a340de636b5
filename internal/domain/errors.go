package domain

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	ErrValidation           = errors.New("validation failed")
	ErrCapacity             = errors.New("slot capacity exceeded")
	ErrStoreUnavailable     = errors.New("booking store unavailable")
	ErrGateway              = errors.New("payment gateway error")
	ErrVerificationRejected = errors.New("payment verification rejected")
	ErrMissingFields        = errors.New("missing required fields")
	ErrPaymentReused        = errors.New("payment already confirms another booking")

	ErrVenueNotFound     = errors.New("venue not found")
	ErrSessionNotFound   = errors.New("session not found")
	ErrBookingNotFound   = errors.New("booking not found")
	ErrBookingImmutable  = errors.New("completed booking cannot be modified")
	ErrIllegalTransition = errors.New("illegal stage transition")
	ErrConcurrentUpdate  = errors.New("booking modified concurrently")
)

// ValidationError is bad user input for one field. Code names the reply
// the user gets back.
type ValidationError struct {
	Field string
	Code  string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s (%s)", e.Field, e.Code)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// CapacityError means the requested slot cannot take the group.
type CapacityError struct {
	VenueID string
	Date    time.Time
	Slot    string
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("no capacity for venue %s on %s at %s", e.VenueID, e.Date.Format("2006-01-02"), e.Slot)
}

func (e *CapacityError) Is(target error) bool { return target == ErrCapacity }

// StoreUnavailableError wraps a backend failure or timeout.
type StoreUnavailableError struct {
	Op  string
	Err error
}

func (e *StoreUnavailableError) Error() string {
	return fmt.Sprintf("%s: booking store unavailable: %v", e.Op, e.Err)
}

func (e *StoreUnavailableError) Unwrap() error { return e.Err }

func (e *StoreUnavailableError) Is(target error) bool { return target == ErrStoreUnavailable }

// StoreUnavailable wraps err unless it already carries the classification.
func StoreUnavailable(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrStoreUnavailable) {
		return err
	}
	return &StoreUnavailableError{Op: op, Err: err}
}

// GatewayError wraps a payment gateway failure.
type GatewayError struct {
	Op  string
	Err error
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("%s: payment gateway error: %v", e.Op, e.Err)
}

func (e *GatewayError) Unwrap() error { return e.Err }

func (e *GatewayError) Is(target error) bool { return target == ErrGateway }

// IsTimeout reports whether err came from an expired or canceled context.
func IsTimeout(err error) bool {
	return errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled)
}

// IsDomainOutcome reports errors that describe the request rather than the
// health of the store. The two-tier store only falls back on other errors.
func IsDomainOutcome(err error) bool {
	return errors.Is(err, ErrCapacity) ||
		errors.Is(err, ErrBookingNotFound) ||
		errors.Is(err, ErrBookingImmutable) ||
		errors.Is(err, ErrConcurrentUpdate) ||
		errors.Is(err, ErrPaymentReused) ||
		errors.Is(err, ErrValidation)
}

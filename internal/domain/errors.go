package domain

import (
	"errors"
	"fmt"
)

// Ledger rejections. Messages double as revert reasons on failed receipts.
var (
	ErrDepositsPaused      = errors.New("deposits are paused")
	ErrStillLocked         = errors.New("funds are still locked")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrNotOwner            = errors.New("caller is not the owner")
	ErrInvalidAmount       = errors.New("amount must be greater than zero")
	ErrInvalidDuration     = errors.New("duration must be greater than zero")
)

// Orchestration and transport errors.
var (
	ErrInvalidAccount   = errors.New("invalid account address")
	ErrNotConnected     = errors.New("no wallet account connected")
	ErrTxNotFound       = errors.New("transaction not found")
	ErrMempoolFull      = errors.New("mempool is full")
	ErrSubmission       = errors.New("submission failed")
	ErrRefresh          = errors.New("could not read ledger state")
	ErrIdempotencyKey   = errors.New("idempotency key reused with a different request")
	ErrInvalidLifecycle = errors.New("invalid transaction lifecycle transition")
)

// ValidationError is a local rejection raised before anything is submitted.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return e.Reason }

// Validationf builds a ValidationError.
func Validationf(format string, args ...any) error {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

// RevertError is a substrate rejection with a structured reason.
type RevertError struct {
	Reason string
	Err    error
}

func (e *RevertError) Error() string {
	if e.Reason != "" {
		return "execution reverted: " + e.Reason
	}
	return "execution reverted"
}

func (e *RevertError) Unwrap() error { return e.Err }

// ReasonOf maps a ledger error back to its sentinel, if the message matches one.
func ReasonOf(reason string) error {
	for _, err := range []error{
		ErrDepositsPaused, ErrStillLocked, ErrInsufficientBalance,
		ErrNotOwner, ErrInvalidAmount, ErrInvalidDuration,
	} {
		if err.Error() == reason {
			return err
		}
	}
	return nil
}

// Diagnose renders any fault as a single status fragment: the structured
// reason if there is one, else the error text, else "Unknown error".
func Diagnose(err error) string {
	if err == nil {
		return "Unknown error"
	}
	var revert *RevertError
	if errors.As(err, &revert) && revert.Reason != "" {
		return revert.Reason
	}
	var invalid *ValidationError
	if errors.As(err, &invalid) && invalid.Reason != "" {
		return invalid.Reason
	}
	if msg := err.Error(); msg != "" {
		return msg
	}
	return "Unknown error"
}

package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Lock is one account's balance paired with its unlock time.
// Balance is denominated in wei; UnlockTime is Unix seconds, 0 when no lock was ever set.
type Lock struct {
	Balance    decimal.Decimal `json:"balance"`
	UnlockTime int64           `json:"unlock_time"`
}

// LockState is derived from a Lock at read time and is never stored.
type LockState string

const (
	LockNone       LockState = "none"
	LockLocked     LockState = "locked"
	LockUnlockable LockState = "unlockable"
)

// State classifies the lock relative to now.
func (l Lock) State(now time.Time) LockState {
	if !l.Balance.IsPositive() {
		return LockNone
	}
	if l.Withdrawable(now) {
		return LockUnlockable
	}
	return LockLocked
}

// Withdrawable reports whether the unlock time has been reached.
func (l Lock) Withdrawable(now time.Time) bool {
	return now.Unix() >= l.UnlockTime
}

// Global is the ledger-wide record, kept apart from the per-account locks.
type Global struct {
	Owner            AccountID       `json:"owner"`
	DepositsPaused   bool            `json:"deposits_paused"`
	AggregateBalance decimal.Decimal `json:"aggregate_balance"`
}

// ObservedState is everything the presentation layer can see after a refresh.
type ObservedState struct {
	Owner            AccountID       `json:"owner"`
	MyBalance        decimal.Decimal `json:"my_balance"`
	MyUnlockTime     int64           `json:"my_unlock_time"`
	AggregateBalance decimal.Decimal `json:"aggregate_balance"`
	DepositsPaused   bool            `json:"deposits_paused"`
	IsOwner          bool            `json:"is_owner"`
}

// UnlockLabel renders the unlock time for display, "—" when no lock is set.
func (s ObservedState) UnlockLabel() string {
	if s.MyUnlockTime <= 0 {
		return "—"
	}
	return time.Unix(s.MyUnlockTime, 0).Local().Format(time.DateTime)
}

// ReceiptStatus is the substrate's view of a submitted transaction.
type ReceiptStatus string

const (
	ReceiptPending   ReceiptStatus = "pending"
	ReceiptConfirmed ReceiptStatus = "confirmed"
	ReceiptFailed    ReceiptStatus = "failed"
)

// Final reports whether the status is terminal.
func (s ReceiptStatus) Final() bool {
	return s == ReceiptConfirmed || s == ReceiptFailed
}

// Receipt records the outcome of one submitted call.
type Receipt struct {
	Hash        string          `json:"hash"`
	Kind        RequestKind     `json:"kind"`
	Caller      AccountID       `json:"caller"`
	Status      ReceiptStatus   `json:"status"`
	Reason      string          `json:"reason,omitempty"`
	Block       uint64          `json:"block,omitempty"`
	Transferred decimal.Decimal `json:"transferred"`
	SubmittedAt time.Time       `json:"submitted_at"`
	FinalizedAt time.Time       `json:"finalized_at,omitempty"`
}

// AuditReport compares the stored aggregate against the sum of all balances.
type AuditReport struct {
	Accounts         int             `json:"accounts"`
	SumOfBalances    decimal.Decimal `json:"sum_of_balances"`
	AggregateBalance decimal.Decimal `json:"aggregate_balance"`
	Consistent       bool            `json:"consistent"`
}

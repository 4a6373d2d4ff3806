// Package models holds the JSON wire types of the node's HTTP call interface.
package models

import (
	"github.com/punchamoorthee/lockvault/internal/domain"
	"github.com/shopspring/decimal"
)

// DepositRequest locks Amount wei for LockSeconds.
type DepositRequest struct {
	From        string          `json:"from"`
	Amount      decimal.Decimal `json:"amount"`
	LockSeconds int64           `json:"lock_seconds"`
}

// WithdrawRequest releases Amount wei back to From.
type WithdrawRequest struct {
	From   string          `json:"from"`
	Amount decimal.Decimal `json:"amount"`
}

// ExtendRequest pushes From's unlock time out by ExtraSeconds.
type ExtendRequest struct {
	From         string `json:"from"`
	ExtraSeconds int64  `json:"extra_seconds"`
}

// PauseRequest sets the global deposit pause flag.
type PauseRequest struct {
	From    string `json:"from"`
	Desired bool   `json:"desired"`
}

// SubmitResponse is returned once a call is in the mempool.
type SubmitResponse struct {
	Hash string `json:"hash"`
}

// LockResponse describes one account's lock at the node's current time.
type LockResponse struct {
	Account      string           `json:"account"`
	Balance      decimal.Decimal  `json:"balance"`
	UnlockTime   int64            `json:"unlock_time"`
	State        domain.LockState `json:"state"`
	Withdrawable bool             `json:"withdrawable"`
}

type OwnerResponse struct {
	Owner string `json:"owner"`
}

type BalanceResponse struct {
	Balance decimal.Decimal `json:"balance"`
}

type PausedResponse struct {
	Paused bool `json:"paused"`
}

// ErrorResponse carries a message and, for ledger rejections, the revert reason.
type ErrorResponse struct {
	Error  string `json:"error"`
	Reason string `json:"reason,omitempty"`
}

// IdempotencyRecord binds an Idempotency-Key to the request it first carried.
type IdempotencyRecord struct {
	Key         string
	RequestHash string
	TxHash      string
}

package domain

import (
	"context"

	"github.com/shopspring/decimal"
)

// ─── Service Interfaces ─────────────────────────────────────────────────────

// Substrate is the call interface of the external lock ledger. Mutating calls
// return a transaction hash as soon as the call is accepted; the outcome is
// obtained with WaitForReceipt.
type Substrate interface {
	Deposit(ctx context.Context, caller AccountID, amount decimal.Decimal, lockSeconds int64) (string, error)
	Withdraw(ctx context.Context, caller AccountID, amount decimal.Decimal) (string, error)
	ExtendMyLock(ctx context.Context, caller AccountID, extraSeconds int64) (string, error)
	PauseDeposits(ctx context.Context, caller AccountID, desired bool) (string, error)

	// WaitForReceipt blocks until the transaction is final or ctx is done.
	WaitForReceipt(ctx context.Context, hash string) (Receipt, error)

	Owner(ctx context.Context) (AccountID, error)
	GetMyLock(ctx context.Context, caller AccountID) (Lock, error)
	GetContractBalance(ctx context.Context) (decimal.Decimal, error)
	DepositsPaused(ctx context.Context) (bool, error)
}

// Wallet is the session collaborator that yields the caller identity.
type Wallet interface {
	RequestAccounts(ctx context.Context) ([]AccountID, error)
	CurrentChainID(ctx context.Context) (string, error)

	// Subscribe registers change listeners and returns a function that removes them.
	Subscribe(l WalletListener) (unsubscribe func())
}

// WalletListener receives wallet change notifications.
type WalletListener struct {
	AccountsChanged func(accounts []AccountID)
	ChainChanged    func()
}

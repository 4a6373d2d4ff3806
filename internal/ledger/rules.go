// Package ledger holds the lock ledger's rules. Every mutating call is
// applied against a State inside one atomic store transaction; a returned
// error means the store discards every change the call made.
package ledger

import (
	"fmt"

	"github.com/punchamoorthee/lockvault/internal/domain"
	"github.com/shopspring/decimal"
)

// State is the transactional view a store hands to Apply.
type State interface {
	Account(id domain.AccountID) (domain.Lock, error)
	SetAccount(id domain.AccountID, lock domain.Lock) error
	Global() (domain.Global, error)
	SetGlobal(g domain.Global) error
}

// Call is one mutating request against the ledger.
type Call struct {
	Kind    domain.RequestKind `json:"kind"`
	Caller  domain.AccountID   `json:"caller"`
	Amount  decimal.Decimal    `json:"amount"`
	Seconds int64              `json:"seconds,omitempty"`
	Desired bool               `json:"desired,omitempty"`
}

// Effect describes what a confirmed call did beyond the state change itself.
type Effect struct {
	// Transferred is the value paid out to the caller's external address.
	Transferred decimal.Decimal
}

// Apply executes call at time now. Rejections are returned as the domain
// sentinel errors.
func Apply(st State, call Call, now int64) (Effect, error) {
	switch call.Kind {
	case domain.KindDeposit:
		return Effect{}, deposit(st, call, now)
	case domain.KindWithdraw:
		return withdraw(st, call, now)
	case domain.KindExtendLock:
		return Effect{}, extend(st, call, now)
	case domain.KindTogglePause:
		return Effect{}, pause(st, call)
	default:
		return Effect{}, fmt.Errorf("unknown call kind %q", call.Kind)
	}
}

func deposit(st State, call Call, now int64) error {
	g, err := st.Global()
	if err != nil {
		return err
	}
	if g.DepositsPaused {
		return domain.ErrDepositsPaused
	}
	if !validAmount(call.Amount) {
		return domain.ErrInvalidAmount
	}
	if !validSeconds(call.Seconds) {
		return domain.ErrInvalidDuration
	}

	lock, err := st.Account(call.Caller)
	if err != nil {
		return err
	}
	lock.Balance = lock.Balance.Add(call.Amount)
	lock.UnlockTime = domain.DepositUnlockTime(now, call.Seconds, lock.UnlockTime)
	if err := st.SetAccount(call.Caller, lock); err != nil {
		return err
	}

	g.AggregateBalance = g.AggregateBalance.Add(call.Amount)
	return st.SetGlobal(g)
}

func withdraw(st State, call Call, now int64) (Effect, error) {
	if !validAmount(call.Amount) {
		return Effect{}, domain.ErrInvalidAmount
	}
	// Global before account, same order as deposit.
	g, err := st.Global()
	if err != nil {
		return Effect{}, err
	}
	lock, err := st.Account(call.Caller)
	if err != nil {
		return Effect{}, err
	}
	if now < lock.UnlockTime {
		return Effect{}, domain.ErrStillLocked
	}
	if call.Amount.GreaterThan(lock.Balance) {
		return Effect{}, domain.ErrInsufficientBalance
	}

	lock.Balance = lock.Balance.Sub(call.Amount)
	if err := st.SetAccount(call.Caller, lock); err != nil {
		return Effect{}, err
	}
	g.AggregateBalance = g.AggregateBalance.Sub(call.Amount)
	if err := st.SetGlobal(g); err != nil {
		return Effect{}, err
	}
	return Effect{Transferred: call.Amount}, nil
}

// extend has no balance precondition: an empty account may extend a vacuous lock.
func extend(st State, call Call, now int64) error {
	if !validSeconds(call.Seconds) {
		return domain.ErrInvalidDuration
	}
	lock, err := st.Account(call.Caller)
	if err != nil {
		return err
	}
	lock.UnlockTime = domain.ExtendedUnlockTime(now, call.Seconds, lock.UnlockTime)
	return st.SetAccount(call.Caller, lock)
}

func pause(st State, call Call) error {
	g, err := st.Global()
	if err != nil {
		return err
	}
	if !g.Owner.Equal(call.Caller) {
		return domain.ErrNotOwner
	}
	g.DepositsPaused = call.Desired
	return st.SetGlobal(g)
}

// validAmount accepts whole, positive wei.
func validAmount(v decimal.Decimal) bool {
	return v.IsPositive() && v.IsInteger()
}

func validSeconds(s int64) bool {
	return s > 0 && s <= domain.MaxLockSeconds
}

// Package service drives user actions against the ledger: validation,
// submission, finality and the refresh that follows.
package service

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/punchamoorthee/lockvault/internal/domain"
	"github.com/shopspring/decimal"
)

// Outcome reports one finished action.
type Outcome struct {
	Record  domain.TxRecord
	Status  string // the action's terminal status message
	Receipt domain.Receipt

	// Observed is the post-confirmation refresh; nil if it failed, in which
	// case RefreshErr says why. A failed refresh does not fail the action.
	Observed   *domain.ObservedState
	RefreshErr error
}

// Orchestrator runs mutating actions for a session. Actions may run
// concurrently; each owns its own TxRecord.
type Orchestrator struct {
	sub     domain.Substrate
	session *Session
}

func NewOrchestrator(sub domain.Substrate, session *Session) *Orchestrator {
	return &Orchestrator{sub: sub, session: session}
}

// messages are the status lines of one action kind.
type messages struct {
	sending string
	pending string
	success string
	failed  string
}

var actionMessages = map[domain.RequestKind]messages{
	domain.KindDeposit: {
		sending: "Sending deposit transaction...",
		pending: "Deposit pending... waiting for confirmation.",
		success: "Deposit successful!",
		failed:  "Deposit failed: ",
	},
	domain.KindWithdraw: {
		sending: "Sending withdraw transaction...",
		pending: "Withdraw pending... waiting for confirmation.",
		success: "Withdraw successful!",
		failed:  "Withdraw failed: ",
	},
	domain.KindExtendLock: {
		sending: "Sending extendMyLock transaction...",
		pending: "Extend lock pending... waiting for confirmation.",
		success: "Lock extended successfully!",
		failed:  "Extend lock failed: ",
	},
	domain.KindTogglePause: {
		sending: "Sending pauseDeposits transaction...",
		pending: "pauseDeposits pending... waiting for confirmation.",
		failed:  "pauseDeposits failed: ",
	},
}

// action is a validated call ready for submission.
type action struct {
	kind      domain.RequestKind
	submit    func(ctx context.Context, caller domain.AccountID) (string, error)
	success   string
	onConfirm func(*Inputs)
}

// Deposit locks the entered ether amount for the entered duration.
func (o *Orchestrator) Deposit(ctx context.Context) (Outcome, error) {
	return o.run(ctx, domain.KindDeposit, func(in Inputs, _ domain.ObservedState) (action, error) {
		if !positive(in.DepositAmount) {
			return action{}, domain.Validationf("Enter a positive deposit amount.")
		}
		if !positive(in.LockValue) {
			return action{}, domain.Validationf("Enter a positive lock duration.")
		}
		seconds, err := domain.NormalizeDuration(in.LockValue, in.LockUnit)
		if err != nil {
			return action{}, domain.Validationf("Invalid lock duration.")
		}
		wei, err := domain.ParseEther(in.DepositAmount)
		if err != nil {
			return action{}, domain.Validationf("Deposit failed: %v", err)
		}
		return action{
			submit: func(ctx context.Context, caller domain.AccountID) (string, error) {
				return o.sub.Deposit(ctx, caller, wei, seconds)
			},
			onConfirm: func(in *Inputs) {
				in.DepositAmount = ""
				in.LockValue = ""
			},
		}, nil
	})
}

// Withdraw releases the entered ether amount.
func (o *Orchestrator) Withdraw(ctx context.Context) (Outcome, error) {
	return o.run(ctx, domain.KindWithdraw, func(in Inputs, _ domain.ObservedState) (action, error) {
		if !positive(in.WithdrawAmount) {
			return action{}, domain.Validationf("Enter a positive withdraw amount.")
		}
		wei, err := domain.ParseEther(in.WithdrawAmount)
		if err != nil {
			return action{}, domain.Validationf("Withdraw failed: %v", err)
		}
		return action{
			submit: func(ctx context.Context, caller domain.AccountID) (string, error) {
				return o.sub.Withdraw(ctx, caller, wei)
			},
			onConfirm: func(in *Inputs) { in.WithdrawAmount = "" },
		}, nil
	})
}

// ExtendLock pushes the caller's unlock time out by the entered duration.
func (o *Orchestrator) ExtendLock(ctx context.Context) (Outcome, error) {
	return o.run(ctx, domain.KindExtendLock, func(in Inputs, _ domain.ObservedState) (action, error) {
		if !positive(in.ExtendValue) {
			return action{}, domain.Validationf("Enter a positive extension duration.")
		}
		seconds, err := domain.NormalizeDuration(in.ExtendValue, in.ExtendUnit)
		if err != nil {
			return action{}, domain.Validationf("Invalid extension duration.")
		}
		return action{
			submit: func(ctx context.Context, caller domain.AccountID) (string, error) {
				return o.sub.ExtendMyLock(ctx, caller, seconds)
			},
			onConfirm: func(in *Inputs) { in.ExtendValue = "" },
		}, nil
	})
}

// TogglePause flips the deposit pause flag relative to the last observed
// value. Only the owner may call it.
func (o *Orchestrator) TogglePause(ctx context.Context) (Outcome, error) {
	return o.run(ctx, domain.KindTogglePause, func(_ Inputs, seen domain.ObservedState) (action, error) {
		if !seen.IsOwner {
			return action{}, domain.Validationf("Only the contract owner can pause or resume deposits.")
		}
		desired := !seen.DepositsPaused
		success := "Deposits have been resumed."
		if desired {
			success = "Deposits are now paused."
		}
		return action{
			submit: func(ctx context.Context, caller domain.AccountID) (string, error) {
				return o.sub.PauseDeposits(ctx, caller, desired)
			},
			success: success,
		}, nil
	})
}

func (o *Orchestrator) run(ctx context.Context, kind domain.RequestKind, prepare func(Inputs, domain.ObservedState) (action, error)) (Outcome, error) {
	msgs := actionMessages[kind]
	rec := domain.NewTxRecord(kind)
	out := Outcome{}

	fail := func(status string, err error) (Outcome, error) {
		rec.Fail(domain.Diagnose(err))
		out.Record = *rec
		out.Status = status
		o.session.setStatus(status)
		return out, err
	}

	act, err := prepare(o.session.Inputs(), o.session.Observed())
	if err != nil {
		return fail(domain.Diagnose(err), err)
	}
	caller := o.session.Account()
	if caller == "" {
		return fail(msgs.failed+domain.Diagnose(domain.ErrNotConnected), domain.ErrNotConnected)
	}

	if err := rec.Advance(domain.TxSubmitting); err != nil {
		return fail(msgs.failed+domain.Diagnose(err), err)
	}
	o.session.setStatus(msgs.sending)
	hash, err := act.submit(ctx, caller)
	if err != nil {
		if !errors.Is(err, domain.ErrSubmission) {
			err = fmt.Errorf("%w: %w", domain.ErrSubmission, err)
		}
		return fail(msgs.failed+domain.Diagnose(err), err)
	}

	if err := rec.Submitted(hash); err != nil {
		return fail(msgs.failed+domain.Diagnose(err), err)
	}
	o.session.setLastTxHash(hash)
	o.session.setStatus(msgs.pending)

	receipt, err := o.sub.WaitForReceipt(ctx, hash)
	if err != nil {
		return fail(msgs.failed+domain.Diagnose(err), err)
	}
	out.Receipt = receipt
	if receipt.Status != domain.ReceiptConfirmed {
		err := &domain.RevertError{Reason: receipt.Reason, Err: domain.ReasonOf(receipt.Reason)}
		return fail(msgs.failed+domain.Diagnose(err), err)
	}

	if err := rec.Advance(domain.TxConfirmed); err != nil {
		return fail(msgs.failed+domain.Diagnose(err), err)
	}
	out.Record = *rec
	out.Status = msgs.success
	if act.success != "" {
		out.Status = act.success
	}
	o.session.setStatus(out.Status)
	if act.onConfirm != nil {
		o.session.updateInputs(act.onConfirm)
	}
	log.Printf("[orchestrator] %s %s confirmed in block %d", kind, hash[:min(len(hash), 10)], receipt.Block)

	state, err := o.session.Refresh(ctx)
	if err != nil {
		out.RefreshErr = err
		return out, nil
	}
	out.Observed = &state
	return out, nil
}

// positive reports whether s parses to a number greater than zero.
func positive(s string) bool {
	v, err := decimal.NewFromString(s)
	return err == nil && v.IsPositive()
}

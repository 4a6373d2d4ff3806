package service

import (
	"context"
	"fmt"

	"github.com/punchamoorthee/lockvault/internal/domain"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// Refresher re-reads the ledger state a session displays.
type Refresher struct {
	sub domain.Substrate
}

func NewRefresher(sub domain.Substrate) *Refresher {
	return &Refresher{sub: sub}
}

// Refresh issues the four reads concurrently. Either all succeed or the
// caller gets ErrRefresh and no partial state. With an empty account the
// caller's lock is left zero and IsOwner is false.
func (r *Refresher) Refresh(ctx context.Context, account domain.AccountID) (domain.ObservedState, error) {
	var (
		owner  domain.AccountID
		lock   = domain.Lock{Balance: decimal.Zero}
		total  decimal.Decimal
		paused bool
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		owner, err = r.sub.Owner(gctx)
		return err
	})
	if account != "" {
		g.Go(func() error {
			var err error
			lock, err = r.sub.GetMyLock(gctx, account)
			return err
		})
	}
	g.Go(func() error {
		var err error
		total, err = r.sub.GetContractBalance(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		paused, err = r.sub.DepositsPaused(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return domain.ObservedState{}, fmt.Errorf("%w: %w", domain.ErrRefresh, err)
	}

	return domain.ObservedState{
		Owner:            owner,
		MyBalance:        lock.Balance,
		MyUnlockTime:     lock.UnlockTime,
		AggregateBalance: total,
		DepositsPaused:   paused,
		IsOwner:          account.Equal(owner),
	}, nil
}

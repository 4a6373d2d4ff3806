// Package wallet provides wallet collaborators for a session.
package wallet

import (
	"context"
	"slices"
	"sync"

	"github.com/punchamoorthee/lockvault/internal/domain"
)

// Static is a wallet with a fixed account list and chain id. Switch* methods
// change them and notify subscribers, the way a browser wallet would.
type Static struct {
	mu        sync.Mutex
	accounts  []domain.AccountID
	chainID   string
	listeners map[int]domain.WalletListener
	nextID    int
}

// NewStatic creates a wallet exposing accounts on chainID.
func NewStatic(chainID string, accounts ...domain.AccountID) *Static {
	return &Static{
		accounts:  slices.Clone(accounts),
		chainID:   chainID,
		listeners: make(map[int]domain.WalletListener),
	}
}

// RequestAccounts returns the exposed accounts, or ErrNotConnected when there are none.
func (w *Static) RequestAccounts(ctx context.Context) ([]domain.AccountID, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.accounts) == 0 {
		return nil, domain.ErrNotConnected
	}
	return slices.Clone(w.accounts), nil
}

func (w *Static) CurrentChainID(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.chainID, nil
}

func (w *Static) Subscribe(l domain.WalletListener) func() {
	w.mu.Lock()
	id := w.nextID
	w.nextID++
	w.listeners[id] = l
	w.mu.Unlock()

	return func() {
		w.mu.Lock()
		delete(w.listeners, id)
		w.mu.Unlock()
	}
}

// SwitchAccounts replaces the exposed accounts. An empty list models a
// disconnected wallet.
func (w *Static) SwitchAccounts(accounts ...domain.AccountID) {
	w.mu.Lock()
	w.accounts = slices.Clone(accounts)
	ls := w.snapshot()
	w.mu.Unlock()

	for _, l := range ls {
		if l.AccountsChanged != nil {
			l.AccountsChanged(slices.Clone(accounts))
		}
	}
}

// SwitchChain changes the chain id.
func (w *Static) SwitchChain(chainID string) {
	w.mu.Lock()
	w.chainID = chainID
	ls := w.snapshot()
	w.mu.Unlock()

	for _, l := range ls {
		if l.ChainChanged != nil {
			l.ChainChanged()
		}
	}
}

func (w *Static) snapshot() []domain.WalletListener {
	ls := make([]domain.WalletListener, 0, len(w.listeners))
	for _, l := range w.listeners {
		ls = append(ls, l)
	}
	return ls
}

var _ domain.Wallet = (*Static)(nil)

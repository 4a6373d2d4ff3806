package service

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/punchamoorthee/lockvault/internal/domain"
)

// SepoliaChainID is the chain id labelled "Sepolia".
const SepoliaChainID = "0xaa36a7"

const (
	msgConnectFailed = "Failed to connect wallet."
	msgRefreshFailed = "Could not read contract data."
)

// NetworkName labels a chain id for display.
func NetworkName(chainID string) string {
	if strings.EqualFold(chainID, SepoliaChainID) {
		return "Sepolia"
	}
	return "Chain: " + chainID
}

// Inputs are the user-entered fields the actions read. Amounts are in ether.
type Inputs struct {
	DepositAmount  string
	LockValue      string
	LockUnit       domain.DurationUnit
	WithdrawAmount string
	ExtendValue    string
	ExtendUnit     domain.DurationUnit
}

// DefaultInputs has empty fields and minute units.
func DefaultInputs() Inputs {
	return Inputs{LockUnit: domain.UnitMinutes, ExtendUnit: domain.UnitMinutes}
}

// Session is one connected wallet's view of the ledger: the identity, the
// last observed state, the latest status message and the last submitted
// transaction hash.
type Session struct {
	wallet    domain.Wallet
	refresher *Refresher

	// RefreshTimeout bounds refreshes triggered by wallet notifications.
	RefreshTimeout time.Duration

	mu          sync.Mutex
	account     domain.AccountID
	network     string
	observed    domain.ObservedState
	status      string
	lastTxHash  string
	inputs      Inputs
	onStatus    func(string)
	unsubscribe func()
}

func NewSession(w domain.Wallet, sub domain.Substrate) *Session {
	return &Session{
		wallet:         w,
		refresher:      NewRefresher(sub),
		RefreshTimeout: 30 * time.Second,
		inputs:         DefaultInputs(),
	}
}

// Connect requests the wallet's accounts, labels the network and refreshes.
// The first call also subscribes to wallet changes.
func (s *Session) Connect(ctx context.Context) error {
	accounts, err := s.wallet.RequestAccounts(ctx)
	if err == nil && len(accounts) == 0 {
		err = domain.ErrNotConnected
	}
	if err != nil {
		s.setStatus(msgConnectFailed)
		return fmt.Errorf("connect wallet: %w", err)
	}
	chainID, err := s.wallet.CurrentChainID(ctx)
	if err != nil {
		s.setStatus(msgConnectFailed)
		return fmt.Errorf("read chain id: %w", err)
	}

	s.mu.Lock()
	s.account = accounts[0]
	s.network = NetworkName(chainID)
	if s.unsubscribe == nil {
		s.unsubscribe = s.wallet.Subscribe(domain.WalletListener{
			AccountsChanged: s.accountsChanged,
			ChainChanged:    s.chainChanged,
		})
	}
	s.mu.Unlock()

	_, err = s.Refresh(ctx)
	return err
}

// Refresh re-reads the ledger for the current account. On failure the
// previous observation is kept.
func (s *Session) Refresh(ctx context.Context) (domain.ObservedState, error) {
	account := s.Account()
	state, err := s.refresher.Refresh(ctx, account)
	if err != nil {
		log.Printf("[session] refresh: %v", err)
		s.setStatus(msgRefreshFailed)
		return domain.ObservedState{}, err
	}

	s.mu.Lock()
	// The account may have switched while the reads were in flight.
	if s.account == account {
		s.observed = state
	}
	s.mu.Unlock()
	return state, nil
}

func (s *Session) accountsChanged(accounts []domain.AccountID) {
	if len(accounts) == 0 {
		s.mu.Lock()
		s.account = ""
		s.observed.IsOwner = false
		s.mu.Unlock()
		return
	}

	s.mu.Lock()
	s.account = accounts[0]
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), s.RefreshTimeout)
	defer cancel()
	s.Refresh(ctx)
}

// chainChanged restarts the session: everything observed so far belongs to
// the old chain, so the user has to connect again.
func (s *Session) chainChanged() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.account = ""
	s.network = ""
	s.observed = domain.ObservedState{}
	s.status = ""
	s.lastTxHash = ""
	s.inputs = DefaultInputs()
}

// Close stops listening to the wallet.
func (s *Session) Close() {
	s.mu.Lock()
	unsubscribe := s.unsubscribe
	s.unsubscribe = nil
	s.mu.Unlock()
	if unsubscribe != nil {
		unsubscribe()
	}
}

// OnStatus registers fn to receive every status message as it is set.
func (s *Session) OnStatus(fn func(string)) {
	s.mu.Lock()
	s.onStatus = fn
	s.mu.Unlock()
}

func (s *Session) setStatus(msg string) {
	s.mu.Lock()
	s.status = msg
	fn := s.onStatus
	s.mu.Unlock()
	if fn != nil {
		fn(msg)
	}
}

func (s *Session) setLastTxHash(hash string) {
	s.mu.Lock()
	s.lastTxHash = hash
	s.mu.Unlock()
}

// SetInputs replaces the form fields.
func (s *Session) SetInputs(in Inputs) {
	s.mu.Lock()
	s.inputs = in
	s.mu.Unlock()
}

func (s *Session) updateInputs(fn func(*Inputs)) {
	s.mu.Lock()
	fn(&s.inputs)
	s.mu.Unlock()
}

func (s *Session) Inputs() Inputs {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inputs
}

func (s *Session) Account() domain.AccountID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.account
}

func (s *Session) Network() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.network
}

func (s *Session) Observed() domain.ObservedState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.observed
}

func (s *Session) Status() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

func (s *Session) LastTxHash() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastTxHash
}

package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/punchamoorthee/lockvault/internal/chain"
	"github.com/punchamoorthee/lockvault/internal/domain"
	"github.com/punchamoorthee/lockvault/internal/store"
	"github.com/punchamoorthee/lockvault/internal/wallet"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	owner domain.AccountID = "0x00000000000000000000000000000000000000Aa"
	alice domain.AccountID = "0x00000000000000000000000000000000000000a1"
)

var oneEther = decimal.RequireFromString("1000000000000000000")

// flaky fails every read once broken is set.
type flaky struct {
	domain.Substrate
	broken atomic.Bool
}

var errRPC = errors.New("rpc unavailable")

func (f *flaky) GetContractBalance(ctx context.Context) (decimal.Decimal, error) {
	if f.broken.Load() {
		return decimal.Zero, errRPC
	}
	return f.Substrate.GetContractBalance(ctx)
}

type harness struct {
	node     *chain.Node
	sub      *flaky
	clock    *domain.ManualClock
	wallet   *wallet.Static
	session  *Session
	orch     *Orchestrator
	mu       sync.Mutex
	statuses []string
}

func newHarness(t *testing.T, accounts ...domain.AccountID) *harness {
	t.Helper()
	clock := domain.NewManualClock(time.Unix(1_700_000_000, 0))
	node := chain.NewNode(chain.DefaultConfig(), store.NewMemory(owner), clock, nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		node.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	h := &harness{node: node, sub: &flaky{Substrate: node}, clock: clock}
	h.wallet = wallet.NewStatic(SepoliaChainID, accounts...)
	h.session = NewSession(h.wallet, h.sub)
	h.session.OnStatus(func(msg string) {
		h.mu.Lock()
		h.statuses = append(h.statuses, msg)
		h.mu.Unlock()
	})
	h.orch = NewOrchestrator(h.sub, h.session)
	t.Cleanup(h.session.Close)
	return h
}

func (h *harness) seen() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := h.statuses
	h.statuses = nil
	return out
}

func (h *harness) connect(t *testing.T) {
	t.Helper()
	require.NoError(t, h.session.Connect(context.Background()))
	h.seen()
}

func TestNetworkName(t *testing.T) {
	assert.Equal(t, "Sepolia", NetworkName("0xaa36a7"))
	assert.Equal(t, "Chain: 0x1", NetworkName("0x1"))
}

func TestSession_Connect(t *testing.T) {
	h := newHarness(t, alice)
	h.connect(t)

	assert.Equal(t, alice, h.session.Account())
	assert.Equal(t, "Sepolia", h.session.Network())
	seen := h.session.Observed()
	assert.True(t, seen.Owner.Equal(owner))
	assert.False(t, seen.IsOwner)
	assert.True(t, seen.MyBalance.IsZero())
	assert.Equal(t, "—", seen.UnlockLabel())
}

func TestSession_ConnectFailure(t *testing.T) {
	h := newHarness(t)
	err := h.session.Connect(context.Background())
	assert.ErrorIs(t, err, domain.ErrNotConnected)
	assert.Equal(t, "Failed to connect wallet.", h.session.Status())
}

func TestDeposit_Confirmed(t *testing.T) {
	h := newHarness(t, alice)
	h.connect(t)

	in := DefaultInputs()
	in.DepositAmount = "1"
	in.LockValue = "1"
	h.session.SetInputs(in)

	out, err := h.orch.Deposit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{
		"Sending deposit transaction...",
		"Deposit pending... waiting for confirmation.",
		"Deposit successful!",
	}, h.seen())
	assert.Equal(t, domain.TxConfirmed, out.Record.State)
	assert.Equal(t, out.Receipt.Hash, h.session.LastTxHash())
	assert.Equal(t, out.Receipt.Hash, out.Record.SubmittedHash)
	assert.Empty(t, out.Record.ErrorDetail)

	require.NotNil(t, out.Observed)
	assert.True(t, out.Observed.MyBalance.Equal(oneEther))
	assert.Equal(t, h.clock.Now().Unix()+60, out.Observed.MyUnlockTime)
	assert.True(t, out.Observed.AggregateBalance.Equal(oneEther))

	cleared := h.session.Inputs()
	assert.Empty(t, cleared.DepositAmount)
	assert.Empty(t, cleared.LockValue)
	assert.Equal(t, domain.UnitMinutes, cleared.LockUnit)
}

func TestWithdraw_LockedThenUnlocked(t *testing.T) {
	h := newHarness(t, alice)
	h.connect(t)
	ctx := context.Background()

	h.session.SetInputs(Inputs{DepositAmount: "1", LockValue: "60", LockUnit: domain.UnitSeconds, WithdrawAmount: "1"})
	_, err := h.orch.Deposit(ctx)
	require.NoError(t, err)
	h.seen()

	out, err := h.orch.Withdraw(ctx)
	assert.ErrorIs(t, err, domain.ErrStillLocked)
	assert.Equal(t, "Withdraw failed: funds are still locked", out.Status)
	assert.Equal(t, domain.TxFailed, out.Record.State)
	assert.Equal(t, out.Record.SubmittedHash, h.session.LastTxHash())
	assert.Equal(t, "funds are still locked", out.Record.ErrorDetail)
	assert.Equal(t, "1", h.session.Inputs().WithdrawAmount)

	lock, err := h.node.GetMyLock(ctx, alice)
	require.NoError(t, err)
	assert.True(t, lock.Balance.Equal(oneEther))

	h.clock.Advance(60 * time.Second)
	out, err = h.orch.Withdraw(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Withdraw successful!", out.Status)
	require.NotNil(t, out.Observed)
	assert.True(t, out.Observed.MyBalance.IsZero())
	assert.Empty(t, h.session.Inputs().WithdrawAmount)
}

func TestValidation(t *testing.T) {
	h := newHarness(t, alice)
	h.connect(t)
	ctx := context.Background()

	cases := []struct {
		name string
		in   Inputs
		run  func(context.Context) (Outcome, error)
		want string
	}{
		{"empty deposit", Inputs{LockValue: "1"}, h.orch.Deposit, "Enter a positive deposit amount."},
		{"negative deposit", Inputs{DepositAmount: "-1", LockValue: "1"}, h.orch.Deposit, "Enter a positive deposit amount."},
		{"missing lock", Inputs{DepositAmount: "1"}, h.orch.Deposit, "Enter a positive lock duration."},
		{"sub-second lock", Inputs{DepositAmount: "1", LockValue: "0.5", LockUnit: domain.UnitSeconds}, h.orch.Deposit, "Invalid lock duration."},
		{"zero withdraw", Inputs{WithdrawAmount: "0"}, h.orch.Withdraw, "Enter a positive withdraw amount."},
		{"zero extend", Inputs{ExtendValue: "0"}, h.orch.ExtendLock, "Enter a positive extension duration."},
		{"sub-second extend", Inputs{ExtendValue: "0.2"}, h.orch.ExtendLock, "Invalid extension duration."},
		{"not owner", Inputs{}, h.orch.TogglePause, "Only the contract owner can pause or resume deposits."},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h.session.SetInputs(tc.in)
			out, err := tc.run(ctx)
			var invalid *domain.ValidationError
			require.ErrorAs(t, err, &invalid)
			assert.Equal(t, tc.want, out.Status)
			assert.Equal(t, tc.want, h.session.Status())
			assert.Equal(t, domain.TxFailed, out.Record.State)
			assert.Empty(t, out.Record.SubmittedHash)
			assert.Empty(t, h.session.LastTxHash())
		})
	}
}

func TestDeposit_TooManyDecimals(t *testing.T) {
	h := newHarness(t, alice)
	h.connect(t)
	h.session.SetInputs(Inputs{DepositAmount: "0.0000000000000000001", LockValue: "1"})

	out, err := h.orch.Deposit(context.Background())
	var invalid *domain.ValidationError
	require.ErrorAs(t, err, &invalid)
	assert.Contains(t, out.Status, "Deposit failed: ")
}

func TestDeposit_NotConnected(t *testing.T) {
	h := newHarness(t, alice)
	h.session.SetInputs(Inputs{DepositAmount: "1", LockValue: "1"})

	out, err := h.orch.Deposit(context.Background())
	assert.ErrorIs(t, err, domain.ErrNotConnected)
	assert.Equal(t, "Deposit failed: no wallet account connected", out.Status)
}

func TestTogglePause_Owner(t *testing.T) {
	h := newHarness(t, owner)
	h.connect(t)
	ctx := context.Background()
	require.True(t, h.session.Observed().IsOwner)

	out, err := h.orch.TogglePause(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"Sending pauseDeposits transaction...",
		"pauseDeposits pending... waiting for confirmation.",
		"Deposits are now paused.",
	}, h.seen())
	require.NotNil(t, out.Observed)
	assert.True(t, out.Observed.DepositsPaused)

	h.session.SetInputs(Inputs{DepositAmount: "1", LockValue: "1"})
	out, err = h.orch.Deposit(ctx)
	assert.ErrorIs(t, err, domain.ErrDepositsPaused)
	assert.Equal(t, "Deposit failed: deposits are paused", out.Status)

	out, err = h.orch.TogglePause(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Deposits have been resumed.", out.Status)
}

func TestExtend_WithoutBalance(t *testing.T) {
	h := newHarness(t, alice)
	h.connect(t)
	h.session.SetInputs(Inputs{ExtendValue: "2", ExtendUnit: domain.UnitHours})

	out, err := h.orch.ExtendLock(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Lock extended successfully!", out.Status)
	require.NotNil(t, out.Observed)
	assert.Equal(t, h.clock.Now().Unix()+7200, out.Observed.MyUnlockTime)
	assert.True(t, out.Observed.MyBalance.IsZero())
	assert.Empty(t, h.session.Inputs().ExtendValue)
}

func TestRefreshFailureKeepsActionStatus(t *testing.T) {
	h := newHarness(t, alice)
	h.connect(t)
	h.sub.broken.Store(true)
	h.session.SetInputs(Inputs{ExtendValue: "1"})

	out, err := h.orch.ExtendLock(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Lock extended successfully!", out.Status)
	assert.Nil(t, out.Observed)
	assert.ErrorIs(t, out.RefreshErr, domain.ErrRefresh)
	assert.Equal(t, "Could not read contract data.", h.session.Status())
}

func TestRefresher_AllOrNothing(t *testing.T) {
	h := newHarness(t, alice)
	h.connect(t)
	before := h.session.Observed()

	h.sub.broken.Store(true)
	_, err := h.session.Refresh(context.Background())
	assert.ErrorIs(t, err, domain.ErrRefresh)
	assert.ErrorIs(t, err, errRPC)
	assert.Equal(t, before, h.session.Observed())
}

func TestRefresher_NoAccount(t *testing.T) {
	h := newHarness(t)
	state, err := NewRefresher(h.node).Refresh(context.Background(), "")
	require.NoError(t, err)
	assert.False(t, state.IsOwner)
	assert.True(t, state.MyBalance.IsZero())
	assert.Zero(t, state.MyUnlockTime)
}

func TestSession_WalletChanges(t *testing.T) {
	h := newHarness(t, alice)
	h.connect(t)

	h.wallet.SwitchAccounts(owner)
	assert.Equal(t, owner, h.session.Account())
	assert.True(t, h.session.Observed().IsOwner)

	h.wallet.SwitchAccounts()
	assert.Empty(t, h.session.Account())
	assert.False(t, h.session.Observed().IsOwner)

	h.wallet.SwitchAccounts(alice)
	h.wallet.SwitchChain("0x1")
	assert.Empty(t, h.session.Account())
	assert.Empty(t, h.session.Network())
	assert.Empty(t, h.session.Status())

	require.NoError(t, h.session.Connect(context.Background()))
	assert.Equal(t, "Chain: 0x1", h.session.Network())
}

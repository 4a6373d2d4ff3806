package ledger

import (
	"math"
	"testing"

	"github.com/punchamoorthee/lockvault/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	owner domain.AccountID = "0x00000000000000000000000000000000000000Aa"
	alice domain.AccountID = "0x00000000000000000000000000000000000000a1"
	bob   domain.AccountID = "0x00000000000000000000000000000000000000b2"
)

type mapState struct {
	locks  map[string]domain.Lock
	global domain.Global
}

func newMapState() *mapState {
	return &mapState{
		locks:  make(map[string]domain.Lock),
		global: domain.Global{Owner: owner, AggregateBalance: decimal.Zero},
	}
}

func (m *mapState) Account(id domain.AccountID) (domain.Lock, error) {
	l, ok := m.locks[id.Key()]
	if !ok {
		return domain.Lock{Balance: decimal.Zero}, nil
	}
	return l, nil
}

func (m *mapState) SetAccount(id domain.AccountID, l domain.Lock) error {
	m.locks[id.Key()] = l
	return nil
}

func (m *mapState) Global() (domain.Global, error) { return m.global, nil }

func (m *mapState) SetGlobal(g domain.Global) error {
	m.global = g
	return nil
}

func (m *mapState) sum() decimal.Decimal {
	total := decimal.Zero
	for _, l := range m.locks {
		total = total.Add(l.Balance)
	}
	return total
}

func amt(n int64) decimal.Decimal { return decimal.NewFromInt(n) }

func TestDeposit_SetsBalanceAndUnlock(t *testing.T) {
	st := newMapState()
	_, err := Apply(st, Call{Kind: domain.KindDeposit, Caller: alice, Amount: amt(100), Seconds: 60}, 1000)
	require.NoError(t, err)

	lock, _ := st.Account(alice)
	assert.True(t, lock.Balance.Equal(amt(100)))
	assert.Equal(t, int64(1060), lock.UnlockTime)
	assert.True(t, st.global.AggregateBalance.Equal(amt(100)))
}

func TestDeposit_ExtendsButNeverShortens(t *testing.T) {
	st := newMapState()
	_, err := Apply(st, Call{Kind: domain.KindDeposit, Caller: alice, Amount: amt(1), Seconds: 600}, 1000)
	require.NoError(t, err)

	// A shorter second deposit keeps the later unlock time.
	_, err = Apply(st, Call{Kind: domain.KindDeposit, Caller: alice, Amount: amt(1), Seconds: 10}, 1100)
	require.NoError(t, err)
	lock, _ := st.Account(alice)
	assert.Equal(t, int64(1600), lock.UnlockTime)
	assert.True(t, lock.Balance.Equal(amt(2)))

	// A longer one pushes it out.
	_, err = Apply(st, Call{Kind: domain.KindDeposit, Caller: alice, Amount: amt(1), Seconds: 1000}, 1100)
	require.NoError(t, err)
	lock, _ = st.Account(alice)
	assert.Equal(t, int64(2100), lock.UnlockTime)
}

func TestDeposit_Rejections(t *testing.T) {
	st := newMapState()

	_, err := Apply(st, Call{Kind: domain.KindDeposit, Caller: alice, Amount: amt(0), Seconds: 60}, 1000)
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)
	_, err = Apply(st, Call{Kind: domain.KindDeposit, Caller: alice, Amount: amt(-5), Seconds: 60}, 1000)
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)
	_, err = Apply(st, Call{Kind: domain.KindDeposit, Caller: alice, Amount: amt(5), Seconds: 0}, 1000)
	assert.ErrorIs(t, err, domain.ErrInvalidDuration)

	st.global.DepositsPaused = true
	_, err = Apply(st, Call{Kind: domain.KindDeposit, Caller: alice, Amount: amt(5), Seconds: 60}, 1000)
	assert.ErrorIs(t, err, domain.ErrDepositsPaused)
	assert.Empty(t, st.locks)
	assert.True(t, st.global.AggregateBalance.IsZero())
}

func TestWithdraw(t *testing.T) {
	st := newMapState()
	_, err := Apply(st, Call{Kind: domain.KindDeposit, Caller: alice, Amount: amt(100), Seconds: 60}, 1000)
	require.NoError(t, err)

	_, err = Apply(st, Call{Kind: domain.KindWithdraw, Caller: alice, Amount: amt(100)}, 1059)
	assert.ErrorIs(t, err, domain.ErrStillLocked)

	_, err = Apply(st, Call{Kind: domain.KindWithdraw, Caller: alice, Amount: amt(101)}, 1060)
	assert.ErrorIs(t, err, domain.ErrInsufficientBalance)

	eff, err := Apply(st, Call{Kind: domain.KindWithdraw, Caller: alice, Amount: amt(40)}, 1060)
	require.NoError(t, err)
	assert.True(t, eff.Transferred.Equal(amt(40)))

	lock, _ := st.Account(alice)
	assert.True(t, lock.Balance.Equal(amt(60)))
	assert.True(t, st.global.AggregateBalance.Equal(amt(60)))

	_, err = Apply(st, Call{Kind: domain.KindWithdraw, Caller: alice, Amount: amt(0)}, 1060)
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)
}

func TestWithdraw_NeverDeposited(t *testing.T) {
	st := newMapState()
	_, err := Apply(st, Call{Kind: domain.KindWithdraw, Caller: bob, Amount: amt(1)}, 1000)
	assert.ErrorIs(t, err, domain.ErrInsufficientBalance)
}

func TestExtend(t *testing.T) {
	st := newMapState()
	_, err := Apply(st, Call{Kind: domain.KindDeposit, Caller: alice, Amount: amt(1), Seconds: 60}, 1000)
	require.NoError(t, err)

	// Active lock: added on top of the remaining time.
	_, err = Apply(st, Call{Kind: domain.KindExtendLock, Caller: alice, Seconds: 30}, 1010)
	require.NoError(t, err)
	lock, _ := st.Account(alice)
	assert.Equal(t, int64(1090), lock.UnlockTime)

	// Expired lock: counted from now.
	_, err = Apply(st, Call{Kind: domain.KindExtendLock, Caller: alice, Seconds: 30}, 5000)
	require.NoError(t, err)
	lock, _ = st.Account(alice)
	assert.Equal(t, int64(5030), lock.UnlockTime)

	_, err = Apply(st, Call{Kind: domain.KindExtendLock, Caller: alice, Seconds: 0}, 5000)
	assert.ErrorIs(t, err, domain.ErrInvalidDuration)
}

func TestExtend_ZeroBalanceAllowed(t *testing.T) {
	st := newMapState()
	_, err := Apply(st, Call{Kind: domain.KindExtendLock, Caller: bob, Seconds: 100}, 1000)
	require.NoError(t, err)
	lock, _ := st.Account(bob)
	assert.Equal(t, int64(1100), lock.UnlockTime)
	assert.True(t, lock.Balance.IsZero())
}

func TestPause_OwnerOnly(t *testing.T) {
	st := newMapState()

	_, err := Apply(st, Call{Kind: domain.KindTogglePause, Caller: alice, Desired: true}, 1000)
	assert.ErrorIs(t, err, domain.ErrNotOwner)
	assert.False(t, st.global.DepositsPaused)

	// Owner comparison ignores case.
	_, err = Apply(st, Call{Kind: domain.KindTogglePause, Caller: "0x00000000000000000000000000000000000000AA", Desired: true}, 1000)
	require.NoError(t, err)
	assert.True(t, st.global.DepositsPaused)
}

func TestPause_DoesNotTouchLocks(t *testing.T) {
	st := newMapState()
	_, err := Apply(st, Call{Kind: domain.KindDeposit, Caller: alice, Amount: amt(10), Seconds: 10}, 1000)
	require.NoError(t, err)
	_, err = Apply(st, Call{Kind: domain.KindTogglePause, Caller: owner, Desired: true}, 1000)
	require.NoError(t, err)

	_, err = Apply(st, Call{Kind: domain.KindWithdraw, Caller: alice, Amount: amt(10)}, 1010)
	require.NoError(t, err)
}

func TestAggregateInvariant(t *testing.T) {
	st := newMapState()
	now := int64(1000)
	calls := []Call{
		{Kind: domain.KindDeposit, Caller: alice, Amount: amt(70), Seconds: 5},
		{Kind: domain.KindDeposit, Caller: bob, Amount: amt(30), Seconds: 1},
		{Kind: domain.KindWithdraw, Caller: bob, Amount: amt(50)},
		{Kind: domain.KindExtendLock, Caller: alice, Seconds: 1},
		{Kind: domain.KindWithdraw, Caller: alice, Amount: amt(20)},
		{Kind: domain.KindDeposit, Caller: owner, Amount: amt(5), Seconds: 1},
	}
	for i, c := range calls {
		now += 10
		_, _ = Apply(st, c, now)
		assert.True(t, st.sum().Equal(st.global.AggregateBalance), "after call %d", i)
	}
}

func TestApply_UnknownKind(t *testing.T) {
	_, err := Apply(newMapState(), Call{Kind: "mint"}, 0)
	assert.Error(t, err)
}

func TestDuration_OutOfRangeRejected(t *testing.T) {
	st := newMapState()
	_, err := Apply(st, Call{Kind: domain.KindDeposit, Caller: alice, Amount: amt(100), Seconds: 3600}, 1000)
	require.NoError(t, err)

	_, err = Apply(st, Call{Kind: domain.KindExtendLock, Caller: alice, Seconds: math.MaxInt64}, 1001)
	assert.ErrorIs(t, err, domain.ErrInvalidDuration)
	_, err = Apply(st, Call{Kind: domain.KindExtendLock, Caller: alice, Seconds: domain.MaxLockSeconds + 1}, 1001)
	assert.ErrorIs(t, err, domain.ErrInvalidDuration)

	lock, _ := st.Account(alice)
	assert.Equal(t, int64(4600), lock.UnlockTime)
	_, err = Apply(st, Call{Kind: domain.KindWithdraw, Caller: alice, Amount: amt(100)}, 1002)
	assert.ErrorIs(t, err, domain.ErrStillLocked)

	_, err = Apply(st, Call{Kind: domain.KindDeposit, Caller: bob, Amount: amt(5), Seconds: math.MaxInt64}, 1000)
	assert.ErrorIs(t, err, domain.ErrInvalidDuration)
	_, err = Apply(st, Call{Kind: domain.KindWithdraw, Caller: bob, Amount: amt(5)}, 1000)
	assert.ErrorIs(t, err, domain.ErrInsufficientBalance)
	assert.True(t, st.global.AggregateBalance.Equal(amt(100)))
}

func TestExtend_RepeatedMaxNeverWraps(t *testing.T) {
	st := newMapState()
	st.locks[alice.Key()] = domain.Lock{Balance: amt(1), UnlockTime: math.MaxInt64 - 10}

	_, err := Apply(st, Call{Kind: domain.KindExtendLock, Caller: alice, Seconds: domain.MaxLockSeconds}, 1000)
	require.NoError(t, err)
	lock, _ := st.Account(alice)
	assert.Equal(t, int64(math.MaxInt64), lock.UnlockTime)

	_, err = Apply(st, Call{Kind: domain.KindWithdraw, Caller: alice, Amount: amt(1)}, 1001)
	assert.ErrorIs(t, err, domain.ErrStillLocked)
}

func TestAmount_FractionalWeiRejected(t *testing.T) {
	st := newMapState()
	half := decimal.RequireFromString("0.5")

	_, err := Apply(st, Call{Kind: domain.KindDeposit, Caller: alice, Amount: half, Seconds: 60}, 1000)
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)
	assert.Empty(t, st.locks)
	assert.True(t, st.global.AggregateBalance.IsZero())

	_, err = Apply(st, Call{Kind: domain.KindDeposit, Caller: alice, Amount: amt(2), Seconds: 60}, 1000)
	require.NoError(t, err)
	_, err = Apply(st, Call{Kind: domain.KindWithdraw, Caller: alice, Amount: decimal.RequireFromString("1.5")}, 2000)
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)
	lock, _ := st.Account(alice)
	assert.True(t, lock.Balance.Equal(amt(2)))
}

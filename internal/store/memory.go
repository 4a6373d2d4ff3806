package store

import (
	"context"
	"sync"

	"github.com/punchamoorthee/lockvault/internal/domain"
	"github.com/punchamoorthee/lockvault/internal/ledger"
	"github.com/shopspring/decimal"
)

// Memory keeps locks in an arena slice with a key index. Updates are staged
// and only copied into the arena when the callback succeeds.
type Memory struct {
	mu     sync.RWMutex
	rows   []lockRow
	index  map[string]int
	global domain.Global
}

type lockRow struct {
	id   domain.AccountID
	lock domain.Lock
}

// NewMemory creates an empty ledger owned by owner.
func NewMemory(owner domain.AccountID) *Memory {
	return &Memory{
		index:  make(map[string]int),
		global: domain.Global{Owner: owner, AggregateBalance: decimal.Zero},
	}
}

func (m *Memory) Update(ctx context.Context, fn func(ledger.State) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	tx := &memTx{m: m, staged: make(map[string]lockRow)}
	if err := fn(tx); err != nil {
		return err
	}
	tx.commit()
	return nil
}

func (m *Memory) View(ctx context.Context, fn func(ledger.State) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return fn(&memTx{m: m, readOnly: true})
}

func (m *Memory) Audit(ctx context.Context) (domain.AuditReport, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sum := decimal.Zero
	for _, r := range m.rows {
		sum = sum.Add(r.lock.Balance)
	}
	return domain.AuditReport{
		Accounts:         len(m.rows),
		SumOfBalances:    sum,
		AggregateBalance: m.global.AggregateBalance,
		Consistent:       sum.Equal(m.global.AggregateBalance),
	}, nil
}

func (m *Memory) Close() error { return nil }

type memTx struct {
	m        *Memory
	staged   map[string]lockRow
	order    []string
	global   *domain.Global
	readOnly bool
}

func (tx *memTx) Account(id domain.AccountID) (domain.Lock, error) {
	key := id.Key()
	if r, ok := tx.staged[key]; ok {
		return r.lock, nil
	}
	if i, ok := tx.m.index[key]; ok {
		return tx.m.rows[i].lock, nil
	}
	return domain.Lock{Balance: decimal.Zero}, nil
}

func (tx *memTx) SetAccount(id domain.AccountID, lock domain.Lock) error {
	if tx.readOnly {
		return errReadOnly
	}
	key := id.Key()
	if _, ok := tx.staged[key]; !ok {
		tx.order = append(tx.order, key)
	}
	tx.staged[key] = lockRow{id: id, lock: lock}
	return nil
}

func (tx *memTx) Global() (domain.Global, error) {
	if tx.global != nil {
		return *tx.global, nil
	}
	return tx.m.global, nil
}

func (tx *memTx) SetGlobal(g domain.Global) error {
	if tx.readOnly {
		return errReadOnly
	}
	// The owner is fixed at creation.
	g.Owner = tx.m.global.Owner
	tx.global = &g
	return nil
}

func (tx *memTx) commit() {
	for _, key := range tx.order {
		r := tx.staged[key]
		if i, ok := tx.m.index[key]; ok {
			tx.m.rows[i].lock = r.lock
			continue
		}
		tx.m.index[key] = len(tx.m.rows)
		tx.m.rows = append(tx.m.rows, r)
	}
	if tx.global != nil {
		tx.m.global = *tx.global
	}
}

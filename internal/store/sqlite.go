package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/punchamoorthee/lockvault/internal/domain"
	"github.com/punchamoorthee/lockvault/internal/ledger"
	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"
)

// SQLite is a single-file backend for local nodes. One connection is kept
// open, so transactions are serialized by the pool.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens path (":memory:" for a throwaway ledger), migrates it and
// records owner on first use.
func NewSQLite(ctx context.Context, path string, owner domain.AccountID) (*SQLite, error) {
	if path == "" {
		path = ":memory:"
	}
	dsn := path
	if path != ":memory:" {
		dsn = "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	for _, stmt := range SQLiteMigrations() {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("migration failed: %w", err)
		}
	}
	if _, err := db.ExecContext(ctx,
		"INSERT INTO ledger_state (id, owner) VALUES (1, ?) ON CONFLICT(id) DO NOTHING",
		string(owner),
	); err != nil {
		db.Close()
		return nil, fmt.Errorf("owner bootstrap failed: %w", err)
	}
	return &SQLite{db: db}, nil
}

func (s *SQLite) Close() error { return s.db.Close() }

func (s *SQLite) Update(ctx context.Context, fn func(ledger.State) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("tx begin failed: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&sqlState{ctx: ctx, tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("tx commit failed: %w", err)
	}
	return nil
}

func (s *SQLite) View(ctx context.Context, fn func(ledger.State) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("tx begin failed: %w", err)
	}
	defer tx.Rollback()
	return fn(&sqlState{ctx: ctx, tx: tx, readOnly: true})
}

// Audit sums balances in Go; SQLite would lose precision summing text as REAL.
func (s *SQLite) Audit(ctx context.Context) (domain.AuditReport, error) {
	var report domain.AuditReport
	err := s.View(ctx, func(st ledger.State) error {
		g, err := st.Global()
		if err != nil {
			return err
		}
		report.AggregateBalance = g.AggregateBalance

		rows, err := st.(*sqlState).tx.QueryContext(ctx, "SELECT balance FROM locks")
		if err != nil {
			return err
		}
		defer rows.Close()

		sum := decimal.Zero
		for rows.Next() {
			var raw string
			if err := rows.Scan(&raw); err != nil {
				return err
			}
			b, err := decimal.NewFromString(raw)
			if err != nil {
				return err
			}
			sum = sum.Add(b)
			report.Accounts++
		}
		report.SumOfBalances = sum
		return rows.Err()
	})
	report.Consistent = err == nil && report.SumOfBalances.Equal(report.AggregateBalance)
	return report, err
}

type sqlState struct {
	ctx      context.Context
	tx       *sql.Tx
	readOnly bool
}

func (s *sqlState) Account(id domain.AccountID) (domain.Lock, error) {
	var (
		balance string
		lock    domain.Lock
	)
	err := s.tx.QueryRowContext(s.ctx,
		"SELECT balance, unlock_time FROM locks WHERE account = ?", id.Key(),
	).Scan(&balance, &lock.UnlockTime)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Lock{Balance: decimal.Zero}, nil
	}
	if err != nil {
		return lock, fmt.Errorf("lock read failed: %w", err)
	}
	lock.Balance, err = decimal.NewFromString(balance)
	return lock, err
}

func (s *sqlState) SetAccount(id domain.AccountID, lock domain.Lock) error {
	if s.readOnly {
		return errReadOnly
	}
	_, err := s.tx.ExecContext(s.ctx, `
		INSERT INTO locks (account, address, balance, unlock_time, updated_at)
		VALUES (?, ?, ?, ?, datetime('now'))
		ON CONFLICT(account) DO UPDATE SET
			balance     = excluded.balance,
			unlock_time = excluded.unlock_time,
			updated_at  = datetime('now')`,
		id.Key(), string(id), lock.Balance.String(), lock.UnlockTime,
	)
	if err != nil {
		return fmt.Errorf("lock write failed: %w", err)
	}
	return nil
}

func (s *sqlState) Global() (domain.Global, error) {
	var (
		g      domain.Global
		owner  string
		paused int
		agg    string
	)
	err := s.tx.QueryRowContext(s.ctx,
		"SELECT owner, deposits_paused, aggregate_balance FROM ledger_state WHERE id = 1",
	).Scan(&owner, &paused, &agg)
	if errors.Is(err, sql.ErrNoRows) {
		return g, ErrNotInitialized
	}
	if err != nil {
		return g, fmt.Errorf("state read failed: %w", err)
	}
	g.Owner = domain.AccountID(owner)
	g.DepositsPaused = paused == 1
	g.AggregateBalance, err = decimal.NewFromString(agg)
	return g, err
}

func (s *sqlState) SetGlobal(g domain.Global) error {
	if s.readOnly {
		return errReadOnly
	}
	paused := 0
	if g.DepositsPaused {
		paused = 1
	}
	_, err := s.tx.ExecContext(s.ctx,
		"UPDATE ledger_state SET deposits_paused = ?, aggregate_balance = ? WHERE id = 1",
		paused, g.AggregateBalance.String(),
	)
	if err != nil {
		return fmt.Errorf("state write failed: %w", err)
	}
	return nil
}

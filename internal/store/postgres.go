package store

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/punchamoorthee/lockvault/internal/domain"
	"github.com/punchamoorthee/lockvault/internal/ledger"
	"github.com/shopspring/decimal"
)

// maxSerializationRetries bounds retries of RepeatableRead conflicts.
const maxSerializationRetries = 10

type Postgres struct {
	Db *pgxpool.Pool
}

// NewPostgres connects, migrates and records owner on first use. An existing
// owner is never replaced.
func NewPostgres(ctx context.Context, connString string, owner domain.AccountID) (*Postgres, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("unable to parse database config: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	s := &Postgres{Db: pool}
	if err := s.migrate(ctx, owner); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

func (s *Postgres) migrate(ctx context.Context, owner domain.AccountID) error {
	for _, stmt := range PostgresMigrations() {
		if _, err := s.Db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	_, err := s.Db.Exec(ctx,
		"INSERT INTO ledger_state (id, owner) VALUES (1, $1) ON CONFLICT (id) DO NOTHING",
		string(owner),
	)
	if err != nil {
		return fmt.Errorf("owner bootstrap failed: %w", err)
	}
	return nil
}

func (s *Postgres) Close() error {
	s.Db.Close()
	return nil
}

// Update runs fn in a RepeatableRead transaction, taking row locks in the
// order fn touches them. Serialization failures are retried.
func (s *Postgres) Update(ctx context.Context, fn func(ledger.State) error) error {
	var err error
	for attempt := 0; attempt < maxSerializationRetries; attempt++ {
		err = s.update(ctx, fn)
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && (pgErr.Code == "40001" || pgErr.Code == "40P01") {
			log.Printf("[store] serialization conflict, retrying (attempt %d)", attempt+1)
			time.Sleep(time.Duration(rand.Intn(5*(attempt+1))) * time.Millisecond)
			continue
		}
		return err
	}
	return err
}

func (s *Postgres) update(ctx context.Context, fn func(ledger.State) error) error {
	tx, err := s.Db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return fmt.Errorf("tx begin failed: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(&pgState{ctx: ctx, tx: tx, forUpdate: true}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("tx commit failed: %w", err)
	}
	return nil
}

func (s *Postgres) View(ctx context.Context, fn func(ledger.State) error) error {
	tx, err := s.Db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly})
	if err != nil {
		return fmt.Errorf("tx begin failed: %w", err)
	}
	defer tx.Rollback(ctx)
	return fn(&pgState{ctx: ctx, tx: tx})
}

// Audit reads the sum and the aggregate in one snapshot.
func (s *Postgres) Audit(ctx context.Context) (domain.AuditReport, error) {
	var (
		report   domain.AuditReport
		sum, agg string
	)
	err := s.Db.QueryRow(ctx, `
		SELECT (SELECT COUNT(*) FROM locks),
		       (SELECT COALESCE(SUM(balance), 0)::text FROM locks),
		       aggregate_balance::text
		FROM ledger_state WHERE id = 1`,
	).Scan(&report.Accounts, &sum, &agg)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return report, ErrNotInitialized
		}
		return report, fmt.Errorf("audit query failed: %w", err)
	}
	if report.SumOfBalances, err = decimal.NewFromString(sum); err != nil {
		return report, err
	}
	if report.AggregateBalance, err = decimal.NewFromString(agg); err != nil {
		return report, err
	}
	report.Consistent = report.SumOfBalances.Equal(report.AggregateBalance)
	return report, nil
}

// pgState implements ledger.State on top of one pgx transaction.
type pgState struct {
	ctx       context.Context
	tx        pgx.Tx
	forUpdate bool
}

func (p *pgState) lockClause() string {
	if p.forUpdate {
		return " FOR UPDATE"
	}
	return ""
}

func (p *pgState) Account(id domain.AccountID) (domain.Lock, error) {
	var (
		balance string
		lock    domain.Lock
	)
	err := p.tx.QueryRow(p.ctx,
		"SELECT balance::text, unlock_time FROM locks WHERE account = $1"+p.lockClause(),
		id.Key(),
	).Scan(&balance, &lock.UnlockTime)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Lock{Balance: decimal.Zero}, nil
	}
	if err != nil {
		return lock, fmt.Errorf("lock read failed: %w", err)
	}
	lock.Balance, err = decimal.NewFromString(balance)
	return lock, err
}

func (p *pgState) SetAccount(id domain.AccountID, lock domain.Lock) error {
	_, err := p.tx.Exec(p.ctx, `
		INSERT INTO locks (account, address, balance, unlock_time, updated_at)
		VALUES ($1, $2, $3::numeric, $4, now())
		ON CONFLICT (account) DO UPDATE SET
			balance     = excluded.balance,
			unlock_time = excluded.unlock_time,
			updated_at  = now()`,
		id.Key(), string(id), lock.Balance.String(), lock.UnlockTime,
	)
	if err != nil {
		return fmt.Errorf("lock write failed: %w", err)
	}
	return nil
}

func (p *pgState) Global() (domain.Global, error) {
	var (
		g     domain.Global
		owner string
		agg   string
	)
	err := p.tx.QueryRow(p.ctx,
		"SELECT owner, deposits_paused, aggregate_balance::text FROM ledger_state WHERE id = 1"+p.lockClause(),
	).Scan(&owner, &g.DepositsPaused, &agg)
	if errors.Is(err, pgx.ErrNoRows) {
		return g, ErrNotInitialized
	}
	if err != nil {
		return g, fmt.Errorf("state read failed: %w", err)
	}
	g.Owner = domain.AccountID(owner)
	g.AggregateBalance, err = decimal.NewFromString(agg)
	return g, err
}

// SetGlobal writes the pause flag and aggregate. The owner column is never updated.
func (p *pgState) SetGlobal(g domain.Global) error {
	_, err := p.tx.Exec(p.ctx,
		"UPDATE ledger_state SET deposits_paused = $1, aggregate_balance = $2::numeric WHERE id = 1",
		g.DepositsPaused, g.AggregateBalance.String(),
	)
	if err != nil {
		return fmt.Errorf("state write failed: %w", err)
	}
	return nil
}

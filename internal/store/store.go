// Package store persists locks and the global ledger record. Every backend
// applies an Update atomically: either all writes made by the callback land
// or none do.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/punchamoorthee/lockvault/internal/domain"
	"github.com/punchamoorthee/lockvault/internal/ledger"
)

// ErrNotInitialized is returned when the global record has not been bootstrapped.
var ErrNotInitialized = errors.New("ledger state not initialized")

// Store is the durable side of the substrate.
type Store interface {
	// Update runs fn in one atomic transaction.
	Update(ctx context.Context, fn func(ledger.State) error) error
	// View runs fn against a consistent read-only snapshot.
	View(ctx context.Context, fn func(ledger.State) error) error
	// Audit recomputes the sum of all balances and compares it with the aggregate.
	Audit(ctx context.Context) (domain.AuditReport, error)
	Close() error
}

// Backend names accepted by Open.
const (
	BackendMemory   = "memory"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

// Options selects and configures a backend.
type Options struct {
	Backend    string
	DBSource   string
	SQLitePath string
	Owner      domain.AccountID
}

// Open creates the configured backend and bootstraps its owner.
func Open(ctx context.Context, opts Options) (Store, error) {
	switch opts.Backend {
	case "", BackendMemory:
		return NewMemory(opts.Owner), nil
	case BackendSQLite:
		return NewSQLite(ctx, opts.SQLitePath, opts.Owner)
	case BackendPostgres:
		return NewPostgres(ctx, opts.DBSource, opts.Owner)
	default:
		return nil, fmt.Errorf("unknown ledger backend %q", opts.Backend)
	}
}

// errReadOnly is returned by writes attempted inside View.
var errReadOnly = errors.New("write attempted in read-only view")

// Package events carries finalized-transaction notifications off the node.
package events

import (
	"context"
	"time"

	"github.com/punchamoorthee/lockvault/internal/domain"
	"github.com/shopspring/decimal"
)

// TopicTxFinalized is the default topic for finalized transactions.
const TopicTxFinalized = "lockvault.tx"

type Publisher interface {
	Publish(ctx context.Context, topic string, key string, event any) error
}

// TxFinalized is emitted once per transaction when it reaches a terminal status.
type TxFinalized struct {
	Hash        string               `json:"hash"`
	Kind        domain.RequestKind   `json:"kind"`
	Caller      domain.AccountID     `json:"caller"`
	Status      domain.ReceiptStatus `json:"status"`
	Reason      string               `json:"reason,omitempty"`
	Block       uint64               `json:"block"`
	Amount      decimal.Decimal      `json:"amount"`
	Transferred decimal.Decimal      `json:"transferred"`
	OccurredAt  time.Time            `json:"occurred_at"`
}

// Nop drops every event.
type Nop struct{}

func (Nop) Publish(context.Context, string, string, any) error { return nil }

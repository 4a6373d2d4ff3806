// Package chain is the lock ledger substrate: a node that accepts mutating
// calls into a mempool, executes them one at a time against a store, and
// reports each outcome as a receipt. Client speaks the same call interface
// over HTTP.
package chain

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/punchamoorthee/lockvault/internal/domain"
	"github.com/punchamoorthee/lockvault/internal/events"
	"github.com/punchamoorthee/lockvault/internal/ledger"
	"github.com/punchamoorthee/lockvault/internal/store"
	"github.com/shopspring/decimal"
)

// ErrNodeStopped is the failure reason for transactions the node accepted but
// never executed because it shut down.
var ErrNodeStopped = errors.New("node stopped")

// Config controls node behavior.
type Config struct {
	MempoolSize int           // Pending transactions accepted before Submit fails
	BlockDelay  time.Duration // Pause before each execution, simulating block time
	MaxReceipts int           // Finalized receipts retained for lookup
	Topic       string        // Event topic for finalized transactions
}

// DefaultConfig returns node defaults.
func DefaultConfig() Config {
	return Config{
		MempoolSize: 1024,
		MaxReceipts: 10_000,
		Topic:       events.TopicTxFinalized,
	}
}

// Node executes submitted calls strictly in acceptance order.
type Node struct {
	cfg    Config
	store  store.Store
	clock  domain.Clock
	events events.Publisher

	queue chan pendingTx

	mu        sync.Mutex
	receipts  map[string]*entry
	finalized []string
	block     uint64
}

type pendingTx struct {
	hash        string
	call        ledger.Call
	submittedAt time.Time
}

type entry struct {
	receipt domain.Receipt
	done    chan struct{}
}

// NewNode creates a node. Run must be started for submissions to execute.
func NewNode(cfg Config, st store.Store, clock domain.Clock, pub events.Publisher) *Node {
	if cfg.MempoolSize <= 0 {
		cfg.MempoolSize = DefaultConfig().MempoolSize
	}
	if cfg.MaxReceipts <= 0 {
		cfg.MaxReceipts = DefaultConfig().MaxReceipts
	}
	if cfg.Topic == "" {
		cfg.Topic = events.TopicTxFinalized
	}
	if clock == nil {
		clock = domain.SystemClock{}
	}
	if pub == nil {
		pub = events.Nop{}
	}
	return &Node{
		cfg:      cfg,
		store:    st,
		clock:    clock,
		events:   pub,
		queue:    make(chan pendingTx, cfg.MempoolSize),
		receipts: make(map[string]*entry),
	}
}

// Run executes queued transactions until ctx is cancelled.
func (n *Node) Run(ctx context.Context) error {
	log.Printf("[node] block producer started (mempool=%d, delay=%s)", n.cfg.MempoolSize, n.cfg.BlockDelay)
	for {
		select {
		case <-ctx.Done():
			n.drain()
			return ctx.Err()
		case tx := <-n.queue:
			mempoolDepth.Set(float64(len(n.queue)))
			if n.cfg.BlockDelay > 0 {
				select {
				case <-time.After(n.cfg.BlockDelay):
				case <-ctx.Done():
					n.abort(tx, ErrNodeStopped)
					n.drain()
					return ctx.Err()
				}
			}
			n.execute(ctx, tx)
		}
	}
}

// drain fails every transaction still in the mempool so no receipt is left
// pending after the producer exits.
func (n *Node) drain() {
	dropped := 0
	for {
		select {
		case tx := <-n.queue:
			n.abort(tx, ErrNodeStopped)
			dropped++
		default:
			mempoolDepth.Set(0)
			log.Printf("[node] block producer stopped, %d pending failed", dropped)
			return
		}
	}
}

// abort finalizes tx as failed without touching the store.
func (n *Node) abort(tx pendingTx, cause error) {
	n.mu.Lock()
	e, ok := n.receipts[tx.hash]
	if !ok {
		n.mu.Unlock()
		return
	}
	r := &e.receipt
	r.Status = domain.ReceiptFailed
	r.Reason = cause.Error()
	r.FinalizedAt = time.Now()
	receipt := *r
	close(e.done)
	n.retain(tx.hash)
	n.mu.Unlock()

	txFinalizedTotal.WithLabelValues(string(receipt.Kind), string(receipt.Status)).Inc()
}

// Submit accepts call into the mempool and returns its transaction hash.
func (n *Node) Submit(ctx context.Context, call ledger.Call) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if _, err := domain.ParseAccountID(string(call.Caller)); err != nil {
		return "", err
	}

	tx := pendingTx{hash: newTxHash(), call: call, submittedAt: time.Now()}
	e := &entry{
		receipt: domain.Receipt{
			Hash:        tx.hash,
			Kind:        call.Kind,
			Caller:      call.Caller,
			Status:      domain.ReceiptPending,
			Transferred: decimal.Zero,
			SubmittedAt: tx.submittedAt,
		},
		done: make(chan struct{}),
	}

	n.mu.Lock()
	n.receipts[tx.hash] = e
	n.mu.Unlock()

	select {
	case n.queue <- tx:
	default:
		n.mu.Lock()
		delete(n.receipts, tx.hash)
		n.mu.Unlock()
		return "", domain.ErrMempoolFull
	}

	txSubmittedTotal.WithLabelValues(string(call.Kind)).Inc()
	mempoolDepth.Set(float64(len(n.queue)))
	log.Printf("[node] accepted %s %s from %s", call.Kind, tx.hash[:10], call.Caller)
	return tx.hash, nil
}

func (n *Node) execute(ctx context.Context, tx pendingTx) {
	now := n.clock.Now().Unix()

	var effect ledger.Effect
	err := n.store.Update(ctx, func(st ledger.State) error {
		var applyErr error
		effect, applyErr = ledger.Apply(st, tx.call, now)
		return applyErr
	})

	n.mu.Lock()
	n.block++
	e := n.receipts[tx.hash]
	r := &e.receipt
	r.Block = n.block
	r.FinalizedAt = time.Now()
	if err != nil {
		r.Status = domain.ReceiptFailed
		r.Reason = err.Error()
	} else {
		r.Status = domain.ReceiptConfirmed
		if !effect.Transferred.IsZero() {
			r.Transferred = effect.Transferred
		}
	}
	receipt := *r
	close(e.done)
	n.retain(tx.hash)
	n.mu.Unlock()

	txFinalizedTotal.WithLabelValues(string(receipt.Kind), string(receipt.Status)).Inc()
	txFinalityLatency.WithLabelValues(string(receipt.Kind)).Observe(receipt.FinalizedAt.Sub(receipt.SubmittedAt).Seconds())

	if err != nil && !IsRevert(err) {
		log.Printf("[node] tx %s failed: %v", tx.hash[:10], err)
	}

	event := events.TxFinalized{
		Hash:        receipt.Hash,
		Kind:        receipt.Kind,
		Caller:      receipt.Caller,
		Status:      receipt.Status,
		Reason:      receipt.Reason,
		Block:       receipt.Block,
		Amount:      tx.call.Amount,
		Transferred: receipt.Transferred,
		OccurredAt:  receipt.FinalizedAt,
	}
	if err := n.events.Publish(ctx, n.cfg.Topic, receipt.Caller.Key(), event); err != nil {
		log.Printf("[node] publish %s: %v", receipt.Hash[:10], err)
	}
}

// retain drops the oldest finalized receipts beyond MaxReceipts. Caller holds n.mu.
func (n *Node) retain(hash string) {
	n.finalized = append(n.finalized, hash)
	for len(n.finalized) > n.cfg.MaxReceipts {
		delete(n.receipts, n.finalized[0])
		n.finalized = n.finalized[1:]
	}
}

// Receipt returns the current receipt for hash without waiting.
func (n *Node) Receipt(hash string) (domain.Receipt, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	e, ok := n.receipts[hash]
	if !ok {
		return domain.Receipt{}, domain.ErrTxNotFound
	}
	return e.receipt, nil
}

// WaitForReceipt blocks until hash is final or ctx is done.
func (n *Node) WaitForReceipt(ctx context.Context, hash string) (domain.Receipt, error) {
	n.mu.Lock()
	e, ok := n.receipts[hash]
	n.mu.Unlock()
	if !ok {
		return domain.Receipt{}, domain.ErrTxNotFound
	}

	select {
	case <-e.done:
	case <-ctx.Done():
		return domain.Receipt{}, ctx.Err()
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	return e.receipt, nil
}

// ─── Call interface ─────────────────────────────────────────────────────────

func (n *Node) Deposit(ctx context.Context, caller domain.AccountID, amount decimal.Decimal, lockSeconds int64) (string, error) {
	return n.Submit(ctx, ledger.Call{Kind: domain.KindDeposit, Caller: caller, Amount: amount, Seconds: lockSeconds})
}

func (n *Node) Withdraw(ctx context.Context, caller domain.AccountID, amount decimal.Decimal) (string, error) {
	return n.Submit(ctx, ledger.Call{Kind: domain.KindWithdraw, Caller: caller, Amount: amount})
}

func (n *Node) ExtendMyLock(ctx context.Context, caller domain.AccountID, extraSeconds int64) (string, error) {
	return n.Submit(ctx, ledger.Call{Kind: domain.KindExtendLock, Caller: caller, Amount: decimal.Zero, Seconds: extraSeconds})
}

func (n *Node) PauseDeposits(ctx context.Context, caller domain.AccountID, desired bool) (string, error) {
	return n.Submit(ctx, ledger.Call{Kind: domain.KindTogglePause, Caller: caller, Amount: decimal.Zero, Desired: desired})
}

func (n *Node) Owner(ctx context.Context) (domain.AccountID, error) {
	g, err := n.global(ctx)
	return g.Owner, err
}

func (n *Node) GetMyLock(ctx context.Context, caller domain.AccountID) (domain.Lock, error) {
	var lock domain.Lock
	err := n.store.View(ctx, func(st ledger.State) error {
		var err error
		lock, err = st.Account(caller)
		return err
	})
	return lock, err
}

func (n *Node) GetContractBalance(ctx context.Context) (decimal.Decimal, error) {
	g, err := n.global(ctx)
	return g.AggregateBalance, err
}

func (n *Node) DepositsPaused(ctx context.Context) (bool, error) {
	g, err := n.global(ctx)
	return g.DepositsPaused, err
}

// Audit checks the aggregate invariant against the stored locks.
func (n *Node) Audit(ctx context.Context) (domain.AuditReport, error) {
	return n.store.Audit(ctx)
}

// Now exposes the node's clock so clients can derive lock states consistently.
func (n *Node) Now() time.Time { return n.clock.Now() }

func (n *Node) global(ctx context.Context) (domain.Global, error) {
	var g domain.Global
	err := n.store.View(ctx, func(st ledger.State) error {
		var err error
		g, err = st.Global()
		return err
	})
	if err != nil {
		return g, fmt.Errorf("read global state: %w", err)
	}
	return g, nil
}

// newTxHash derives a 32-byte transaction identifier.
func newTxHash() string {
	id := uuid.New()
	sum := sha256.Sum256(id[:])
	return "0x" + hex.EncodeToString(sum[:])
}

var _ domain.Substrate = (*Node)(nil)

// IsRevert reports whether err is a ledger rejection rather than an infrastructure fault.
func IsRevert(err error) bool {
	for _, target := range []error{
		domain.ErrDepositsPaused, domain.ErrStillLocked, domain.ErrInsufficientBalance,
		domain.ErrNotOwner, domain.ErrInvalidAmount, domain.ErrInvalidDuration,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

package domain

// RequestKind identifies a mutating ledger call.
type RequestKind string

const (
	KindDeposit     RequestKind = "deposit"
	KindWithdraw    RequestKind = "withdraw"
	KindExtendLock  RequestKind = "extend_lock"
	KindTogglePause RequestKind = "toggle_pause"
)

// LifecycleState tracks one user action from validation to its terminal outcome.
type LifecycleState string

const (
	TxValidating LifecycleState = "validating"
	TxSubmitting LifecycleState = "submitting"
	TxPending    LifecycleState = "pending"
	TxConfirmed  LifecycleState = "confirmed"
	TxFailed     LifecycleState = "failed"
)

var lifecycleOrder = map[LifecycleState]int{
	TxValidating: 0,
	TxSubmitting: 1,
	TxPending:    2,
	TxConfirmed:  3,
	TxFailed:     3,
}

// Terminal reports whether no further transition is allowed.
func (s LifecycleState) Terminal() bool {
	return s == TxConfirmed || s == TxFailed
}

// TxRecord is transient bookkeeping for one in-flight action. It holds no
// ledger state and is dropped once its outcome has been reported.
type TxRecord struct {
	Kind          RequestKind    `json:"kind"`
	SubmittedHash string         `json:"submitted_hash,omitempty"`
	State         LifecycleState `json:"state"`
	ErrorDetail   string         `json:"error_detail,omitempty"`
}

// NewTxRecord starts a record in the Validating state.
func NewTxRecord(kind RequestKind) *TxRecord {
	return &TxRecord{Kind: kind, State: TxValidating}
}

// Advance moves the record one step forward. Confirmed is reachable only
// from Pending; Failed from any non-terminal state.
func (r *TxRecord) Advance(next LifecycleState) error {
	if r.State.Terminal() {
		return ErrInvalidLifecycle
	}
	if next == TxFailed {
		r.State = next
		return nil
	}
	if lifecycleOrder[next] != lifecycleOrder[r.State]+1 {
		return ErrInvalidLifecycle
	}
	r.State = next
	return nil
}

// Submitted records the identifier returned by the substrate and marks the record pending.
func (r *TxRecord) Submitted(hash string) error {
	if err := r.Advance(TxPending); err != nil {
		return err
	}
	r.SubmittedHash = hash
	return nil
}

// Fail marks the record failed with a diagnostic.
func (r *TxRecord) Fail(detail string) {
	if r.State.Terminal() {
		return
	}
	r.State = TxFailed
	r.ErrorDetail = detail
}

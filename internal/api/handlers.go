package api

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/punchamoorthee/lockvault/internal/domain"
	"github.com/punchamoorthee/lockvault/internal/ledger"
	"github.com/punchamoorthee/lockvault/internal/models"
	"github.com/shopspring/decimal"
)

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"}, "GET", "/health")
}

func (h *Handler) Deposit(w http.ResponseWriter, r *http.Request) {
	h.submit(w, r, "/deposit", func(body []byte) (ledger.Call, error) {
		var req models.DepositRequest
		if err := json.Unmarshal(body, &req); err != nil {
			return ledger.Call{}, err
		}
		caller, err := domain.ParseAccountID(req.From)
		return ledger.Call{Kind: domain.KindDeposit, Caller: caller, Amount: req.Amount, Seconds: req.LockSeconds}, err
	})
}

func (h *Handler) Withdraw(w http.ResponseWriter, r *http.Request) {
	h.submit(w, r, "/withdraw", func(body []byte) (ledger.Call, error) {
		var req models.WithdrawRequest
		if err := json.Unmarshal(body, &req); err != nil {
			return ledger.Call{}, err
		}
		caller, err := domain.ParseAccountID(req.From)
		return ledger.Call{Kind: domain.KindWithdraw, Caller: caller, Amount: req.Amount}, err
	})
}

func (h *Handler) Extend(w http.ResponseWriter, r *http.Request) {
	h.submit(w, r, "/extend", func(body []byte) (ledger.Call, error) {
		var req models.ExtendRequest
		if err := json.Unmarshal(body, &req); err != nil {
			return ledger.Call{}, err
		}
		caller, err := domain.ParseAccountID(req.From)
		return ledger.Call{Kind: domain.KindExtendLock, Caller: caller, Amount: decimal.Zero, Seconds: req.ExtraSeconds}, err
	})
}

func (h *Handler) Pause(w http.ResponseWriter, r *http.Request) {
	h.submit(w, r, "/pause", func(body []byte) (ledger.Call, error) {
		var req models.PauseRequest
		if err := json.Unmarshal(body, &req); err != nil {
			return ledger.Call{}, err
		}
		caller, err := domain.ParseAccountID(req.From)
		return ledger.Call{Kind: domain.KindTogglePause, Caller: caller, Amount: decimal.Zero, Desired: req.Desired}, err
	})
}

// submit is shared by every mutating endpoint. Ledger rules are not checked
// here; a rejected call still gets a hash and fails on its receipt.
func (h *Handler) submit(w http.ResponseWriter, r *http.Request, endpoint string, decode func([]byte) (ledger.Call, error)) {
	timer := prometheus.NewTimer(httpLatency.WithLabelValues("POST", endpoint))
	defer timer.ObserveDuration()

	key := r.Header.Get(idempotencyHdr)
	if key == "" {
		h.respondError(w, http.StatusBadRequest, "Missing Idempotency-Key header", "POST", endpoint)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		h.respondError(w, http.StatusInternalServerError, "Stream read error", "POST", endpoint)
		return
	}
	sum := sha256.Sum256(body)
	reqHash := hex.EncodeToString(sum[:])

	call, err := decode(body)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidAccount) {
			h.respondFault(w, err, "POST", endpoint)
			return
		}
		h.respondError(w, http.StatusBadRequest, "Malformed JSON body", "POST", endpoint)
		return
	}

	hash, err := h.submitOnce(r.Context(), key, reqHash, func(ctx context.Context) (string, error) {
		return h.node.Submit(ctx, call)
	})
	if err != nil {
		h.respondFault(w, err, "POST", endpoint)
		return
	}
	h.respondJSON(w, http.StatusAccepted, models.SubmitResponse{Hash: hash}, "POST", endpoint)
}

func (h *Handler) GetTx(w http.ResponseWriter, r *http.Request) {
	receipt, err := h.node.Receipt(mux.Vars(r)["hash"])
	if err != nil {
		h.respondFault(w, err, "GET", "/tx/{hash}")
		return
	}
	h.respondJSON(w, http.StatusOK, receipt, "GET", "/tx/{hash}")
}

// WaitTx holds the request until the transaction is final, for at most
// ?timeout= seconds (capped at 30). A receipt still pending at the deadline
// is returned with 202.
func (h *Handler) WaitTx(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/tx/{hash}/wait"
	timer := prometheus.NewTimer(httpLatency.WithLabelValues("GET", endpoint))
	defer timer.ObserveDuration()

	wait := maxWait
	if v := r.URL.Query().Get("timeout"); v != "" {
		secs, err := strconv.Atoi(v)
		if err != nil || secs < 0 {
			h.respondError(w, http.StatusBadRequest, "Invalid timeout", "GET", endpoint)
			return
		}
		wait = min(time.Duration(secs)*time.Second, maxWait)
	}

	hash := mux.Vars(r)["hash"]
	ctx, cancel := context.WithTimeout(r.Context(), wait)
	defer cancel()

	receipt, err := h.node.WaitForReceipt(ctx, hash)
	if errors.Is(err, context.DeadlineExceeded) && r.Context().Err() == nil {
		if receipt, err = h.node.Receipt(hash); err == nil {
			h.respondJSON(w, http.StatusAccepted, receipt, "GET", endpoint)
			return
		}
	}
	if err != nil {
		h.respondFault(w, err, "GET", endpoint)
		return
	}
	h.respondJSON(w, http.StatusOK, receipt, "GET", endpoint)
}

func (h *Handler) GetOwner(w http.ResponseWriter, r *http.Request) {
	owner, err := h.node.Owner(r.Context())
	if err != nil {
		h.respondFault(w, err, "GET", "/owner")
		return
	}
	h.respondJSON(w, http.StatusOK, models.OwnerResponse{Owner: string(owner)}, "GET", "/owner")
}

func (h *Handler) GetLock(w http.ResponseWriter, r *http.Request) {
	account, err := domain.ParseAccountID(mux.Vars(r)["account"])
	if err != nil {
		h.respondFault(w, err, "GET", "/locks/{account}")
		return
	}
	lock, err := h.node.GetMyLock(r.Context(), account)
	if err != nil {
		h.respondFault(w, err, "GET", "/locks/{account}")
		return
	}
	now := h.node.Now()
	h.respondJSON(w, http.StatusOK, models.LockResponse{
		Account:      string(account),
		Balance:      lock.Balance,
		UnlockTime:   lock.UnlockTime,
		State:        lock.State(now),
		Withdrawable: lock.Balance.IsPositive() && lock.Withdrawable(now),
	}, "GET", "/locks/{account}")
}

func (h *Handler) GetBalance(w http.ResponseWriter, r *http.Request) {
	total, err := h.node.GetContractBalance(r.Context())
	if err != nil {
		h.respondFault(w, err, "GET", "/balance")
		return
	}
	h.respondJSON(w, http.StatusOK, models.BalanceResponse{Balance: total}, "GET", "/balance")
}

func (h *Handler) GetPaused(w http.ResponseWriter, r *http.Request) {
	paused, err := h.node.DepositsPaused(r.Context())
	if err != nil {
		h.respondFault(w, err, "GET", "/paused")
		return
	}
	h.respondJSON(w, http.StatusOK, models.PausedResponse{Paused: paused}, "GET", "/paused")
}

func (h *Handler) GetAudit(w http.ResponseWriter, r *http.Request) {
	report, err := h.node.Audit(r.Context())
	if err != nil {
		h.respondFault(w, err, "GET", "/audit")
		return
	}
	h.respondJSON(w, http.StatusOK, report, "GET", "/audit")
}

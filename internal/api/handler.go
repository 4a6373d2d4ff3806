// Package api exposes a node's call interface over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/punchamoorthee/lockvault/internal/chain"
	"github.com/punchamoorthee/lockvault/internal/domain"
	"github.com/punchamoorthee/lockvault/internal/ledger"
	"github.com/punchamoorthee/lockvault/internal/models"
	"github.com/shopspring/decimal"
)

// Metrics
var (
	httpReqTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lockvault_http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"method", "endpoint", "status"})

	httpLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "lockvault_http_request_duration_seconds",
		Help:    "Request latency",
		Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 30},
	}, []string{"method", "endpoint"})
)

const (
	maxWait        = 30 * time.Second
	maxIdempotency = 10_000
	idempotencyHdr = "Idempotency-Key"
)

// Node is the part of chain.Node the handlers need.
type Node interface {
	Submit(ctx context.Context, call ledger.Call) (string, error)
	Receipt(hash string) (domain.Receipt, error)
	WaitForReceipt(ctx context.Context, hash string) (domain.Receipt, error)
	Owner(ctx context.Context) (domain.AccountID, error)
	GetMyLock(ctx context.Context, caller domain.AccountID) (domain.Lock, error)
	GetContractBalance(ctx context.Context) (decimal.Decimal, error)
	DepositsPaused(ctx context.Context) (bool, error)
	Audit(ctx context.Context) (domain.AuditReport, error)
	Now() time.Time
}

type Handler struct {
	node Node

	idemMu   sync.Mutex
	idem     map[string]models.IdempotencyRecord
	idemKeys []string
}

func NewHandler(n Node) *Handler {
	return &Handler{node: n, idem: make(map[string]models.IdempotencyRecord)}
}

// Router wires every endpoint onto a mux router.
func (h *Handler) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(middleware.RequestID, middleware.Recoverer)

	r.Handle("/metrics", promhttp.Handler())
	r.HandleFunc("/health", h.Health).Methods("GET")

	v1 := r.PathPrefix("/api/v1").Subrouter()
	v1.HandleFunc("/deposit", h.Deposit).Methods("POST")
	v1.HandleFunc("/withdraw", h.Withdraw).Methods("POST")
	v1.HandleFunc("/extend", h.Extend).Methods("POST")
	v1.HandleFunc("/pause", h.Pause).Methods("POST")
	v1.HandleFunc("/tx/{hash}", h.GetTx).Methods("GET")
	v1.HandleFunc("/tx/{hash}/wait", h.WaitTx).Methods("GET")
	v1.HandleFunc("/owner", h.GetOwner).Methods("GET")
	v1.HandleFunc("/locks/{account}", h.GetLock).Methods("GET")
	v1.HandleFunc("/balance", h.GetBalance).Methods("GET")
	v1.HandleFunc("/paused", h.GetPaused).Methods("GET")
	v1.HandleFunc("/audit", h.GetAudit).Methods("GET")
	return r
}

// submitOnce runs submit at most once per Idempotency-Key. A key replayed
// with the same body gets the first hash back.
func (h *Handler) submitOnce(ctx context.Context, key, reqHash string, submit func(context.Context) (string, error)) (string, error) {
	h.idemMu.Lock()
	defer h.idemMu.Unlock()

	if rec, ok := h.idem[key]; ok {
		if rec.RequestHash != reqHash {
			return "", domain.ErrIdempotencyKey
		}
		return rec.TxHash, nil
	}

	hash, err := submit(ctx)
	if err != nil {
		return "", err
	}
	h.idem[key] = models.IdempotencyRecord{Key: key, RequestHash: reqHash, TxHash: hash}
	h.idemKeys = append(h.idemKeys, key)
	if len(h.idemKeys) > maxIdempotency {
		delete(h.idem, h.idemKeys[0])
		h.idemKeys = h.idemKeys[1:]
	}
	return hash, nil
}

// Helpers
func (h *Handler) respondJSON(w http.ResponseWriter, code int, payload any, method, endpoint string) {
	httpReqTotal.WithLabelValues(method, endpoint, strconv.Itoa(code)).Inc()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(payload)
}

func (h *Handler) respondError(w http.ResponseWriter, code int, msg, method, endpoint string) {
	h.respondJSON(w, code, models.ErrorResponse{Error: msg}, method, endpoint)
}

// respondFault maps a node error onto a status code. Ledger rejections carry
// their reason so clients can rebuild the sentinel.
func (h *Handler) respondFault(w http.ResponseWriter, err error, method, endpoint string) {
	switch {
	case chain.IsRevert(err):
		h.respondJSON(w, http.StatusUnprocessableEntity, models.ErrorResponse{Error: "execution reverted", Reason: err.Error()}, method, endpoint)
	case errors.Is(err, domain.ErrInvalidAccount):
		h.respondError(w, http.StatusBadRequest, err.Error(), method, endpoint)
	case errors.Is(err, domain.ErrIdempotencyKey):
		h.respondError(w, http.StatusUnprocessableEntity, err.Error(), method, endpoint)
	case errors.Is(err, domain.ErrTxNotFound):
		h.respondError(w, http.StatusNotFound, err.Error(), method, endpoint)
	case errors.Is(err, domain.ErrMempoolFull):
		h.respondError(w, http.StatusServiceUnavailable, err.Error(), method, endpoint)
	default:
		h.respondError(w, http.StatusInternalServerError, "Internal Server Error", method, endpoint)
	}
}

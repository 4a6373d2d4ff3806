package chain

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/punchamoorthee/lockvault/internal/domain"
	"github.com/punchamoorthee/lockvault/internal/models"
	"github.com/shopspring/decimal"
)

// ClientConfig controls retries against a remote node.
type ClientConfig struct {
	BaseURL       string
	SubmitRetries int           // Extra attempts after a transport failure
	RetryBackoff  time.Duration // Delay between attempts and between finality polls
	HTTPClient    *http.Client
}

// Client implements domain.Substrate over the node's HTTP API. Submissions
// carry an Idempotency-Key so a retried request never executes twice.
type Client struct {
	base    string
	http    *http.Client
	retries int
	backoff time.Duration
}

// NewClient creates a client for the node at cfg.BaseURL.
func NewClient(cfg ClientConfig) *Client {
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: 90 * time.Second}
	}
	backoff := cfg.RetryBackoff
	if backoff <= 0 {
		backoff = 500 * time.Millisecond
	}
	return &Client{
		base:    strings.TrimRight(cfg.BaseURL, "/"),
		http:    hc,
		retries: max(cfg.SubmitRetries, 0),
		backoff: backoff,
	}
}

func (c *Client) Deposit(ctx context.Context, caller domain.AccountID, amount decimal.Decimal, lockSeconds int64) (string, error) {
	return c.submit(ctx, "/api/v1/deposit", models.DepositRequest{From: string(caller), Amount: amount, LockSeconds: lockSeconds})
}

func (c *Client) Withdraw(ctx context.Context, caller domain.AccountID, amount decimal.Decimal) (string, error) {
	return c.submit(ctx, "/api/v1/withdraw", models.WithdrawRequest{From: string(caller), Amount: amount})
}

func (c *Client) ExtendMyLock(ctx context.Context, caller domain.AccountID, extraSeconds int64) (string, error) {
	return c.submit(ctx, "/api/v1/extend", models.ExtendRequest{From: string(caller), ExtraSeconds: extraSeconds})
}

func (c *Client) PauseDeposits(ctx context.Context, caller domain.AccountID, desired bool) (string, error) {
	return c.submit(ctx, "/api/v1/pause", models.PauseRequest{From: string(caller), Desired: desired})
}

// submit posts body, retrying transport failures and 5xx responses with the
// same Idempotency-Key.
func (c *Client) submit(ctx context.Context, path string, body any) (string, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return "", err
	}
	key := uuid.NewString()

	var lastErr error
	for attempt := 0; attempt <= c.retries; attempt++ {
		if attempt > 0 {
			if err := sleep(ctx, c.backoff); err != nil {
				return "", err
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+path, bytes.NewReader(payload))
		if err != nil {
			return "", err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Idempotency-Key", key)

		var out models.SubmitResponse
		status, err := c.do(req, &out)
		switch {
		case err == nil:
			return out.Hash, nil
		case ctx.Err() != nil:
			return "", ctx.Err()
		case status == 0 || status >= 500:
			lastErr = err
			continue
		default:
			return "", fmt.Errorf("%w: %w", domain.ErrSubmission, err)
		}
	}
	return "", fmt.Errorf("%w: %w", domain.ErrSubmission, lastErr)
}

// WaitForReceipt long-polls the node until the transaction is final. There is
// no deadline of its own; only ctx ends the wait early.
func (c *Client) WaitForReceipt(ctx context.Context, hash string) (domain.Receipt, error) {
	for {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+"/api/v1/tx/"+url.PathEscape(hash)+"/wait", nil)
		if err != nil {
			return domain.Receipt{}, err
		}
		var r domain.Receipt
		status, err := c.do(req, &r)
		switch {
		case err == nil && r.Status.Final():
			return r, nil
		case status == http.StatusNotFound:
			return domain.Receipt{}, domain.ErrTxNotFound
		case ctx.Err() != nil:
			return domain.Receipt{}, ctx.Err()
		}
		// Still pending, or the node was unreachable: keep waiting.
		if err := sleep(ctx, c.backoff); err != nil {
			return domain.Receipt{}, err
		}
	}
}

func (c *Client) Owner(ctx context.Context) (domain.AccountID, error) {
	var out models.OwnerResponse
	if err := c.get(ctx, "/api/v1/owner", &out); err != nil {
		return "", err
	}
	return domain.AccountID(out.Owner), nil
}

func (c *Client) GetMyLock(ctx context.Context, caller domain.AccountID) (domain.Lock, error) {
	var out models.LockResponse
	if err := c.get(ctx, "/api/v1/locks/"+url.PathEscape(string(caller)), &out); err != nil {
		return domain.Lock{}, err
	}
	return domain.Lock{Balance: out.Balance, UnlockTime: out.UnlockTime}, nil
}

func (c *Client) GetContractBalance(ctx context.Context) (decimal.Decimal, error) {
	var out models.BalanceResponse
	if err := c.get(ctx, "/api/v1/balance", &out); err != nil {
		return decimal.Zero, err
	}
	return out.Balance, nil
}

func (c *Client) DepositsPaused(ctx context.Context) (bool, error) {
	var out models.PausedResponse
	if err := c.get(ctx, "/api/v1/paused", &out); err != nil {
		return false, err
	}
	return out.Paused, nil
}

// Audit fetches the node's aggregate invariant check.
func (c *Client) Audit(ctx context.Context) (domain.AuditReport, error) {
	var out domain.AuditReport
	err := c.get(ctx, "/api/v1/audit", &out)
	return out, err
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+path, nil)
	if err != nil {
		return err
	}
	_, err = c.do(req, out)
	return err
}

// do sends req and decodes a 2xx body into out. The returned status is 0
// when no response arrived.
func (c *Client) do(req *http.Request, out any) (int, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, err
	}

	if resp.StatusCode == http.StatusAccepted && strings.HasSuffix(req.URL.Path, "/wait") {
		return resp.StatusCode, errPending
	}
	if resp.StatusCode >= 300 {
		var e models.ErrorResponse
		if json.Unmarshal(body, &e) == nil && e.Error != "" {
			if e.Reason != "" {
				return resp.StatusCode, &domain.RevertError{Reason: e.Reason, Err: domain.ReasonOf(e.Reason)}
			}
			if resp.StatusCode == http.StatusServiceUnavailable {
				return resp.StatusCode, fmt.Errorf("%w: %s", domain.ErrMempoolFull, e.Error)
			}
			return resp.StatusCode, errors.New(e.Error)
		}
		return resp.StatusCode, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	if out == nil {
		return resp.StatusCode, nil
	}
	return resp.StatusCode, json.Unmarshal(body, out)
}

var errPending = errors.New("transaction pending")

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

var _ domain.Substrate = (*Client)(nil)

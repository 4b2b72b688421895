package deferredpay

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/ledgersync/backend/internal/domain/integration"
)

// maxResponseSize limits the response body size to prevent memory exhaustion
const maxResponseSize = 5 * 1024 * 1024 // 5MB max response

// transactionKindPayLater is the provider's label for deferred transactions
const transactionKindPayLater = "pay_later"

// ---------------------------------------------------------------------------
// Wire Types
// ---------------------------------------------------------------------------

// sessionResponse is the payload of a successful session exchange
type sessionResponse struct {
	Token string `json:"token"`
}

// transactionResource is one transaction as the provider represents it
type transactionResource struct {
	ID   string `json:"id"`
	Kind string `json:"kind"`
}

// transactionsResponse is the payload of a transaction listing
type transactionsResponse struct {
	Transactions []transactionResource `json:"transactions"`
}

// ---------------------------------------------------------------------------
// Adapter
// ---------------------------------------------------------------------------

// errSessionExpired marks a request rejected for a stale session token
var errSessionExpired = errors.New("deferredpay: session token rejected")

// Adapter implements the DeferredPaymentGateway port. Session tokens expire on
// the provider side without notice, so a rejected token is refreshed once and
// the call retried exactly once before the failure surfaces.
type Adapter struct {
	config     *Config
	httpClient *http.Client

	mu           sync.Mutex
	sessionToken string
}

// Interface compliance check
var _ integration.DeferredPaymentGateway = (*Adapter)(nil)

// NewAdapter creates a deferred-payment adapter with the given configuration
func NewAdapter(config *Config) (*Adapter, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &Adapter{
		config: config,
		httpClient: &http.Client{
			Timeout: time.Duration(config.TimeoutSeconds) * time.Second,
		},
	}, nil
}

// TransactionsByPaymentID lists the provider's transactions for a storefront
// payment id
func (a *Adapter) TransactionsByPaymentID(ctx context.Context, paymentID string) ([]integration.DeferredTransaction, error) {
	if paymentID == "" {
		return nil, fmt.Errorf("%w: empty payment id", integration.ErrRequestFailed)
	}

	result, err := a.listTransactions(ctx, paymentID)
	if errors.Is(err, errSessionExpired) {
		if err := a.refreshSession(ctx); err != nil {
			return nil, err
		}
		result, err = a.listTransactions(ctx, paymentID)
		if errors.Is(err, errSessionExpired) {
			return nil, fmt.Errorf("%w: session rejected after refresh", integration.ErrAuthFailed)
		}
	}
	if err != nil {
		return nil, err
	}

	transactions := make([]integration.DeferredTransaction, 0, len(result.Transactions))
	for _, tx := range result.Transactions {
		kind := integration.DeferredKindImmediate
		if tx.Kind == transactionKindPayLater {
			kind = integration.DeferredKindPayLater
		}
		transactions = append(transactions, integration.DeferredTransaction{
			ID:   tx.ID,
			Kind: kind,
		})
	}
	return transactions, nil
}

// listTransactions performs one listing attempt with the current session token
func (a *Adapter) listTransactions(ctx context.Context, paymentID string) (*transactionsResponse, error) {
	token, err := a.currentToken(ctx)
	if err != nil {
		return nil, err
	}

	endpoint := a.config.BaseURL + "/payments/" + url.PathEscape(paymentID) + "/transactions"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("deferredpay: failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := a.httpClient.Do(req)
	if err != nil {
		if isTimeout(err) {
			return nil, fmt.Errorf("%w: %v", integration.ErrTimeout, err)
		}
		return nil, fmt.Errorf("%w: %v", integration.ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("deferredpay: failed to read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return nil, errSessionExpired
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return nil, fmt.Errorf("%w: payment %s: status %d",
			integration.ErrRequestFailed, paymentID, resp.StatusCode)
	}

	var result transactionsResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("%w: %v", integration.ErrInvalidResponse, err)
	}
	return &result, nil
}

// currentToken returns the cached session token, authenticating on first use
func (a *Adapter) currentToken(ctx context.Context) (string, error) {
	a.mu.Lock()
	token := a.sessionToken
	a.mu.Unlock()
	if token != "" {
		return token, nil
	}
	if err := a.refreshSession(ctx); err != nil {
		return "", err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.sessionToken, nil
}

// refreshSession exchanges the API credentials for a fresh session token
func (a *Adapter) refreshSession(ctx context.Context) error {
	payload, err := json.Marshal(map[string]string{
		"apiKey":    a.config.APIKey,
		"apiSecret": a.config.APISecret,
	})
	if err != nil {
		return fmt.Errorf("deferredpay: failed to marshal credentials: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		a.config.BaseURL+"/auth/session", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("deferredpay: failed to create auth request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		if isTimeout(err) {
			return fmt.Errorf("%w: %v", integration.ErrTimeout, err)
		}
		return fmt.Errorf("%w: %v", integration.ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return fmt.Errorf("deferredpay: failed to read auth response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: session exchange status %d", integration.ErrAuthFailed, resp.StatusCode)
	}

	var session sessionResponse
	if err := json.Unmarshal(body, &session); err != nil {
		return fmt.Errorf("%w: %v", integration.ErrInvalidResponse, err)
	}
	if session.Token == "" {
		return fmt.Errorf("%w: session exchange returned no token", integration.ErrAuthFailed)
	}

	a.mu.Lock()
	a.sessionToken = session.Token
	a.mu.Unlock()
	return nil
}

// isTimeout reports whether the request failed because time ran out
func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

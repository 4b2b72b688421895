package deferredpay

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgersync/backend/internal/domain/integration"
)

func testConfig(baseURL string) *Config {
	return NewConfig(baseURL, "key", "secret")
}

func TestAdapter_TransactionsByPaymentID(t *testing.T) {
	t.Run("authenticates once and lists transactions", func(t *testing.T) {
		var authCalls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.URL.Path {
			case "/auth/session":
				authCalls.Add(1)
				var creds map[string]string
				require.NoError(t, json.NewDecoder(r.Body).Decode(&creds))
				assert.Equal(t, "key", creds["apiKey"])
				json.NewEncoder(w).Encode(map[string]string{"token": "sess-1"})
			case "/payments/pay-777/transactions":
				assert.Equal(t, "Bearer sess-1", r.Header.Get("Authorization"))
				json.NewEncoder(w).Encode(map[string]any{
					"transactions": []map[string]string{
						{"id": "t1", "kind": "pay_later"},
						{"id": "t2", "kind": "payment"},
					},
				})
			default:
				http.NotFound(w, r)
			}
		}))
		defer server.Close()

		adapter, err := NewAdapter(testConfig(server.URL))
		require.NoError(t, err)

		transactions, err := adapter.TransactionsByPaymentID(context.Background(), "pay-777")
		require.NoError(t, err)
		require.Len(t, transactions, 2)
		assert.Equal(t, integration.DeferredKindPayLater, transactions[0].Kind)
		assert.Equal(t, integration.DeferredKindImmediate, transactions[1].Kind)
		assert.Equal(t, int32(1), authCalls.Load())

		// second call reuses the session
		_, err = adapter.TransactionsByPaymentID(context.Background(), "pay-777")
		require.NoError(t, err)
		assert.Equal(t, int32(1), authCalls.Load())
	})

	t.Run("refreshes the session once on a rejected token", func(t *testing.T) {
		var authCalls, listCalls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.URL.Path {
			case "/auth/session":
				n := authCalls.Add(1)
				json.NewEncoder(w).Encode(map[string]string{
					"token": map[int32]string{1: "stale", 2: "fresh"}[n],
				})
			case "/payments/pay-1/transactions":
				listCalls.Add(1)
				if r.Header.Get("Authorization") != "Bearer fresh" {
					w.WriteHeader(http.StatusUnauthorized)
					return
				}
				json.NewEncoder(w).Encode(map[string]any{
					"transactions": []map[string]string{{"id": "t1", "kind": "pay_later"}},
				})
			default:
				http.NotFound(w, r)
			}
		}))
		defer server.Close()

		adapter, err := NewAdapter(testConfig(server.URL))
		require.NoError(t, err)

		transactions, err := adapter.TransactionsByPaymentID(context.Background(), "pay-1")
		require.NoError(t, err)
		require.Len(t, transactions, 1)
		assert.Equal(t, int32(2), authCalls.Load())
		assert.Equal(t, int32(2), listCalls.Load())
	})

	t.Run("persistent rejection surfaces as auth failure", func(t *testing.T) {
		var listCalls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.URL.Path {
			case "/auth/session":
				json.NewEncoder(w).Encode(map[string]string{"token": "always-stale"})
			default:
				listCalls.Add(1)
				w.WriteHeader(http.StatusUnauthorized)
			}
		}))
		defer server.Close()

		adapter, err := NewAdapter(testConfig(server.URL))
		require.NoError(t, err)

		_, err = adapter.TransactionsByPaymentID(context.Background(), "pay-1")
		assert.ErrorIs(t, err, integration.ErrAuthFailed)
		// exactly one retry after the refresh
		assert.Equal(t, int32(2), listCalls.Load())
	})

	t.Run("failed session exchange surfaces as auth failure", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusForbidden)
		}))
		defer server.Close()

		adapter, err := NewAdapter(testConfig(server.URL))
		require.NoError(t, err)

		_, err = adapter.TransactionsByPaymentID(context.Background(), "pay-1")
		assert.ErrorIs(t, err, integration.ErrAuthFailed)
	})

	t.Run("empty payment id is rejected", func(t *testing.T) {
		adapter, err := NewAdapter(testConfig("https://unused.invalid"))
		require.NoError(t, err)

		_, err = adapter.TransactionsByPaymentID(context.Background(), "")
		assert.ErrorIs(t, err, integration.ErrRequestFailed)
	})
}

func TestAllDeferred(t *testing.T) {
	tests := []struct {
		name         string
		transactions []integration.DeferredTransaction
		want         bool
	}{
		{
			name: "all pay later",
			transactions: []integration.DeferredTransaction{
				{ID: "t1", Kind: integration.DeferredKindPayLater},
				{ID: "t2", Kind: integration.DeferredKindPayLater},
			},
			want: true,
		},
		{
			name: "mixed kinds",
			transactions: []integration.DeferredTransaction{
				{ID: "t1", Kind: integration.DeferredKindPayLater},
				{ID: "t2", Kind: integration.DeferredKindImmediate},
			},
			want: false,
		},
		{
			name:         "empty list",
			transactions: nil,
			want:         false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, integration.AllDeferred(tt.transactions))
		})
	}
}

func TestConfig_Validate(t *testing.T) {
	t.Run("missing fields", func(t *testing.T) {
		assert.ErrorIs(t, NewConfig("", "k", "s").Validate(), ErrConfigMissingBaseURL)
		assert.ErrorIs(t, NewConfig("https://x", "", "s").Validate(), ErrConfigMissingAPIKey)
		assert.ErrorIs(t, NewConfig("https://x", "k", "").Validate(), ErrConfigMissingAPISecret)
	})
}

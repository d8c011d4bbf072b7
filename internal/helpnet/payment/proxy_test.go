package payment

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unstuck-ai/helpnet-backend/pkg/logging"
)

func TestProxyPayInvoice(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/payments", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("X-Api-Key"))

		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, true, body["out"])
		assert.Equal(t, "lnbc1invoice", body["bolt11"])

		_ = json.NewEncoder(w).Encode(map[string]string{
			"payment_hash":     "cafebabe",
			"payment_preimage": "deadbeef",
		})
	}))
	defer server.Close()

	b, err := NewProxyBackend(server.URL, "test-key", 0, logging.NoopLogger{})
	require.NoError(t, err)
	defer b.Close()

	receipt, err := b.PayInvoice(context.Background(), "lnbc1invoice")
	require.NoError(t, err)
	assert.Equal(t, "proxy", receipt.Backend)
	assert.Equal(t, "cafebabe", receipt.PaymentHash)
	assert.Equal(t, "deadbeef", receipt.Preimage)
	assert.False(t, receipt.PaidAt.IsZero())
}

func TestProxyPayInvoiceNeverRetries(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	b, err := NewProxyBackend(server.URL, "", 0, logging.NoopLogger{})
	require.NoError(t, err)
	defer b.Close()

	_, err = b.PayInvoice(context.Background(), "lnbc1invoice")
	assert.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestProxyPayInvoiceRejectsClientError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"detail":"invalid key"}`))
	}))
	defer server.Close()

	b, err := NewProxyBackend(server.URL, "wrong", 0, logging.NoopLogger{})
	require.NoError(t, err)
	defer b.Close()

	_, err = b.PayInvoice(context.Background(), "lnbc1invoice")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}

func TestProxyRejectsMissingPaymentHash(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	b, err := NewProxyBackend(server.URL, "", 0, logging.NoopLogger{})
	require.NoError(t, err)
	defer b.Close()

	_, err = b.PayInvoice(context.Background(), "lnbc1invoice")
	assert.Error(t, err)
}

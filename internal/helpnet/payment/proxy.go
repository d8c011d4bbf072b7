package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	httpclient "github.com/unstuck-ai/helpnet-backend/pkg/http"
	"github.com/unstuck-ai/helpnet-backend/pkg/logging"
)

// ProxyBackend pays invoices through an LNbits-style HTTP payment proxy.
// It only knows how to pay; issuing and looking up invoices stays with the
// wallet backend. A payment request is never retried, an ambiguous failure
// must not turn into a double spend.
type ProxyBackend struct {
	baseURL string
	apiKey  string
	client  *httpclient.Client
	logger  logging.Logger
}

func NewProxyBackend(baseURL, apiKey string, timeout time.Duration, logger logging.Logger) (*ProxyBackend, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("payment proxy URL is required")
	}
	cfg := httpclient.DefaultConfig()
	if timeout > 0 {
		cfg.Timeout = timeout
	}
	cfg.RetryConfig.MaxRetries = 1
	cfg.RetryConfig.ShouldRetry = func(error, int) bool { return false }

	client, err := httpclient.NewClient(cfg, logger)
	if err != nil {
		return nil, err
	}
	return &ProxyBackend{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  client,
		logger:  logger,
	}, nil
}

func (b *ProxyBackend) Name() string { return "proxy" }

func (b *ProxyBackend) Close() {
	b.client.Close()
}

// PayInvoice submits the invoice to the proxy's payments endpoint.
func (b *ProxyBackend) PayInvoice(ctx context.Context, invoice string) (*Receipt, error) {
	body, err := json.Marshal(map[string]interface{}{
		"out":    true,
		"bolt11": invoice,
	})
	if err != nil {
		return nil, fmt.Errorf("encoding proxy payment request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+"/api/v1/payments", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("building proxy payment request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if b.apiKey != "" {
		req.Header.Set("X-Api-Key", b.apiKey)
	}

	resp, err := b.client.DoWithRetry(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("proxy payment failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("reading proxy payment response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("proxy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var paid struct {
		PaymentHash string `json:"payment_hash"`
		Preimage    string `json:"payment_preimage"`
	}
	if err := json.Unmarshal(raw, &paid); err != nil {
		return nil, fmt.Errorf("decoding proxy payment response: %w", err)
	}
	if paid.PaymentHash == "" {
		return nil, fmt.Errorf("proxy accepted the request but returned no payment hash")
	}

	return &Receipt{
		Backend:     b.Name(),
		Preimage:    paid.Preimage,
		PaymentHash: paid.PaymentHash,
		PaidAt:      time.Now().UTC(),
	}, nil
}

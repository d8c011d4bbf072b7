package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/nbd-wtf/go-nostr"
	"github.com/nbd-wtf/go-nostr/nip04"

	"github.com/unstuck-ai/helpnet-backend/internal/helpnet/relays"
	"github.com/unstuck-ai/helpnet-backend/pkg/logging"
)

// NIP-47 wallet message kinds.
const (
	KindWalletRequest  = 23194
	KindWalletResponse = 23195
)

// WalletConnectConfig is the parsed form of a nostr+walletconnect:// URI.
type WalletConnectConfig struct {
	WalletPubkey string
	RelayURLs    []string
	Secret       string
}

// ParseWalletConnectURI splits a wallet connect URI into its wallet pubkey,
// relay list and client secret.
func ParseWalletConnectURI(uri string) (*WalletConnectConfig, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return nil, fmt.Errorf("invalid wallet connect URI: %w", err)
	}
	if u.Scheme != "nostr+walletconnect" {
		return nil, fmt.Errorf("unexpected scheme %q in wallet connect URI", u.Scheme)
	}

	walletPubkey := u.Host
	if walletPubkey == "" {
		walletPubkey = u.Opaque
	}
	if walletPubkey == "" {
		return nil, fmt.Errorf("wallet connect URI has no wallet pubkey")
	}

	q := u.Query()
	cfg := &WalletConnectConfig{
		WalletPubkey: walletPubkey,
		RelayURLs:    q["relay"],
		Secret:       q.Get("secret"),
	}
	if len(cfg.RelayURLs) == 0 {
		return nil, fmt.Errorf("wallet connect URI has no relay")
	}
	if cfg.Secret == "" {
		return nil, fmt.Errorf("wallet connect URI has no secret")
	}
	return cfg, nil
}

type walletRequest struct {
	Method string      `json:"method"`
	Params interface{} `json:"params"`
}

type walletError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type walletResponse struct {
	ResultType string          `json:"result_type"`
	Error      *walletError    `json:"error"`
	Result     json.RawMessage `json:"result"`
}

// NWCBackend speaks NIP-47 JSON-RPC to a wallet service over the wallet's
// own relays. Requests are nip04-encrypted to the wallet pubkey; responses
// are correlated back by the request event id.
type NWCBackend struct {
	cfg          *WalletConnectConfig
	bus          relays.Bus
	ownsBus      bool
	sharedSecret []byte
	timeout      time.Duration
	logger       logging.Logger
}

// NewNWCBackend parses the URI and builds a relay pool for the wallet's
// relays. Connect must be called before the first payment.
func NewNWCBackend(uri string, timeout time.Duration, logger logging.Logger) (*NWCBackend, error) {
	cfg, err := ParseWalletConnectURI(uri)
	if err != nil {
		return nil, err
	}
	pool, err := relays.NewPool(cfg.RelayURLs, relays.DefaultConfig(), logger)
	if err != nil {
		return nil, err
	}
	b, err := newNWCBackend(cfg, pool, timeout, logger)
	if err != nil {
		return nil, err
	}
	b.ownsBus = true
	return b, nil
}

func newNWCBackend(cfg *WalletConnectConfig, bus relays.Bus, timeout time.Duration, logger logging.Logger) (*NWCBackend, error) {
	sharedSecret, err := nip04.ComputeSharedSecret(cfg.WalletPubkey, cfg.Secret)
	if err != nil {
		return nil, fmt.Errorf("deriving wallet shared secret: %w", err)
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &NWCBackend{
		cfg:          cfg,
		bus:          bus,
		sharedSecret: sharedSecret,
		timeout:      timeout,
		logger:       logger,
	}, nil
}

func (b *NWCBackend) Name() string { return "nwc" }

// Connect dials the wallet relays when the backend owns its pool.
func (b *NWCBackend) Connect(ctx context.Context) error {
	if pool, ok := b.bus.(*relays.Pool); ok && b.ownsBus {
		return pool.Connect(ctx)
	}
	return nil
}

func (b *NWCBackend) Close() error {
	if b.ownsBus {
		return b.bus.Close()
	}
	return nil
}

// call runs one encrypted request/response round trip with the wallet.
func (b *NWCBackend) call(ctx context.Context, method string, params interface{}) (json.RawMessage, error) {
	payload, err := json.Marshal(walletRequest{Method: method, Params: params})
	if err != nil {
		return nil, fmt.Errorf("encoding %s request: %w", method, err)
	}
	ciphertext, err := nip04.Encrypt(string(payload), b.sharedSecret)
	if err != nil {
		return nil, fmt.Errorf("encrypting %s request: %w", method, err)
	}

	ev := nostr.Event{
		CreatedAt: nostr.Now(),
		Kind:      KindWalletRequest,
		Tags:      nostr.Tags{nostr.Tag{"p", b.cfg.WalletPubkey}},
		Content:   ciphertext,
	}
	if err := ev.Sign(b.cfg.Secret); err != nil {
		return nil, fmt.Errorf("signing %s request: %w", method, err)
	}

	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	// Subscribe before publishing so a fast wallet response cannot slip by.
	sub, err := b.bus.Subscribe(ctx, nostr.Filter{
		Kinds: []int{KindWalletResponse},
		Tags:  nostr.TagMap{"e": []string{ev.ID}},
	})
	if err != nil {
		return nil, fmt.Errorf("subscribing for %s response: %w", method, err)
	}
	defer sub.Close()

	if _, err := b.bus.Publish(ctx, ev); err != nil {
		return nil, fmt.Errorf("publishing %s request: %w", method, err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("no %s response from wallet: %w", method, ctx.Err())
		case respEv := <-sub.Events():
			plaintext, err := nip04.Decrypt(respEv.Content, b.sharedSecret)
			if err != nil {
				b.logger.Warnf("undecryptable wallet response %s: %v", respEv.ID, err)
				continue
			}
			var resp walletResponse
			if err := json.Unmarshal([]byte(plaintext), &resp); err != nil {
				b.logger.Warnf("malformed wallet response %s: %v", respEv.ID, err)
				continue
			}
			if resp.Error != nil {
				return nil, fmt.Errorf("wallet rejected %s: %s (%s)", method, resp.Error.Message, resp.Error.Code)
			}
			return resp.Result, nil
		}
	}
}

// PayInvoice settles a bolt11 invoice through the wallet.
func (b *NWCBackend) PayInvoice(ctx context.Context, invoice string) (*Receipt, error) {
	result, err := b.call(ctx, "pay_invoice", map[string]string{"invoice": invoice})
	if err != nil {
		return nil, err
	}
	var paid struct {
		Preimage    string `json:"preimage"`
		PaymentHash string `json:"payment_hash"`
	}
	if err := json.Unmarshal(result, &paid); err != nil {
		return nil, fmt.Errorf("decoding pay_invoice result: %w", err)
	}
	return &Receipt{
		Backend:     b.Name(),
		Preimage:    paid.Preimage,
		PaymentHash: paid.PaymentHash,
		PaidAt:      time.Now().UTC(),
	}, nil
}

// Invoice is a freshly issued bolt11 invoice.
type Invoice struct {
	Bolt11      string `json:"invoice"`
	PaymentHash string `json:"payment_hash"`
}

// MakeInvoice asks the wallet to issue an invoice. Wallet amounts are in
// millisats.
func (b *NWCBackend) MakeInvoice(ctx context.Context, amountSats int64, description string) (*Invoice, error) {
	result, err := b.call(ctx, "make_invoice", map[string]interface{}{
		"amount":      amountSats * 1000,
		"description": description,
	})
	if err != nil {
		return nil, err
	}
	var inv Invoice
	if err := json.Unmarshal(result, &inv); err != nil {
		return nil, fmt.Errorf("decoding make_invoice result: %w", err)
	}
	return &inv, nil
}

// LookupInvoice reports whether an invoice issued by this wallet settled.
func (b *NWCBackend) LookupInvoice(ctx context.Context, paymentHash string) (settled bool, preimage string, err error) {
	result, err := b.call(ctx, "lookup_invoice", map[string]string{"payment_hash": paymentHash})
	if err != nil {
		return false, "", err
	}
	var looked struct {
		SettledAt int64  `json:"settled_at"`
		Preimage  string `json:"preimage"`
	}
	if err := json.Unmarshal(result, &looked); err != nil {
		return false, "", fmt.Errorf("decoding lookup_invoice result: %w", err)
	}
	return looked.SettledAt > 0 || looked.Preimage != "", looked.Preimage, nil
}

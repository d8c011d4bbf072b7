package payment

import (
	"context"
	"errors"
	"time"

	"github.com/unstuck-ai/helpnet-backend/internal/helpnet/types"
	"github.com/unstuck-ai/helpnet-backend/pkg/logging"
)

// ErrNotConfigured is the attempt outcome recorded for a backend that was
// never set up.
var ErrNotConfigured = errors.New("payment backend not configured")

// Receipt is proof that an invoice settled.
type Receipt struct {
	Backend     string    `json:"backend"`
	Preimage    string    `json:"preimage,omitempty"`
	PaymentHash string    `json:"payment_hash,omitempty"`
	PaidAt      time.Time `json:"paid_at"`
}

// Backend settles bolt11 invoices.
type Backend interface {
	Name() string
	PayInvoice(ctx context.Context, invoice string) (*Receipt, error)
}

// Orchestrator enforces the auto-payment ceiling and runs the two-tier
// backend chain. Each backend is tried at most once per payment; there is
// no retry loop around a settled-or-not question.
type Orchestrator struct {
	primary     Backend
	fallback    Backend
	ceilingSats int64
	logger      logging.Logger
}

func NewOrchestrator(primary, fallback Backend, ceilingSats int64, logger logging.Logger) *Orchestrator {
	return &Orchestrator{
		primary:     primary,
		fallback:    fallback,
		ceilingSats: ceilingSats,
		logger:      logger,
	}
}

// CeilingSats returns the global auto-payment limit.
func (o *Orchestrator) CeilingSats() int64 {
	return o.ceilingSats
}

// Pay settles an invoice for the given amount. The ceiling is checked
// before any backend is contacted; over-limit amounts fail with
// LimitExceededError. Otherwise the primary backend is attempted once,
// then the fallback once, and a PaymentError carrying both outcomes is
// returned if neither settles.
func (o *Orchestrator) Pay(ctx context.Context, invoice string, amountSats int64) (*Receipt, error) {
	if o.ceilingSats <= 0 || amountSats > o.ceilingSats {
		return nil, &types.LimitExceededError{AmountSats: amountSats, CeilingSats: o.ceilingSats}
	}

	primaryErr := ErrNotConfigured
	if o.primary != nil {
		receipt, err := o.primary.PayInvoice(ctx, invoice)
		if err == nil {
			o.logger.Infof("paid %d sats via %s", amountSats, o.primary.Name())
			return receipt, nil
		}
		primaryErr = err
		o.logger.Warnf("%s payment failed: %v", o.primary.Name(), err)
	}

	var fallbackErr error
	if o.fallback != nil {
		receipt, err := o.fallback.PayInvoice(ctx, invoice)
		if err == nil {
			o.logger.Infof("paid %d sats via %s after primary failure", amountSats, o.fallback.Name())
			return receipt, nil
		}
		fallbackErr = err
		o.logger.Warnf("%s payment failed: %v", o.fallback.Name(), err)
	}

	return nil, &types.PaymentError{Primary: primaryErr, Fallback: fallbackErr}
}

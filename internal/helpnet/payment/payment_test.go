package payment

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/unstuck-ai/helpnet-backend/internal/helpnet/types"
	"github.com/unstuck-ai/helpnet-backend/pkg/logging"
)

type mockBackend struct {
	mock.Mock
	name string
}

func (m *mockBackend) Name() string { return m.name }

func (m *mockBackend) PayInvoice(ctx context.Context, invoice string) (*Receipt, error) {
	args := m.Called(ctx, invoice)
	if receipt := args.Get(0); receipt != nil {
		return receipt.(*Receipt), args.Error(1)
	}
	return nil, args.Error(1)
}

func TestPayRejectsOverCeilingWithoutContactingBackends(t *testing.T) {
	primary := &mockBackend{name: "nwc"}
	o := NewOrchestrator(primary, nil, 100, logging.NoopLogger{})

	_, err := o.Pay(context.Background(), "lnbc1", 500)

	var limitErr *types.LimitExceededError
	require.ErrorAs(t, err, &limitErr)
	assert.Equal(t, int64(500), limitErr.AmountSats)
	assert.Equal(t, int64(100), limitErr.CeilingSats)
	primary.AssertNotCalled(t, "PayInvoice", mock.Anything, mock.Anything)
}

func TestPayRejectsEverythingWithZeroCeiling(t *testing.T) {
	o := NewOrchestrator(&mockBackend{name: "nwc"}, nil, 0, logging.NoopLogger{})

	_, err := o.Pay(context.Background(), "lnbc1", 1)

	var limitErr *types.LimitExceededError
	assert.ErrorAs(t, err, &limitErr)
}

func TestPayUsesPrimaryFirst(t *testing.T) {
	primary := &mockBackend{name: "nwc"}
	primary.On("PayInvoice", mock.Anything, "lnbc1").Return(&Receipt{Backend: "nwc", Preimage: "aa"}, nil)
	fallback := &mockBackend{name: "proxy"}

	o := NewOrchestrator(primary, fallback, 100, logging.NoopLogger{})
	receipt, err := o.Pay(context.Background(), "lnbc1", 50)

	require.NoError(t, err)
	assert.Equal(t, "nwc", receipt.Backend)
	fallback.AssertNotCalled(t, "PayInvoice", mock.Anything, mock.Anything)
}

func TestPayFallsBackExactlyOnce(t *testing.T) {
	primary := &mockBackend{name: "nwc"}
	primary.On("PayInvoice", mock.Anything, "lnbc1").Return(nil, errors.New("wallet offline")).Once()
	fallback := &mockBackend{name: "proxy"}
	fallback.On("PayInvoice", mock.Anything, "lnbc1").Return(&Receipt{Backend: "proxy", PaymentHash: "bb"}, nil).Once()

	o := NewOrchestrator(primary, fallback, 100, logging.NoopLogger{})
	receipt, err := o.Pay(context.Background(), "lnbc1", 50)

	require.NoError(t, err)
	assert.Equal(t, "proxy", receipt.Backend)
	primary.AssertExpectations(t)
	fallback.AssertExpectations(t)
}

func TestPayReportsBothFailures(t *testing.T) {
	primary := &mockBackend{name: "nwc"}
	primary.On("PayInvoice", mock.Anything, "lnbc1").Return(nil, errors.New("wallet offline")).Once()
	fallback := &mockBackend{name: "proxy"}
	fallback.On("PayInvoice", mock.Anything, "lnbc1").Return(nil, errors.New("proxy 502")).Once()

	o := NewOrchestrator(primary, fallback, 100, logging.NoopLogger{})
	_, err := o.Pay(context.Background(), "lnbc1", 50)

	var payErr *types.PaymentError
	require.ErrorAs(t, err, &payErr)
	assert.EqualError(t, payErr.Primary, "wallet offline")
	assert.EqualError(t, payErr.Fallback, "proxy 502")
	primary.AssertExpectations(t)
	fallback.AssertExpectations(t)
}

func TestPayWithOnlyFallbackConfigured(t *testing.T) {
	fallback := &mockBackend{name: "proxy"}
	fallback.On("PayInvoice", mock.Anything, "lnbc1").Return(&Receipt{Backend: "proxy"}, nil).Once()

	o := NewOrchestrator(nil, fallback, 100, logging.NoopLogger{})
	receipt, err := o.Pay(context.Background(), "lnbc1", 50)

	require.NoError(t, err)
	assert.Equal(t, "proxy", receipt.Backend)
}

func TestPayWithNoBackendsConfigured(t *testing.T) {
	o := NewOrchestrator(nil, nil, 100, logging.NoopLogger{})

	_, err := o.Pay(context.Background(), "lnbc1", 50)

	var payErr *types.PaymentError
	require.ErrorAs(t, err, &payErr)
	assert.ErrorIs(t, payErr.Primary, ErrNotConfigured)
}

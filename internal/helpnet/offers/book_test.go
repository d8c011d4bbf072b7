package offers

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unstuck-ai/helpnet-backend/internal/helpnet/types"
)

func offer(id string, price int64, invoice string) *types.Offer {
	return &types.Offer{
		EventID:    id,
		JobID:      "job-1",
		PriceSats:  price,
		Invoice:    invoice,
		ReceivedAt: time.Now(),
	}
}

func TestAddIgnoresDuplicates(t *testing.T) {
	b := NewBook()

	assert.True(t, b.Add(offer("ev-1", 21, "lnbc1")))
	assert.False(t, b.Add(offer("ev-1", 21, "lnbc1")))
	assert.Equal(t, 1, b.Len())
}

func TestAllPreservesArrivalOrder(t *testing.T) {
	b := NewBook()
	b.Add(offer("ev-1", 300, "lnbc1"))
	b.Add(offer("ev-2", 100, "lnbc2"))
	b.Add(offer("ev-3", 200, "lnbc3"))

	all := b.All()
	require.Len(t, all, 3)
	assert.Equal(t, "ev-1", all[0].EventID)
	assert.Equal(t, "ev-3", all[2].EventID)
}

func TestSelectCheapestUnderCeiling(t *testing.T) {
	b := NewBook()
	b.Add(offer("ev-1", 300, "lnbc1"))
	b.Add(offer("ev-2", 100, "lnbc2"))
	b.Add(offer("ev-3", 200, "lnbc3"))

	selected := b.Select(250)
	require.NotNil(t, selected)
	assert.Equal(t, "ev-2", selected.EventID)
}

func TestSelectTieBreaksByArrival(t *testing.T) {
	b := NewBook()
	b.Add(offer("ev-1", 100, "lnbc1"))
	b.Add(offer("ev-2", 100, "lnbc2"))

	selected := b.Select(100)
	require.NotNil(t, selected)
	assert.Equal(t, "ev-1", selected.EventID)
}

func TestSelectRespectsCeiling(t *testing.T) {
	b := NewBook()
	b.Add(offer("ev-1", 500, "lnbc1"))

	assert.Nil(t, b.Select(100))
}

func TestSelectWithoutCeilingPicksNothing(t *testing.T) {
	b := NewBook()
	b.Add(offer("ev-1", 1, "lnbc1"))

	assert.Nil(t, b.Select(0))
	assert.Nil(t, b.Select(-5))
}

func TestSelectSkipsUnpayableOffers(t *testing.T) {
	b := NewBook()
	b.Add(offer("ev-1", 50, ""))  // no invoice
	b.Add(offer("ev-2", 0, "ln")) // zero price

	failed := offer("ev-3", 60, "lnbc3")
	failed.Payment = types.PaymentStateError
	b.Add(failed)

	b.Add(offer("ev-4", 80, "lnbc4"))

	selected := b.Select(100)
	require.NotNil(t, selected)
	assert.Equal(t, "ev-4", selected.EventID)
}

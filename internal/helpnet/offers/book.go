package offers

import (
	"github.com/unstuck-ai/helpnet-backend/internal/helpnet/types"
)

// Book is the append-only offer record of a single job. Offers are never
// removed or reordered; payment outcomes are annotated in place. The book
// is not safe for concurrent use, a job's notification goroutine is its
// only writer.
type Book struct {
	offers []*types.Offer
	byID   map[string]*types.Offer
}

func NewBook() *Book {
	return &Book{byID: make(map[string]*types.Offer)}
}

// Add records an offer. Offers with an already-known event id are ignored.
func (b *Book) Add(offer *types.Offer) bool {
	if offer == nil || offer.EventID == "" {
		return false
	}
	if _, exists := b.byID[offer.EventID]; exists {
		return false
	}
	b.offers = append(b.offers, offer)
	b.byID[offer.EventID] = offer
	return true
}

// All returns the offers in arrival order. The slice is a copy, the offer
// records are shared.
func (b *Book) All() []*types.Offer {
	out := make([]*types.Offer, len(b.offers))
	copy(out, b.offers)
	return out
}

func (b *Book) Len() int {
	return len(b.offers)
}

// Get looks an offer up by its event id.
func (b *Book) Get(eventID string) *types.Offer {
	return b.byID[eventID]
}

// Select picks the cheapest payable offer at or under the ceiling, with
// arrival order breaking price ties. Without a positive ceiling nothing is
// ever selected. Offers that already failed a payment attempt are skipped.
func (b *Book) Select(ceilingSats int64) *types.Offer {
	if ceilingSats <= 0 {
		return nil
	}
	var best *types.Offer
	for _, offer := range b.offers {
		if !offer.Valid() || offer.PriceSats > ceilingSats {
			continue
		}
		if offer.Payment == types.PaymentStateError {
			continue
		}
		if best == nil || offer.PriceSats < best.PriceSats {
			best = offer
		}
	}
	return best
}

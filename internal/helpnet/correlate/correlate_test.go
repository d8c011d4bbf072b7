package correlate

import (
	"testing"
	"time"

	"github.com/nbd-wtf/go-nostr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unstuck-ai/helpnet-backend/internal/helpnet/protocol"
)

func offerEvent(id, jobID string, amountSats int64) *nostr.Event {
	ev := protocol.NewOffer(jobID, "requester-pub", amountSats, "lnbc1invoice", "can help")
	ev.ID = id
	ev.PubKey = "helper-pub"
	return &ev
}

func resultEvent(id, jobID string, kind int) *nostr.Event {
	ev := protocol.NewResult(jobID, "requester-pub", `[{"type":"click","x":50,"y":50}]`)
	ev.ID = id
	ev.Kind = kind
	ev.PubKey = "helper-pub"
	return &ev
}

func TestRouteOffer(t *testing.T) {
	c := New("job-1")
	now := time.Now()

	routed := c.Route(offerEvent("ev-1", "job-1", 21), now)
	require.Equal(t, RouteOffer, routed.Kind)
	require.NotNil(t, routed.Offer)
	assert.Equal(t, int64(21), routed.Offer.PriceSats)
	assert.Equal(t, "lnbc1invoice", routed.Offer.Invoice)
	assert.Equal(t, "helper-pub", routed.Offer.Pubkey)
}

func TestRouteDropsDuplicates(t *testing.T) {
	c := New("job-1")
	now := time.Now()

	first := c.Route(offerEvent("ev-1", "job-1", 21), now)
	assert.Equal(t, RouteOffer, first.Kind)

	second := c.Route(offerEvent("ev-1", "job-1", 21), now)
	assert.Equal(t, RouteNone, second.Kind)
	assert.Equal(t, 1, c.Seen())
}

func TestRouteDropsUnrelated(t *testing.T) {
	c := New("job-1")

	routed := c.Route(offerEvent("ev-2", "some-other-job", 21), time.Now())
	assert.Equal(t, RouteNone, routed.Kind)
}

func TestRouteAcceptsEmbeddedRequestTag(t *testing.T) {
	c := New("job-1")
	ev := &nostr.Event{
		ID:   "ev-3",
		Kind: protocol.KindOffer,
		Tags: nostr.Tags{
			{"request", `{"id":"job-1","kind":5109}`},
			{"amount", "42"},
			{"bolt11", "lnbc1embedded"},
		},
	}

	routed := c.Route(ev, time.Now())
	require.Equal(t, RouteOffer, routed.Kind)
	assert.Equal(t, int64(42), routed.Offer.PriceSats)
}

func TestRouteFinalVersusRelatedResult(t *testing.T) {
	c := New("job-1")
	now := time.Now()

	related := c.Route(resultEvent("ev-4", "job-1", 6042), now)
	assert.Equal(t, RouteRelatedResult, related.Kind)
	require.NotNil(t, related.Result)

	final := c.Route(resultEvent("ev-5", "job-1", protocol.KindResultFinal), now)
	assert.Equal(t, RouteFinalResult, final.Kind)
	require.NotNil(t, final.Result)
	assert.Equal(t, `[{"type":"click","x":50,"y":50}]`, final.Result.Content)
}

func TestRouteIgnoresOwnRequestKind(t *testing.T) {
	c := New("job-1")
	ev := &nostr.Event{
		ID:   "ev-6",
		Kind: protocol.KindHelpRequest,
		Tags: nostr.Tags{{"e", "job-1"}},
	}

	routed := c.Route(ev, time.Now())
	assert.Equal(t, RouteNone, routed.Kind)
}

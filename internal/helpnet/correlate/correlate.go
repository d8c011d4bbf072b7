package correlate

import (
	"time"

	"github.com/nbd-wtf/go-nostr"

	"github.com/unstuck-ai/helpnet-backend/internal/helpnet/protocol"
	"github.com/unstuck-ai/helpnet-backend/internal/helpnet/types"
)

// RouteKind says what a raw subscription event turned out to be for a job.
type RouteKind int

const (
	// RouteNone covers duplicates, unrelated events and unhandled kinds.
	RouteNone RouteKind = iota
	RouteOffer
	// RouteRelatedResult is a result-class event that is not terminal.
	RouteRelatedResult
	RouteFinalResult
)

// Routed is the outcome of routing one event.
type Routed struct {
	Kind   RouteKind
	Offer  *types.Offer
	Result *types.JobResult
}

// Correlator filters and classifies the event stream of a single job.
// Relays deliver overlapping streams, so the same event usually arrives
// several times; the first arrival wins and the rest are dropped before
// they can touch any job state. Not safe for concurrent use; each job's
// notification goroutine owns its correlator.
type Correlator struct {
	jobID string
	seen  map[string]struct{}
}

func New(jobID string) *Correlator {
	return &Correlator{
		jobID: jobID,
		seen:  make(map[string]struct{}),
	}
}

// Route classifies one event. Duplicate or unrelated events come back as
// RouteNone.
func (c *Correlator) Route(ev *nostr.Event, receivedAt time.Time) Routed {
	if ev == nil || ev.ID == "" {
		return Routed{}
	}
	if _, dup := c.seen[ev.ID]; dup {
		return Routed{}
	}
	c.seen[ev.ID] = struct{}{}

	if !protocol.RelatedTo(ev, c.jobID) {
		return Routed{}
	}

	switch protocol.Classify(ev.Kind) {
	case protocol.ClassOffer:
		offer := protocol.ParseOffer(ev, c.jobID, receivedAt)
		if offer == nil {
			return Routed{}
		}
		return Routed{Kind: RouteOffer, Offer: offer}
	case protocol.ClassResult:
		result := protocol.ParseResult(ev, c.jobID, receivedAt)
		if result == nil {
			return Routed{}
		}
		if protocol.IsFinalResult(ev.Kind) {
			return Routed{Kind: RouteFinalResult, Result: result}
		}
		return Routed{Kind: RouteRelatedResult, Result: result}
	default:
		return Routed{}
	}
}

// Seen reports how many distinct events this job has processed.
func (c *Correlator) Seen() int {
	return len(c.seen)
}

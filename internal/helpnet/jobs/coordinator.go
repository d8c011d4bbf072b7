package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/nbd-wtf/go-nostr"

	"github.com/unstuck-ai/helpnet-backend/internal/helpnet/correlate"
	"github.com/unstuck-ai/helpnet-backend/internal/helpnet/metrics"
	"github.com/unstuck-ai/helpnet-backend/internal/helpnet/offers"
	"github.com/unstuck-ai/helpnet-backend/internal/helpnet/payment"
	"github.com/unstuck-ai/helpnet-backend/internal/helpnet/protocol"
	"github.com/unstuck-ai/helpnet-backend/internal/helpnet/relays"
	"github.com/unstuck-ai/helpnet-backend/internal/helpnet/types"
	"github.com/unstuck-ai/helpnet-backend/pkg/logging"
)

// Requester publishes a help request and reports the per-relay outcome.
type Requester interface {
	Broadcast(ctx context.Context, req types.HelpRequest) (*nostr.Event, relays.PublishResult, error)
}

// Subscriber is the slice of the relay bus a job needs once its request is
// out.
type Subscriber interface {
	Subscribe(ctx context.Context, filter nostr.Filter) (relays.Subscription, error)
}

// Payer settles an invoice under the global auto-payment ceiling.
type Payer interface {
	Pay(ctx context.Context, invoice string, amountSats int64) (*payment.Receipt, error)
}

// Options bound a job's lifetime.
type Options struct {
	// ResponseTimeout is how long a job waits for a final result after the
	// request is accepted by a relay.
	ResponseTimeout time.Duration
	// OfferLookback widens the subscription window backwards so responses
	// that raced the subscription are still picked up.
	OfferLookback time.Duration
}

func DefaultOptions() Options {
	return Options{
		ResponseTimeout: 5 * time.Minute,
		OfferLookback:   time.Hour,
	}
}

// Coordinator runs help request jobs end to end: broadcast, offer
// collection, payment and the bounded wait for a final result.
type Coordinator struct {
	requester  Requester
	subscriber Subscriber
	payer      Payer
	opts       Options
	logger     logging.Logger
}

// NewCoordinator wires a coordinator. A nil payer disables automatic
// payments; offers are still collected and reported.
func NewCoordinator(requester Requester, subscriber Subscriber, payer Payer, opts Options, logger logging.Logger) *Coordinator {
	if opts.ResponseTimeout <= 0 {
		opts.ResponseTimeout = DefaultOptions().ResponseTimeout
	}
	if opts.OfferLookback <= 0 {
		opts.OfferLookback = DefaultOptions().OfferLookback
	}
	return &Coordinator{
		requester:  requester,
		subscriber: subscriber,
		payer:      payer,
		opts:       opts,
		logger:     logger,
	}
}

// jobState is owned exclusively by the job's notification goroutine while
// it runs. The caller reads it only after that goroutine has exited.
type jobState struct {
	correlator *correlate.Correlator
	book       *offers.Book
	selected   *types.Offer
	result     *types.JobResult
}

// RequestHelp runs one job to completion. It always returns an outcome:
// timeouts and failures carry every offer collected so far, and a panic
// anywhere in the job surfaces as a failed outcome rather than taking the
// process down.
func (c *Coordinator) RequestHelp(ctx context.Context, req types.HelpRequest) (outcome *types.JobOutcome) {
	outcome = &types.JobOutcome{Status: types.JobStatusFailed}
	defer func() {
		if r := recover(); r != nil {
			c.logger.Errorf("job %s panicked: %v", outcome.JobID, r)
			outcome.Status = types.JobStatusFailed
			outcome.Error = fmt.Sprintf("internal error: %v", r)
		}
		metrics.JobsTotal.WithLabelValues(string(outcome.Status)).Inc()
	}()

	ev, pubResult, err := c.requester.Broadcast(ctx, req)
	outcome.Relays = pubResult.RelayStatuses()
	for range pubResult.Accepted {
		metrics.RelayPublishesTotal.WithLabelValues("accepted").Inc()
	}
	for range pubResult.Rejected {
		metrics.RelayPublishesTotal.WithLabelValues("rejected").Inc()
	}
	if ev != nil {
		outcome.JobID = ev.ID
	}
	if err != nil {
		outcome.Error = err.Error()
		return outcome
	}
	outcome.Status = types.JobStatusSent
	if !req.ShouldWait() {
		c.logger.Infof("job %s broadcast fire-and-forget", outcome.JobID)
		return outcome
	}

	since := nostr.Timestamp(time.Now().Add(-c.opts.OfferLookback).Unix())
	sub, err := c.subscriber.Subscribe(ctx, nostr.Filter{
		Tags:  nostr.TagMap{protocol.TagRef: []string{outcome.JobID}},
		Since: &since,
	})
	if err != nil {
		outcome.Error = fmt.Sprintf("subscribing for responses: %v", err)
		return outcome
	}
	defer sub.Close()
	outcome.Status = types.JobStatusAwaitingResult

	state := &jobState{
		correlator: correlate.New(outcome.JobID),
		book:       offers.NewBook(),
	}
	stop := make(chan struct{})
	finished := make(chan struct{})
	go c.watch(ctx, sub, state, req.MaxPriceSats, stop, finished)

	responseTimeout := c.opts.ResponseTimeout
	if req.TimeoutSeconds > 0 {
		responseTimeout = time.Duration(req.TimeoutSeconds) * time.Second
	}
	timer := time.NewTimer(responseTimeout)
	defer timer.Stop()

	timedOut := false
	cancelled := false
	select {
	case <-finished:
	case <-timer.C:
		timedOut = true
	case <-ctx.Done():
		cancelled = true
	}

	// The notification goroutine owns the job state; it must be gone
	// before anything below reads it.
	close(stop)
	<-finished

	outcome.Offers = state.book.All()
	outcome.SelectedOffer = state.selected
	switch {
	case state.result != nil:
		outcome.Status = types.JobStatusCompleted
		outcome.Result = state.result
		c.logger.Infof("job %s completed with %d offers", outcome.JobID, state.book.Len())
	case cancelled || ctx.Err() != nil:
		outcome.Status = types.JobStatusFailed
		outcome.Error = fmt.Sprintf("job cancelled: %v", ctx.Err())
	case timedOut:
		outcome.Status = types.JobStatusTimedOut
		outcome.Error = fmt.Sprintf("no final result within %s", responseTimeout)
		c.logger.Warnf("job %s timed out with %d offers", outcome.JobID, state.book.Len())
	default:
		// The watch loop only exits on its own with a final result, so
		// this is unreachable unless the subscription machinery broke.
		outcome.Status = types.JobStatusFailed
		outcome.Error = "response stream ended unexpectedly"
	}
	return outcome
}

// watch is the single notification goroutine of a job. Every offer, every
// payment and the final result pass through here, one event at a time.
func (c *Coordinator) watch(ctx context.Context, sub relays.Subscription, state *jobState, maxPriceSats int64, stop <-chan struct{}, finished chan<- struct{}) {
	defer close(finished)
	for {
		select {
		case <-stop:
			return
		case <-ctx.Done():
			return
		case ev := <-sub.Events():
			routed := state.correlator.Route(&ev, time.Now())
			switch routed.Kind {
			case correlate.RouteOffer:
				if !state.book.Add(routed.Offer) {
					continue
				}
				metrics.OffersReceivedTotal.Inc()
				c.logger.Infof("job %s: offer %s for %d sats", routed.Offer.JobID, routed.Offer.EventID, routed.Offer.PriceSats)
				c.maybePay(ctx, state, maxPriceSats)
			case correlate.RouteFinalResult:
				state.result = routed.Result
				return
			case correlate.RouteRelatedResult:
				c.logger.Debugf("job %s: progress event %s (kind %d)", routed.Result.JobID, routed.Result.EventID, routed.Result.Kind)
			}
		}
	}
}

// maybePay selects the cheapest payable offer under the request ceiling and
// settles it. Responders wait for payment before working, so this runs as
// soon as a qualifying offer lands rather than after the job ends. A job
// pays successfully at most once; an offer that fails payment is marked and
// never reattempted.
func (c *Coordinator) maybePay(ctx context.Context, state *jobState, maxPriceSats int64) {
	if c.payer == nil {
		return
	}
	if state.selected != nil && state.selected.Payment == types.PaymentStatePaid {
		return
	}
	offer := state.book.Select(maxPriceSats)
	if offer == nil {
		return
	}

	receipt, err := c.payer.Pay(ctx, offer.Invoice, offer.PriceSats)
	if err != nil {
		offer.Payment = types.PaymentStateError
		offer.PaymentError = err.Error()
		metrics.PaymentsTotal.WithLabelValues("any", "error").Inc()
		c.logger.Warnf("job %s: paying offer %s failed: %v", offer.JobID, offer.EventID, err)
		return
	}
	offer.Payment = types.PaymentStatePaid
	state.selected = offer
	metrics.PaymentsTotal.WithLabelValues(receipt.Backend, "paid").Inc()
	c.logger.Infof("job %s: paid offer %s (%d sats) via %s", offer.JobID, offer.EventID, offer.PriceSats, receipt.Backend)
}

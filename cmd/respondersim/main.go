package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/nbd-wtf/go-nostr"

	"github.com/unstuck-ai/helpnet-backend/internal/helpnet/identity"
	"github.com/unstuck-ai/helpnet-backend/internal/helpnet/payment"
	"github.com/unstuck-ai/helpnet-backend/internal/helpnet/protocol"
	"github.com/unstuck-ai/helpnet-backend/internal/helpnet/relays"
	"github.com/unstuck-ai/helpnet-backend/pkg/env"
	"github.com/unstuck-ai/helpnet-backend/pkg/logging"
)

// respondersim plays the human helper side of the protocol end to end:
// it answers every incoming help request with a priced offer, waits for
// the invoice to settle and then publishes a canned action list as the
// final result. Useful for exercising a coordinator against real relays
// without a human in the loop.

const defaultActions = `[{"type":"click","x":50,"y":50}]`

type simulator struct {
	pool    *relays.Pool
	session *identity.Session
	wallet  *payment.NWCBackend
	logger  logging.Logger

	priceSats   int64
	actionsJSON string
	payWait     time.Duration

	seen map[string]struct{}
}

// firstSight records the event ID and reports whether it is new. The pool
// forwards every relay's copy of an event, so a request published to three
// relays arrives three times and must be answered once.
func (s *simulator) firstSight(id string) bool {
	if id == "" {
		return false
	}
	if _, dup := s.seen[id]; dup {
		return false
	}
	s.seen[id] = struct{}{}
	return true
}

func main() {
	_ = godotenv.Load()

	logConfig := logging.LoggerConfig{
		LogDir:        logging.BaseDataDir,
		ProcessName:   logging.ResponderProcess,
		IsDevelopment: env.GetEnvBool("DEV_MODE", true),
	}
	logger, err := logging.NewZapLogger(logConfig)
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}

	logger.Info("Starting Responder Simulator...")

	session, err := identity.NewSession(env.GetEnvString("RESPONDER_PRIVATE_KEY", ""))
	if err != nil {
		logger.Fatal("Failed to initialize signing identity", "error", err)
	}

	relayURLs := env.GetEnvStringList("RELAY_URLS", []string{
		"wss://relay.damus.io",
		"wss://relay.primal.net",
		"wss://nos.lol",
	})
	pool, err := relays.NewPool(relayURLs, relays.DefaultConfig(), logger)
	if err != nil {
		logger.Fatal("Failed to build relay pool", "error", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := pool.Connect(ctx); err != nil {
		logger.Fatal("Failed to connect to relays", "error", err)
	}
	defer pool.Close()

	sim := &simulator{
		pool:        pool,
		session:     session,
		logger:      logger,
		priceSats:   env.GetEnvInt64("OFFER_PRICE_SATS", 21),
		actionsJSON: env.GetEnvString("RESULT_ACTIONS", defaultActions),
		payWait:     time.Duration(env.GetEnvInt("PAYMENT_WAIT_SECONDS", 300)) * time.Second,
		seen:        make(map[string]struct{}),
	}

	if uri := env.GetEnvString("NWC_URI", ""); uri != "" {
		wallet, err := payment.NewNWCBackend(uri, 60*time.Second, logger)
		if err != nil {
			logger.Fatal("Failed to initialize wallet backend", "error", err)
		}
		if err := wallet.Connect(ctx); err != nil {
			logger.Fatal("Failed to connect wallet relays", "error", err)
		}
		defer func() { _ = wallet.Close() }()
		sim.wallet = wallet
	} else {
		logger.Warn("No NWC_URI, offers carry no invoice and results are sent unpaid")
	}

	since := nostr.Now()
	sub, err := pool.Subscribe(ctx, nostr.Filter{
		Kinds: []int{protocol.KindHelpRequest},
		Since: &since,
	})
	if err != nil {
		logger.Fatal("Failed to subscribe for help requests", "error", err)
	}
	defer sub.Close()

	logger.Info("Responder Simulator ready",
		"pubkey", session.PublicKey(),
		"price_sats", sim.priceSats,
		"relays", relayURLs,
	)

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	for {
		select {
		case <-shutdown:
			logger.Info("Responder Simulator shutting down")
			return
		case ev := <-sub.Events():
			if !sim.firstSight(ev.ID) {
				continue
			}
			go sim.respond(ctx, ev)
		}
	}
}

// respond runs the full helper flow for one request.
func (s *simulator) respond(ctx context.Context, req nostr.Event) {
	s.logger.Infof("help request %s: %q", req.ID, protocol.RequestDescription(&req))

	invoice := ""
	paymentHash := ""
	if s.wallet != nil {
		inv, err := s.wallet.MakeInvoice(ctx, s.priceSats, fmt.Sprintf("help request %s", req.ID))
		if err != nil {
			s.logger.Errorf("making invoice for %s failed: %v", req.ID, err)
			return
		}
		invoice = inv.Bolt11
		paymentHash = inv.PaymentHash
	}

	offer := protocol.NewOffer(req.ID, req.PubKey, s.priceSats, invoice, "I can take a look")
	if err := s.session.Sign(&offer); err != nil {
		s.logger.Errorf("signing offer for %s failed: %v", req.ID, err)
		return
	}
	if _, err := s.pool.Publish(ctx, offer); err != nil {
		s.logger.Errorf("publishing offer for %s failed: %v", req.ID, err)
		return
	}
	s.logger.Infof("offer %s sent for %d sats", offer.ID, s.priceSats)

	if s.wallet != nil && paymentHash != "" {
		if !s.awaitSettlement(ctx, req.ID, paymentHash) {
			s.logger.Warnf("request %s: invoice never settled, sending no result", req.ID)
			return
		}
		s.logger.Infof("request %s: invoice settled", req.ID)
	}

	result := protocol.NewResult(req.ID, req.PubKey, s.actionsJSON)
	if err := s.session.Sign(&result); err != nil {
		s.logger.Errorf("signing result for %s failed: %v", req.ID, err)
		return
	}
	if _, err := s.pool.Publish(ctx, result); err != nil {
		s.logger.Errorf("publishing result for %s failed: %v", req.ID, err)
		return
	}
	s.logger.Infof("result %s sent for request %s", result.ID, req.ID)
}

// awaitSettlement polls the wallet until the invoice settles or the wait
// budget runs out.
func (s *simulator) awaitSettlement(ctx context.Context, jobID, paymentHash string) bool {
	deadline := time.Now().Add(s.payWait)
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for time.Now().Before(deadline) {
		select {
		case <-ctx.Done():
			return false
		case <-ticker.C:
			settled, _, err := s.wallet.LookupInvoice(ctx, paymentHash)
			if err != nil {
				s.logger.Debugf("request %s: invoice lookup failed: %v", jobID, err)
				continue
			}
			if settled {
				return true
			}
		}
	}
	return false
}

package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/unstuck-ai/helpnet-backend/internal/helpnet/actions"
	"github.com/unstuck-ai/helpnet-backend/internal/helpnet/api"
	"github.com/unstuck-ai/helpnet-backend/internal/helpnet/api/handlers"
	"github.com/unstuck-ai/helpnet-backend/internal/helpnet/broadcast"
	"github.com/unstuck-ai/helpnet-backend/internal/helpnet/config"
	"github.com/unstuck-ai/helpnet-backend/internal/helpnet/identity"
	"github.com/unstuck-ai/helpnet-backend/internal/helpnet/jobs"
	"github.com/unstuck-ai/helpnet-backend/internal/helpnet/metrics"
	"github.com/unstuck-ai/helpnet-backend/internal/helpnet/payment"
	"github.com/unstuck-ai/helpnet-backend/internal/helpnet/relays"
	"github.com/unstuck-ai/helpnet-backend/internal/helpnet/storage"
	"github.com/unstuck-ai/helpnet-backend/pkg/logging"
)

const shutdownTimeout = 30 * time.Second

func main() {
	// Initialize configuration
	if err := config.Init(); err != nil {
		panic(fmt.Sprintf("Failed to initialize config: %v", err))
	}

	// Initialize logger
	logConfig := logging.LoggerConfig{
		LogDir:        logging.BaseDataDir,
		ProcessName:   logging.HelpnetProcess,
		IsDevelopment: config.IsDevMode(),
	}

	logger, err := logging.NewZapLogger(logConfig)
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}

	logger.Info("Starting Helpnet Coordinator Service...")

	session, err := identity.NewSession(config.GetNostrPrivateKey())
	if err != nil {
		logger.Fatal("Failed to initialize signing identity", "error", err)
	}
	logger.Info("Session identity ready", "pubkey", session.PublicKey())

	startCtx, startCancel := context.WithTimeout(context.Background(), time.Minute)
	defer startCancel()

	// Relay pool
	pool, err := relays.NewPool(config.GetRelayURLs(), relays.DefaultConfig(), logger)
	if err != nil {
		logger.Fatal("Failed to build relay pool", "error", err)
	}
	if err := pool.Connect(startCtx); err != nil {
		logger.Fatal("Failed to connect to relays", "error", err)
	}

	// Screenshot storage, optional
	var uploader storage.Uploader
	if config.GetSpacesAccessKey() != "" {
		spaces, err := storage.NewSpacesClient(startCtx, storage.SpacesConfig{
			AccessKey: config.GetSpacesAccessKey(),
			SecretKey: config.GetSpacesSecretKey(),
			Region:    config.GetSpacesRegion(),
			Bucket:    config.GetSpacesBucket(),
		}, logger)
		if err != nil {
			logger.Fatal("Failed to initialize Spaces storage", "error", err)
		}
		uploader = spaces
	} else {
		logger.Warn("No Spaces credentials, screenshot uploads disabled")
	}

	// Payment backends, both optional
	var primary, fallback payment.Backend
	var nwc *payment.NWCBackend
	if config.GetNWCURI() != "" {
		nwc, err = payment.NewNWCBackend(config.GetNWCURI(), config.GetPaymentTimeout(), logger)
		if err != nil {
			logger.Fatal("Failed to initialize wallet backend", "error", err)
		}
		if err := nwc.Connect(startCtx); err != nil {
			logger.Error("Wallet relays unreachable, wallet payments disabled", "error", err)
		} else {
			primary = nwc
		}
	}
	var proxy *payment.ProxyBackend
	if config.GetProxyURL() != "" {
		proxy, err = payment.NewProxyBackend(config.GetProxyURL(), config.GetProxyAPIKey(), config.GetPaymentTimeout(), logger)
		if err != nil {
			logger.Fatal("Failed to initialize proxy backend", "error", err)
		}
		fallback = proxy
	}
	var payer jobs.Payer
	if primary != nil || fallback != nil {
		payer = payment.NewOrchestrator(primary, fallback, config.GetAutoPayMaxSats(), logger)
	} else {
		logger.Warn("No payment backend configured, offers will not be paid")
	}

	broadcaster := broadcast.NewBroadcaster(pool, uploader, session, logger)
	coordinator := jobs.NewCoordinator(broadcaster, pool, payer, jobs.Options{
		ResponseTimeout: config.GetResponseTimeout(),
		OfferLookback:   config.GetOfferLookback(),
	}, logger)

	// Desktop automation, optional
	var executor *actions.Executor
	if config.GetAutomationURL() != "" {
		daemon, err := actions.NewDaemonClient(config.GetAutomationURL(), 0, logger)
		if err != nil {
			logger.Fatal("Failed to initialize automation client", "error", err)
		}
		defer daemon.Close()
		executor = actions.NewExecutor(daemon, logger)
	}

	metrics.StartMetricsCollection()

	// Setup HTTP server
	srv := api.NewServer(config.GetHost(), config.GetPort(), coordinator, actionRunner(executor), logger)

	// Start HTTP server
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			logger.Error("HTTP server error", "error", err)
		}
	}()

	logger.Info("Helpnet Coordinator Service ready",
		"host", config.GetHost(),
		"port", config.GetPort(),
		"relays", config.GetRelayURLs(),
		"response_timeout", config.GetResponseTimeout(),
		"auto_pay_max_sats", config.GetAutoPayMaxSats(),
	)

	// Handle graceful shutdown
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	<-shutdown

	performGracefulShutdown(srv, pool, nwc, proxy, logger)
}

// actionRunner keeps a typed nil executor from reaching the handler as a
// non-nil interface.
func actionRunner(executor *actions.Executor) handlers.ActionRunner {
	if executor == nil {
		return nil
	}
	return executor
}

func performGracefulShutdown(
	srv *api.Server,
	pool *relays.Pool,
	nwc *payment.NWCBackend,
	proxy *payment.ProxyBackend,
	logger logging.Logger,
) {
	shutdownStart := time.Now()
	logger.Info("Initiating graceful shutdown...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	// Shutdown server gracefully
	if err := srv.Stop(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}

	if nwc != nil {
		if err := nwc.Close(); err != nil {
			logger.Error("Wallet backend shutdown error", "error", err)
		}
	}
	if proxy != nil {
		proxy.Close()
	}
	if err := pool.Close(); err != nil {
		logger.Error("Relay pool shutdown error", "error", err)
	}

	logger.Info("Helpnet Coordinator Service shutdown complete",
		"duration", time.Since(shutdownStart))
	os.Exit(0)
}

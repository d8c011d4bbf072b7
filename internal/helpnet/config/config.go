package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"

	"github.com/unstuck-ai/helpnet-backend/pkg/env"
)

type Config struct {
	// Service Configuration
	Port string
	Host string

	// Relay Configuration
	RelayURLs       []string
	NostrPrivateKey string

	// Help Request Configuration
	ResponseTimeout time.Duration
	OfferLookback   time.Duration

	// Payment Configuration
	NWCURI          string
	ProxyURL        string
	ProxyAPIKey     string
	AutoPayMaxSats  int64
	PaymentTimeout  time.Duration

	// Spaces Storage Configuration
	SpacesAccessKey string
	SpacesSecretKey string
	SpacesRegion    string
	SpacesBucket    string

	// Automation Configuration
	AutomationURL string

	// Logging
	LogLevel string
	DevMode  bool
}

var cfg Config

// Init initializes the configuration
func Init() error {
	if err := godotenv.Load(); err != nil {
		return fmt.Errorf("error loading .env file: %w", err)
	}

	cfg = Config{
		Port: env.GetEnvString("HELPNET_PORT", "9109"),
		Host: env.GetEnvString("HELPNET_HOST", "0.0.0.0"),
		RelayURLs: env.GetEnvStringList("RELAY_URLS", []string{
			"wss://relay.damus.io",
			"wss://relay.primal.net",
			"wss://nos.lol",
		}),
		NostrPrivateKey: env.GetEnvString("NOSTR_PRIVATE_KEY", ""),
		ResponseTimeout: parseDuration(env.GetEnvString("RESPONSE_TIMEOUT", "300s")),
		OfferLookback:   parseDuration(env.GetEnvString("OFFER_LOOKBACK", "1h")),
		NWCURI:          env.GetEnvString("NWC_URI", ""),
		ProxyURL:        env.GetEnvString("PAYMENT_PROXY_URL", ""),
		ProxyAPIKey:     env.GetEnvString("PAYMENT_PROXY_API_KEY", ""),
		AutoPayMaxSats:  env.GetEnvInt64("AUTO_PAY_MAX_SATS", 100),
		PaymentTimeout:  parseDuration(env.GetEnvString("PAYMENT_TIMEOUT", "60s")),
		SpacesAccessKey: env.GetEnvString("SPACES_ACCESS_KEY", ""),
		SpacesSecretKey: env.GetEnvString("SPACES_SECRET_KEY", ""),
		SpacesRegion:    env.GetEnvString("SPACES_REGION", "sfo3"),
		SpacesBucket:    env.GetEnvString("SPACES_BUCKET", "helpnet-screenshots"),
		AutomationURL:   env.GetEnvString("AUTOMATION_URL", "http://localhost:8765"),
		LogLevel:        env.GetEnvString("LOG_LEVEL", "info"),
		DevMode:         env.GetEnvBool("DEV_MODE", false),
	}

	return validateConfig()
}

func parseDuration(s string) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return time.Minute
	}
	return d
}

func validateConfig() error {
	if !env.IsValidPort(cfg.Port) {
		return fmt.Errorf("invalid port: %s", cfg.Port)
	}
	if len(cfg.RelayURLs) == 0 {
		return fmt.Errorf("at least one relay URL is required")
	}
	for _, url := range cfg.RelayURLs {
		if !env.IsValidWebsocketURL(url) {
			return fmt.Errorf("invalid relay URL: %s", url)
		}
	}
	if !env.IsEmpty(cfg.NostrPrivateKey) && !env.IsValidHexKey(cfg.NostrPrivateKey) {
		return fmt.Errorf("NOSTR_PRIVATE_KEY must be a 64 character hex string")
	}
	if !env.IsEmpty(cfg.NWCURI) && !env.IsValidWalletConnectURI(cfg.NWCURI) {
		return fmt.Errorf("NWC_URI must start with nostr+walletconnect://")
	}
	if !env.IsEmpty(cfg.ProxyURL) && !env.IsValidHTTPURL(cfg.ProxyURL) {
		return fmt.Errorf("invalid PAYMENT_PROXY_URL: %s", cfg.ProxyURL)
	}
	if cfg.AutoPayMaxSats < 0 {
		return fmt.Errorf("AUTO_PAY_MAX_SATS must not be negative")
	}
	return nil
}

// GetPort returns the service port
func GetPort() string {
	return cfg.Port
}

// GetHost returns the service host
func GetHost() string {
	return cfg.Host
}

// GetRelayURLs returns the relay websocket URLs
func GetRelayURLs() []string {
	return cfg.RelayURLs
}

// GetNostrPrivateKey returns the hex private key; empty means generate one
func GetNostrPrivateKey() string {
	return cfg.NostrPrivateKey
}

// GetResponseTimeout returns how long a job waits for a final result
func GetResponseTimeout() time.Duration {
	return cfg.ResponseTimeout
}

// GetOfferLookback returns how far back the offer subscription reaches
func GetOfferLookback() time.Duration {
	return cfg.OfferLookback
}

// GetNWCURI returns the Nostr Wallet Connect URI
func GetNWCURI() string {
	return cfg.NWCURI
}

// GetProxyURL returns the payment proxy base URL
func GetProxyURL() string {
	return cfg.ProxyURL
}

// GetProxyAPIKey returns the payment proxy API key
func GetProxyAPIKey() string {
	return cfg.ProxyAPIKey
}

// GetAutoPayMaxSats returns the global autopay ceiling in sats
func GetAutoPayMaxSats() int64 {
	return cfg.AutoPayMaxSats
}

// GetPaymentTimeout returns the per-attempt payment timeout
func GetPaymentTimeout() time.Duration {
	return cfg.PaymentTimeout
}

// GetSpacesAccessKey returns the Spaces access key
func GetSpacesAccessKey() string {
	return cfg.SpacesAccessKey
}

// GetSpacesSecretKey returns the Spaces secret key
func GetSpacesSecretKey() string {
	return cfg.SpacesSecretKey
}

// GetSpacesRegion returns the Spaces region
func GetSpacesRegion() string {
	return cfg.SpacesRegion
}

// GetSpacesBucket returns the Spaces bucket name
func GetSpacesBucket() string {
	return cfg.SpacesBucket
}

// GetAutomationURL returns the desktop automation daemon URL
func GetAutomationURL() string {
	return cfg.AutomationURL
}

// GetLogLevel returns the log level
func GetLogLevel() string {
	return cfg.LogLevel
}

// IsDevMode returns whether the service is in dev mode
func IsDevMode() bool {
	return cfg.DevMode
}

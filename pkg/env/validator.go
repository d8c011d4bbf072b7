package env

import (
	"regexp"
	"strings"
)

func IsEmpty(value string) bool {
	return value == ""
}

// Hex-encoded 32-byte key (Nostr signing keys, NWC secrets).
func IsValidHexKey(key string) bool {
	matched, _ := regexp.MatchString("^[0-9a-fA-F]{64}$", key)
	return matched
}

// Port number between 1024 and 65535
func IsValidPort(port string) bool {
	matched, _ := regexp.MatchString("^(102[4-9]|10[3-9][0-9]|1[1-9][0-9]{2}|[2-9][0-9]{3}|[1-5][0-9]{4}|6[0-4][0-9]{3}|65[0-4][0-9]{2}|655[0-2][0-9]|6553[0-5])$", port)
	return matched
}

// IsValidWebsocketURL accepts ws:// and wss:// relay endpoints.
func IsValidWebsocketURL(url string) bool {
	return strings.HasPrefix(url, "ws://") || strings.HasPrefix(url, "wss://")
}

// IsValidHTTPURL accepts http:// and https:// endpoints.
func IsValidHTTPURL(url string) bool {
	return strings.HasPrefix(url, "http://") || strings.HasPrefix(url, "https://")
}

// IsValidWalletConnectURI accepts nostr+walletconnect:// URIs.
func IsValidWalletConnectURI(uri string) bool {
	return strings.HasPrefix(uri, "nostr+walletconnect://")
}

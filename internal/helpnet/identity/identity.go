// Package identity holds the session signing key. A Session is constructed
// once at startup and injected into every component that publishes events,
// so concurrent jobs and tests can run with isolated identities.
package identity

import (
	"fmt"

	"github.com/nbd-wtf/go-nostr"
)

// Session is a signing identity on the event network.
type Session struct {
	privateKey string
	publicKey  string
}

// NewSession creates a session from a hex private key. An empty key
// generates an ephemeral identity.
func NewSession(privateKey string) (*Session, error) {
	if privateKey == "" {
		privateKey = nostr.GeneratePrivateKey()
	}
	publicKey, err := nostr.GetPublicKey(privateKey)
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}
	return &Session{
		privateKey: privateKey,
		publicKey:  publicKey,
	}, nil
}

// PublicKey returns the hex public key of this session.
func (s *Session) PublicKey() string {
	return s.publicKey
}

// Sign computes the event id and signature in place. The event's pubkey is
// set to this session's key.
func (s *Session) Sign(ev *nostr.Event) error {
	if err := ev.Sign(s.privateKey); err != nil {
		return fmt.Errorf("failed to sign event: %w", err)
	}
	return nil
}

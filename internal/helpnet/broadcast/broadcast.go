package broadcast

import (
	"context"
	"fmt"

	"github.com/nbd-wtf/go-nostr"

	"github.com/unstuck-ai/helpnet-backend/internal/helpnet/identity"
	"github.com/unstuck-ai/helpnet-backend/internal/helpnet/protocol"
	"github.com/unstuck-ai/helpnet-backend/internal/helpnet/relays"
	"github.com/unstuck-ai/helpnet-backend/internal/helpnet/storage"
	"github.com/unstuck-ai/helpnet-backend/internal/helpnet/types"
	"github.com/unstuck-ai/helpnet-backend/pkg/logging"
)

// Publisher is the slice of the relay bus a broadcaster needs.
type Publisher interface {
	Publish(ctx context.Context, ev nostr.Event) (relays.PublishResult, error)
}

// Broadcaster turns help requests into signed protocol events and pushes
// them onto the relay network.
type Broadcaster struct {
	bus      Publisher
	uploader storage.Uploader
	session  *identity.Session
	logger   logging.Logger
}

func NewBroadcaster(bus Publisher, uploader storage.Uploader, session *identity.Session, logger logging.Logger) *Broadcaster {
	return &Broadcaster{
		bus:      bus,
		uploader: uploader,
		session:  session,
		logger:   logger,
	}
}

// Broadcast validates, signs and publishes a help request. The returned
// event's ID is the job ID every later offer and result is correlated by.
// The publish result is returned even on error so callers always see the
// per-relay picture.
func (b *Broadcaster) Broadcast(ctx context.Context, req types.HelpRequest) (*nostr.Event, relays.PublishResult, error) {
	if req.Description == "" && req.ImageURL == "" && req.ImagePath == "" {
		return nil, relays.PublishResult{}, fmt.Errorf("help request needs a description or an image")
	}

	imageURL := req.ImageURL
	if imageURL == "" && req.ImagePath != "" {
		if b.uploader == nil {
			return nil, relays.PublishResult{}, fmt.Errorf("image path given but no uploader configured")
		}
		url, err := b.uploader.Upload(ctx, req.ImagePath)
		if err != nil {
			return nil, relays.PublishResult{}, err
		}
		imageURL = url
	}

	ev := protocol.NewHelpRequest(req.Description, imageURL, req.MaxPriceSats)
	if err := b.session.Sign(&ev); err != nil {
		return nil, relays.PublishResult{}, fmt.Errorf("signing help request: %w", err)
	}

	b.logger.Infof("broadcasting help request %s (max price %d sats)", ev.ID, req.MaxPriceSats)
	result, err := b.bus.Publish(ctx, ev)
	if err != nil {
		return &ev, result, err
	}
	b.logger.Infof("help request %s accepted by %d relays", ev.ID, len(result.Accepted))
	return &ev, result, nil
}

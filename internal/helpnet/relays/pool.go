package relays

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nbd-wtf/go-nostr"

	"github.com/unstuck-ai/helpnet-backend/internal/helpnet/types"
	"github.com/unstuck-ai/helpnet-backend/pkg/logging"
	"github.com/unstuck-ai/helpnet-backend/pkg/websocket"
)

// Bus is the relay network boundary. Everything that talks to relays,
// whether broadcasting help requests or exchanging wallet messages, goes
// through this interface.
type Bus interface {
	Publish(ctx context.Context, ev nostr.Event) (PublishResult, error)
	Subscribe(ctx context.Context, filter nostr.Filter) (Subscription, error)
	Close() error
}

// Subscription delivers events matching a filter from all connected relays.
// The events channel is never closed; callers must select against their own
// cancellation. Duplicate deliveries across relays are not filtered here.
type Subscription interface {
	Events() <-chan nostr.Event
	Close()
}

// PublishResult records the per-relay outcome of a publish attempt.
type PublishResult struct {
	Accepted []string
	Rejected map[string]string
}

// RelayStatuses flattens the result into the per-relay status map reported
// on job outcomes.
func (r PublishResult) RelayStatuses() map[string]types.RelayStatus {
	statuses := make(map[string]types.RelayStatus, len(r.Accepted)+len(r.Rejected))
	for _, url := range r.Accepted {
		statuses[url] = types.RelayStatus{Accepted: true}
	}
	for url, reason := range r.Rejected {
		statuses[url] = types.RelayStatus{Accepted: false, Reason: reason}
	}
	return statuses
}

// Config controls pool behaviour.
type Config struct {
	// AckTimeout bounds how long Publish waits for OK acknowledgements.
	AckTimeout time.Duration
	// Websocket is the per-relay connection configuration.
	Websocket *websocket.Config
}

// DefaultConfig returns a pool configuration with reconnecting connections
// and a 10 second acknowledgement window.
func DefaultConfig() Config {
	return Config{
		AckTimeout: 10 * time.Second,
		Websocket:  websocket.DefaultConfig(),
	}
}

type relayAck struct {
	url      string
	accepted bool
	reason   string
}

type relayConn struct {
	url    string
	client *websocket.Client
}

// Pool maintains one websocket connection per relay and multiplexes
// publishes and subscriptions across all of them.
type Pool struct {
	cfg    Config
	logger logging.Logger

	relays []*relayConn

	mu      sync.Mutex
	pending map[string]chan relayAck
	subs    map[string]*subscription

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewPool builds a pool for the given relay URLs. Connections are not
// established until Connect is called.
func NewPool(urls []string, cfg Config, logger logging.Logger) (*Pool, error) {
	if cfg.AckTimeout <= 0 {
		cfg.AckTimeout = 10 * time.Second
	}
	ctx, cancel := context.WithCancel(context.Background())
	p := &Pool{
		cfg:     cfg,
		logger:  logger,
		pending: make(map[string]chan relayAck),
		subs:    make(map[string]*subscription),
		ctx:     ctx,
		cancel:  cancel,
	}
	for _, url := range urls {
		client, err := websocket.NewClient(url, cfg.Websocket, logger)
		if err != nil {
			cancel()
			return nil, fmt.Errorf("relay %s: %w", url, err)
		}
		p.relays = append(p.relays, &relayConn{url: url, client: client})
	}
	return p, nil
}

// Connect dials every relay. Individual failures are tolerated as long as at
// least one relay comes up.
func (p *Pool) Connect(ctx context.Context) error {
	connected := 0
	for _, rc := range p.relays {
		if err := rc.client.Connect(ctx); err != nil {
			p.logger.Warnf("relay %s unreachable: %v", rc.url, err)
			continue
		}
		connected++
		p.wg.Add(1)
		go p.readLoop(rc)
	}
	if connected == 0 {
		return fmt.Errorf("none of %d relays reachable", len(p.relays))
	}
	p.logger.Infof("connected to %d/%d relays", connected, len(p.relays))
	return nil
}

// Publish signs nothing; it sends the already-signed event to every
// connected relay and waits for acknowledgements. The returned result always
// covers every relay in the pool. ErrNoRelaysAccepted is returned when no
// relay stored the event.
func (p *Pool) Publish(ctx context.Context, ev nostr.Event) (PublishResult, error) {
	result := PublishResult{Rejected: make(map[string]string)}

	frame, err := encodeEventFrame(&ev)
	if err != nil {
		return result, fmt.Errorf("encode event %s: %w", ev.ID, err)
	}

	acks := make(chan relayAck, len(p.relays))
	p.mu.Lock()
	p.pending[ev.ID] = acks
	p.mu.Unlock()
	defer func() {
		p.mu.Lock()
		delete(p.pending, ev.ID)
		p.mu.Unlock()
	}()

	awaiting := make(map[string]bool)
	for _, rc := range p.relays {
		if !rc.client.IsConnected() {
			result.Rejected[rc.url] = "not connected"
			continue
		}
		if err := rc.client.WriteText(ctx, frame); err != nil {
			result.Rejected[rc.url] = err.Error()
			continue
		}
		awaiting[rc.url] = true
	}

	waitCtx, cancelWait := context.WithTimeout(ctx, p.cfg.AckTimeout)
	defer cancelWait()
	for len(awaiting) > 0 {
		select {
		case ack := <-acks:
			if !awaiting[ack.url] {
				continue
			}
			delete(awaiting, ack.url)
			if ack.accepted {
				result.Accepted = append(result.Accepted, ack.url)
			} else {
				result.Rejected[ack.url] = ack.reason
			}
		case <-waitCtx.Done():
			for url := range awaiting {
				result.Rejected[url] = "no acknowledgement before timeout"
			}
			awaiting = nil
		}
	}

	if len(result.Accepted) == 0 {
		return result, types.ErrNoRelaysAccepted
	}
	return result, nil
}

// Subscribe opens a filtered subscription on every connected relay and fans
// the matching events into a single channel.
func (p *Pool) Subscribe(ctx context.Context, filter nostr.Filter) (Subscription, error) {
	subID := uuid.NewString()
	frame, err := encodeReqFrame(subID, filter)
	if err != nil {
		return nil, fmt.Errorf("encode subscription: %w", err)
	}

	sub := &subscription{
		id:     subID,
		pool:   p,
		events: make(chan nostr.Event, 128),
		done:   make(chan struct{}),
	}
	p.mu.Lock()
	p.subs[subID] = sub
	p.mu.Unlock()

	wrote := 0
	for _, rc := range p.relays {
		if !rc.client.IsConnected() {
			continue
		}
		if err := rc.client.WriteText(ctx, frame); err != nil {
			p.logger.Warnf("subscribe on %s failed: %v", rc.url, err)
			continue
		}
		wrote++
	}
	if wrote == 0 {
		p.mu.Lock()
		delete(p.subs, subID)
		p.mu.Unlock()
		return nil, fmt.Errorf("subscription %s reached no relays", subID)
	}
	return sub, nil
}

// Close tears down every relay connection and stops all readers.
func (p *Pool) Close() error {
	p.cancel()
	for _, rc := range p.relays {
		if err := rc.client.Close(); err != nil {
			p.logger.Warnf("closing relay %s: %v", rc.url, err)
		}
	}
	p.wg.Wait()
	return nil
}

func (p *Pool) readLoop(rc *relayConn) {
	defer p.wg.Done()
	for {
		select {
		case <-p.ctx.Done():
			return
		case msg, ok := <-rc.client.Messages():
			if !ok {
				return
			}
			p.handleMessage(rc.url, msg)
		}
	}
}

func (p *Pool) handleMessage(relayURL string, data []byte) {
	frame, err := decodeFrame(data)
	if err != nil {
		p.logger.Debugf("relay %s sent undecodable frame: %v", relayURL, err)
		return
	}

	switch frame.Label {
	case "EVENT":
		p.mu.Lock()
		sub := p.subs[frame.SubID]
		p.mu.Unlock()
		if sub == nil {
			return
		}
		sub.deliver(*frame.Event)
	case "OK":
		p.mu.Lock()
		acks := p.pending[frame.EventID]
		p.mu.Unlock()
		if acks == nil {
			return
		}
		select {
		case acks <- relayAck{url: relayURL, accepted: frame.Accepted, reason: frame.Message}:
		default:
		}
	case "EOSE":
		p.logger.Debugf("relay %s: end of stored events for %s", relayURL, frame.SubID)
	case "CLOSED":
		p.logger.Warnf("relay %s closed subscription %s: %s", relayURL, frame.SubID, frame.Message)
	case "NOTICE":
		p.logger.Infof("relay %s notice: %s", relayURL, frame.Message)
	}
}

type subscription struct {
	id     string
	pool   *Pool
	events chan nostr.Event
	done   chan struct{}
	once   sync.Once
}

func (s *subscription) Events() <-chan nostr.Event {
	return s.events
}

func (s *subscription) deliver(ev nostr.Event) {
	select {
	case <-s.done:
	case s.events <- ev:
	default:
		s.pool.logger.Warnf("subscription %s backlogged, dropping event %s", s.id, ev.ID)
	}
}

// Close stops delivery and asks every relay to drop the subscription.
func (s *subscription) Close() {
	s.once.Do(func() {
		close(s.done)
		p := s.pool
		p.mu.Lock()
		delete(p.subs, s.id)
		p.mu.Unlock()

		frame, err := encodeCloseFrame(s.id)
		if err != nil {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		for _, rc := range p.relays {
			if !rc.client.IsConnected() {
				continue
			}
			_ = rc.client.WriteText(ctx, frame)
		}
	})
}

package websocket

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/unstuck-ai/helpnet-backend/pkg/logging"
	"github.com/unstuck-ai/helpnet-backend/pkg/retry"
)

// Config holds configuration for websocket connection handling.
type Config struct {
	// RetryConfig for initial connection attempts.
	RetryConfig *retry.Config
	// HandshakeTimeout for the websocket handshake.
	HandshakeTimeout time.Duration
	// WriteDeadline for writing messages.
	WriteDeadline time.Duration
	// PingInterval for keepalive pings.
	PingInterval time.Duration
	// PongWait is how long to wait for a pong before the connection is
	// considered dead.
	PongWait time.Duration
	// MaxMessageSize in bytes.
	MaxMessageSize int64
	// Reconnect enables automatic reconnection after a dropped connection.
	Reconnect bool
	// ReconnectDelay is the initial delay between reconnection attempts;
	// it backs off up to ReconnectMaxDelay.
	ReconnectDelay    time.Duration
	ReconnectMaxDelay time.Duration
}

// DefaultConfig returns a default websocket configuration.
func DefaultConfig() *Config {
	return &Config{
		RetryConfig:       retry.DefaultConfig(),
		HandshakeTimeout:  10 * time.Second,
		WriteDeadline:     10 * time.Second,
		PingInterval:      30 * time.Second,
		PongWait:          60 * time.Second,
		MaxMessageSize:    512 * 1024,
		Reconnect:         true,
		ReconnectDelay:    2 * time.Second,
		ReconnectMaxDelay: 2 * time.Minute,
	}
}

func (c *Config) Validate() error {
	if c.HandshakeTimeout <= 0 {
		return fmt.Errorf("handshakeTimeout must be positive")
	}
	if c.WriteDeadline <= 0 {
		return fmt.Errorf("writeDeadline must be positive")
	}
	if c.PingInterval <= 0 {
		return fmt.Errorf("pingInterval must be positive")
	}
	if c.PongWait <= c.PingInterval {
		return fmt.Errorf("pongWait must be greater than pingInterval")
	}
	if c.MaxMessageSize < 0 {
		return fmt.Errorf("maxMessageSize must be >= 0")
	}
	return nil
}

// Client is a websocket connection with retrying connect, keepalive and
// optional automatic reconnection. Received text messages are delivered on
// the Messages channel.
type Client struct {
	url    string
	config *Config
	logger logging.Logger
	dialer *websocket.Dialer

	mu          sync.RWMutex
	conn        *websocket.Conn
	isConnected bool
	closed      bool

	// writeMu serializes data writes; gorilla allows one writer at a time.
	writeMu sync.Mutex

	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	messages chan []byte
}

// NewClient creates a websocket client for the given URL. Connect must be
// called before use.
func NewClient(url string, cfg *Config, logger logging.Logger) (*Client, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid websocket config: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Client{
		url:    url,
		config: cfg,
		logger: logger,
		dialer: &websocket.Dialer{
			HandshakeTimeout: cfg.HandshakeTimeout,
			Proxy:            http.ProxyFromEnvironment,
		},
		ctx:      ctx,
		cancel:   cancel,
		messages: make(chan []byte, 256),
	}, nil
}

// URL returns the endpoint this client connects to.
func (c *Client) URL() string {
	return c.url
}

// Connect establishes the connection with retry logic and starts the read
// and keepalive loops.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.RLock()
	if c.isConnected {
		c.mu.RUnlock()
		return nil
	}
	c.mu.RUnlock()

	operation := func() (*websocket.Conn, error) {
		conn, _, err := c.dialer.DialContext(ctx, c.url, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to %s: %w", c.url, err)
		}
		return conn, nil
	}

	conn, err := retry.Retry(ctx, operation, c.config.RetryConfig, c.logger)
	if err != nil {
		return fmt.Errorf("failed to establish websocket connection: %w", err)
	}

	conn.SetReadLimit(c.config.MaxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(c.config.PongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(c.config.PongWait))
	})
	conn.SetPingHandler(func(appData string) error {
		return conn.WriteControl(websocket.PongMessage, []byte(appData), time.Now().Add(c.config.WriteDeadline))
	})

	c.mu.Lock()
	if c.conn != nil {
		_ = c.conn.Close()
	}
	c.conn = conn
	c.isConnected = true
	c.mu.Unlock()

	c.logger.Debugf("Connected to %s", c.url)

	c.wg.Add(2)
	go c.readLoop(conn)
	go c.pingLoop(conn)

	return nil
}

func (c *Client) readLoop(conn *websocket.Conn) {
	defer c.wg.Done()

	for {
		messageType, message, err := conn.ReadMessage()
		if err != nil {
			select {
			case <-c.ctx.Done():
				return
			default:
			}
			c.logger.Debugf("Read error on %s: %v", c.url, err)
			c.handleDisconnect(conn)
			return
		}

		if messageType != websocket.TextMessage {
			continue
		}

		select {
		case c.messages <- message:
		case <-c.ctx.Done():
			return
		default:
			c.logger.Warnf("Message buffer full for %s, dropping message", c.url)
		}
	}
}

func (c *Client) pingLoop(conn *websocket.Conn) {
	defer c.wg.Done()

	ticker := time.NewTicker(c.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.ctx.Done():
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(c.config.WriteDeadline)); err != nil {
				c.logger.Debugf("Ping failed on %s: %v", c.url, err)
				return
			}
		}
	}
}

func (c *Client) handleDisconnect(conn *websocket.Conn) {
	c.mu.Lock()
	if c.conn == conn {
		c.isConnected = false
		c.conn = nil
	}
	c.mu.Unlock()
	_ = conn.Close()

	if !c.config.Reconnect {
		return
	}

	c.wg.Add(1)
	go c.reconnectLoop()
}

func (c *Client) reconnectLoop() {
	defer c.wg.Done()

	delay := c.config.ReconnectDelay
	for attempt := 1; ; attempt++ {
		select {
		case <-c.ctx.Done():
			return
		case <-time.After(delay):
		}

		connectCtx, cancel := context.WithTimeout(c.ctx, c.config.HandshakeTimeout*2)
		err := c.Connect(connectCtx)
		cancel()
		if err == nil {
			c.logger.Infof("Reconnected to %s after %d attempts", c.url, attempt)
			return
		}

		c.logger.Warnf("Reconnect attempt %d to %s failed: %v", attempt, c.url, err)
		delay *= 2
		if delay > c.config.ReconnectMaxDelay {
			delay = c.config.ReconnectMaxDelay
		}
	}
}

// WriteText writes a text message to the connection.
func (c *Client) WriteText(ctx context.Context, data []byte) error {
	c.mu.RLock()
	conn := c.conn
	connected := c.isConnected
	c.mu.RUnlock()

	if !connected || conn == nil {
		return fmt.Errorf("websocket %s not connected", c.url)
	}

	deadline := time.Now().Add(c.config.WriteDeadline)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = conn.SetWriteDeadline(deadline)
	return conn.WriteMessage(websocket.TextMessage, data)
}

// Messages returns the channel of received text messages.
func (c *Client) Messages() <-chan []byte {
	return c.messages
}

// IsConnected reports whether the connection is currently established.
func (c *Client) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.isConnected
}

// Close tears down the connection and stops all background loops.
func (c *Client) Close() error {
	c.cancel()

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	conn := c.conn
	c.conn = nil
	c.isConnected = false
	c.mu.Unlock()

	var err error
	if conn != nil {
		closeMsg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		_ = conn.WriteControl(websocket.CloseMessage, closeMsg, time.Now().Add(c.config.WriteDeadline))
		err = conn.Close()
	}

	c.wg.Wait()
	return err
}

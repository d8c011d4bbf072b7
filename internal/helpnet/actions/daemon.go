package actions

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	httpclient "github.com/unstuck-ai/helpnet-backend/pkg/http"
	"github.com/unstuck-ai/helpnet-backend/pkg/logging"
)

// DaemonClient drives a local desktop automation daemon over HTTP. The
// daemon owns the display; this client just translates primitives into
// REST calls.
type DaemonClient struct {
	baseURL string
	client  *httpclient.Client
}

func NewDaemonClient(baseURL string, timeout time.Duration, logger logging.Logger) (*DaemonClient, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("automation daemon URL is required")
	}
	cfg := httpclient.DefaultConfig()
	if timeout > 0 {
		cfg.Timeout = timeout
	}
	client, err := httpclient.NewClient(cfg, logger)
	if err != nil {
		return nil, err
	}
	return &DaemonClient{baseURL: baseURL, client: client}, nil
}

func (c *DaemonClient) Close() {
	c.client.Close()
}

func (c *DaemonClient) ScreenSize(ctx context.Context) (int, int, error) {
	resp, err := c.client.Get(ctx, c.baseURL+"/screen_size")
	if err != nil {
		return 0, 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return 0, 0, fmt.Errorf("screen_size returned %d", resp.StatusCode)
	}

	var size struct {
		Width  int `json:"width"`
		Height int `json:"height"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 4096)).Decode(&size); err != nil {
		return 0, 0, fmt.Errorf("decoding screen size: %w", err)
	}
	return size.Width, size.Height, nil
}

func (c *DaemonClient) Click(ctx context.Context, x, y int) error {
	return c.post(ctx, "/click", map[string]int{"x": x, "y": y})
}

func (c *DaemonClient) DoubleClick(ctx context.Context, x, y int) error {
	return c.post(ctx, "/double_click", map[string]int{"x": x, "y": y})
}

func (c *DaemonClient) MoveMouse(ctx context.Context, x, y int) error {
	return c.post(ctx, "/move_mouse", map[string]int{"x": x, "y": y})
}

func (c *DaemonClient) Drag(ctx context.Context, startX, startY, endX, endY int) error {
	return c.post(ctx, "/drag", map[string]int{
		"start_x": startX,
		"start_y": startY,
		"end_x":   endX,
		"end_y":   endY,
	})
}

func (c *DaemonClient) post(ctx context.Context, path string, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encoding %s request: %w", path, err)
	}
	resp, err := c.client.Post(ctx, c.baseURL+path, "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%s failed: %w", path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("%s returned %d: %s", path, resp.StatusCode, bytes.TrimSpace(raw))
	}
	return nil
}

package actions

import (
	"context"
	"fmt"
	"time"

	"github.com/unstuck-ai/helpnet-backend/internal/helpnet/metrics"
	"github.com/unstuck-ai/helpnet-backend/pkg/logging"
)

// settleDelay gives the desktop a moment between actions so targets that
// are still animating have landed before the pointer fires.
const settleDelay = 100 * time.Millisecond

// Automation performs primitive mouse operations at pixel coordinates.
type Automation interface {
	ScreenSize(ctx context.Context) (width, height int, err error)
	Click(ctx context.Context, x, y int) error
	DoubleClick(ctx context.Context, x, y int) error
	MoveMouse(ctx context.Context, x, y int) error
	Drag(ctx context.Context, startX, startY, endX, endY int) error
}

// ActionResult is the outcome of one executed action.
type ActionResult struct {
	Index int    `json:"index"`
	Type  string `json:"type"`
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// Executor replays an action list against the automation backend. A failed
// action does not stop the batch; an unreachable backend fails every
// action with the same reason without attempting any of them.
type Executor struct {
	auto   Automation
	settle time.Duration
	logger logging.Logger
}

func NewExecutor(auto Automation, logger logging.Logger) *Executor {
	return &Executor{auto: auto, settle: settleDelay, logger: logger}
}

// Execute resolves percentage coordinates against the current screen size
// and runs every action in order. Before each typed action the pointer is
// moved to its target after a short settle delay.
func (e *Executor) Execute(ctx context.Context, list []Action) ([]ActionResult, error) {
	width, height, err := e.auto.ScreenSize(ctx)
	if err == nil && (width <= 0 || height <= 0) {
		err = fmt.Errorf("reported screen size %dx%d", width, height)
	}
	if err != nil {
		reason := fmt.Sprintf("automation backend unavailable: %v", err)
		e.logger.Errorf("action batch not attempted: %s", reason)
		results := make([]ActionResult, 0, len(list))
		for i, action := range list {
			metrics.ActionsExecutedTotal.WithLabelValues(action.Type, "error").Inc()
			results = append(results, ActionResult{Index: i, Type: action.Type, Error: reason})
		}
		return results, nil
	}

	results := make([]ActionResult, 0, len(list))
	for i, action := range list {
		err := e.run(ctx, action, width, height)
		result := ActionResult{Index: i, Type: action.Type, OK: err == nil}
		if err != nil {
			result.Error = err.Error()
			metrics.ActionsExecutedTotal.WithLabelValues(action.Type, "error").Inc()
			e.logger.Warnf("action %d (%s) failed: %v", i, action.Type, err)
		} else {
			metrics.ActionsExecutedTotal.WithLabelValues(action.Type, "ok").Inc()
		}
		results = append(results, result)
	}
	return results, nil
}

func (e *Executor) run(ctx context.Context, a Action, width, height int) error {
	if err := e.pause(ctx); err != nil {
		return err
	}
	switch a.Type {
	case TypeClick:
		x, y := ToPixel(a.X, width), ToPixel(a.Y, height)
		if err := e.auto.MoveMouse(ctx, x, y); err != nil {
			return err
		}
		return e.auto.Click(ctx, x, y)
	case TypeDoubleClick:
		x, y := ToPixel(a.X, width), ToPixel(a.Y, height)
		if err := e.auto.MoveMouse(ctx, x, y); err != nil {
			return err
		}
		return e.auto.DoubleClick(ctx, x, y)
	case TypeMoveMouse:
		return e.auto.MoveMouse(ctx, ToPixel(a.X, width), ToPixel(a.Y, height))
	case TypeDrag:
		sx, sy := ToPixel(a.StartX, width), ToPixel(a.StartY, height)
		if err := e.auto.MoveMouse(ctx, sx, sy); err != nil {
			return err
		}
		return e.auto.Drag(ctx, sx, sy, ToPixel(a.EndX, width), ToPixel(a.EndY, height))
	default:
		return fmt.Errorf("unknown action type %q", a.Type)
	}
}

func (e *Executor) pause(ctx context.Context) error {
	if e.settle <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(e.settle):
		return nil
	}
}

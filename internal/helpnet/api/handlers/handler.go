package handlers

import (
	"context"

	"github.com/unstuck-ai/helpnet-backend/internal/helpnet/actions"
	"github.com/unstuck-ai/helpnet-backend/internal/helpnet/types"
	"github.com/unstuck-ai/helpnet-backend/pkg/logging"
)

// HelpRunner runs a help request job to completion.
type HelpRunner interface {
	RequestHelp(ctx context.Context, req types.HelpRequest) *types.JobOutcome
}

// ActionRunner replays a parsed action list on the desktop.
type ActionRunner interface {
	Execute(ctx context.Context, list []actions.Action) ([]actions.ActionResult, error)
}

type Handler struct {
	coordinator HelpRunner
	executor    ActionRunner
	logger      logging.Logger
}

func NewHandler(coordinator HelpRunner, executor ActionRunner, logger logging.Logger) *Handler {
	return &Handler{
		coordinator: coordinator,
		executor:    executor,
		logger:      logger,
	}
}

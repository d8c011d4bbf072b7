package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/unstuck-ai/helpnet-backend/internal/helpnet/actions"
	"github.com/unstuck-ai/helpnet-backend/internal/helpnet/types"
	"github.com/unstuck-ai/helpnet-backend/pkg/logging"
)

type mockCoordinator struct {
	mock.Mock
}

func (m *mockCoordinator) RequestHelp(ctx context.Context, req types.HelpRequest) *types.JobOutcome {
	args := m.Called(ctx, req)
	return args.Get(0).(*types.JobOutcome)
}

type mockExecutor struct {
	mock.Mock
}

func (m *mockExecutor) Execute(ctx context.Context, list []actions.Action) ([]actions.ActionResult, error) {
	args := m.Called(ctx, list)
	if results := args.Get(0); results != nil {
		return results.([]actions.ActionResult), args.Error(1)
	}
	return nil, args.Error(1)
}

func TestHandleHelp(t *testing.T) {
	coordinator := new(mockCoordinator)
	coordinator.On("RequestHelp", mock.Anything, mock.MatchedBy(func(req types.HelpRequest) bool {
		return req.Description == "stuck on a captcha" && req.MaxPriceSats == 100
	})).Return(&types.JobOutcome{
		JobID:  "job-1",
		Status: types.JobStatusCompleted,
	})

	h := NewHandler(coordinator, nil, logging.NoopLogger{})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/help",
		strings.NewReader(`{"description":"stuck on a captcha","max_price_sats":100}`))
	rec := httptest.NewRecorder()

	h.HandleHelp(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var outcome types.JobOutcome
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &outcome))
	assert.Equal(t, "job-1", outcome.JobID)
	assert.Equal(t, types.JobStatusCompleted, outcome.Status)
	coordinator.AssertExpectations(t)
}

func TestHandleHelpTimedOutStillOK(t *testing.T) {
	coordinator := new(mockCoordinator)
	coordinator.On("RequestHelp", mock.Anything, mock.Anything).Return(&types.JobOutcome{
		JobID:  "job-1",
		Status: types.JobStatusTimedOut,
		Offers: []*types.Offer{{EventID: "offer-1", PriceSats: 21}},
	})

	h := NewHandler(coordinator, nil, logging.NoopLogger{})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/help",
		strings.NewReader(`{"description":"stuck"}`))
	rec := httptest.NewRecorder()

	h.HandleHelp(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var outcome types.JobOutcome
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &outcome))
	assert.Equal(t, types.JobStatusTimedOut, outcome.Status)
	assert.Len(t, outcome.Offers, 1)
}

func TestHandleHelpValidation(t *testing.T) {
	h := NewHandler(new(mockCoordinator), nil, logging.NoopLogger{})

	cases := map[string]string{
		"empty body":  `{}`,
		"not json":    `description=stuck`,
		"both images": `{"description":"stuck","image_path":"/tmp/a.png","image_url":"https://x/a.png"}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/help", strings.NewReader(body))
			rec := httptest.NewRecorder()
			h.HandleHelp(rec, req)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestHandleHelpImageOnlyRequest(t *testing.T) {
	coordinator := new(mockCoordinator)
	coordinator.On("RequestHelp", mock.Anything, mock.MatchedBy(func(req types.HelpRequest) bool {
		return req.Description == "" && req.ImageURL == "https://x/a.png"
	})).Return(&types.JobOutcome{JobID: "job-1", Status: types.JobStatusCompleted})

	h := NewHandler(coordinator, nil, logging.NoopLogger{})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/help",
		strings.NewReader(`{"image_url":"https://x/a.png"}`))
	rec := httptest.NewRecorder()

	h.HandleHelp(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	coordinator.AssertExpectations(t)
}

func TestHandleExecute(t *testing.T) {
	executor := new(mockExecutor)
	executor.On("Execute", mock.Anything, mock.MatchedBy(func(list []actions.Action) bool {
		return len(list) == 1 && list[0].Type == actions.TypeClick
	})).Return([]actions.ActionResult{{Index: 0, Type: actions.TypeClick, OK: true}}, nil)

	h := NewHandler(nil, executor, logging.NoopLogger{})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/execute",
		strings.NewReader(`[{"type":"click","x":50,"y":50}]`))
	rec := httptest.NewRecorder()

	h.HandleExecute(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"executed":1`)
	executor.AssertExpectations(t)
}

func TestHandleExecuteBadPayload(t *testing.T) {
	h := NewHandler(nil, new(mockExecutor), logging.NoopLogger{})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/execute",
		strings.NewReader(`[{"type":"teleport","x":1,"y":1}]`))
	rec := httptest.NewRecorder()

	h.HandleExecute(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleExecuteBackendDown(t *testing.T) {
	executor := new(mockExecutor)
	executor.On("Execute", mock.Anything, mock.Anything).
		Return(nil, errors.New("automation backend unavailable: connection refused"))

	h := NewHandler(nil, executor, logging.NoopLogger{})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/execute",
		strings.NewReader(`[{"type":"click","x":50,"y":50}]`))
	rec := httptest.NewRecorder()

	h.HandleExecute(rec, req)

	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestHandleExecuteNoBackendConfigured(t *testing.T) {
	h := NewHandler(nil, nil, logging.NoopLogger{})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/execute",
		strings.NewReader(`[{"type":"click","x":50,"y":50}]`))
	rec := httptest.NewRecorder()

	h.HandleExecute(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestHandleHealth(t *testing.T) {
	h := NewHandler(nil, nil, logging.NoopLogger{})
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()

	h.HandleHealth(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "healthy")
}

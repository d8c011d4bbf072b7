package handlers

import (
	"io"
	"net/http"

	"github.com/unstuck-ai/helpnet-backend/internal/helpnet/actions"
)

// HandleExecute parses an action payload and replays it on the desktop.
// The body is the payload itself: a JSON action list or an object with an
// "actions" field, exactly as helpers send it in results.
func (h *Handler) HandleExecute(w http.ResponseWriter, r *http.Request) {
	if h.executor == nil {
		writeError(w, http.StatusServiceUnavailable, "no automation backend configured")
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		writeError(w, http.StatusBadRequest, "reading request body: "+err.Error())
		return
	}

	list, err := actions.ParseActions(string(body))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	results, err := h.executor.Execute(r.Context(), list)
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"executed": len(results),
		"results":  results,
	})
}

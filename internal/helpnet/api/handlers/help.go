package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/unstuck-ai/helpnet-backend/internal/helpnet/types"
)

// HandleHelp accepts a help request, runs the whole job and responds with
// its outcome. The response is 200 whatever the job's final status was;
// callers read the status field. The connection stays open for the job's
// bounded wait, so clients should use a generous request timeout.
func (h *Handler) HandleHelp(w http.ResponseWriter, r *http.Request) {
	var req types.HelpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.Description == "" && req.ImagePath == "" && req.ImageURL == "" {
		writeError(w, http.StatusBadRequest, "description or an image is required")
		return
	}
	if req.ImagePath != "" && req.ImageURL != "" {
		writeError(w, http.StatusBadRequest, "give either image_path or image_url, not both")
		return
	}

	h.logger.Infof("help request received: %.80q", req.Description)
	outcome := h.coordinator.RequestHelp(r.Context(), req)
	writeJSON(w, http.StatusOK, outcome)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

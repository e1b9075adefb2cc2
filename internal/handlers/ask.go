package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"github.com/JumajiCa/ChatDVC/internal/middleware"
	"github.com/JumajiCa/ChatDVC/internal/models"
)

type counselor interface {
	Ask(ctx context.Context, userID uuid.UUID, req models.AskRequest) (*models.AskResponse, error)
}

type AskHandler struct {
	counselor counselor
}

func NewAskHandler(c counselor) *AskHandler {
	return &AskHandler{counselor: c}
}

func (h *AskHandler) Ask(w http.ResponseWriter, r *http.Request) {
	var req models.AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	resp, err := h.counselor.Ask(r.Context(), middleware.GetUserID(r.Context()), req)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

package handlers

import (
	"encoding/json"
	"net/http"

	"foundrgpt/internal/middleware"
)

type validateIdeaRequest struct {
	Idea string `json:"idea"`
}

// ValidateIdea runs the validation pipeline and returns the result together
// with the session it was stored in and the refreshed quota snapshot.
func (a *App) ValidateIdea(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	var req validateIdeaRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}

	out, err := a.Ideas.Validate(r.Context(), userID, middleware.RequestIDFromContext(r.Context()), req.Idea)
	if err != nil {
		a.domainError(w, err)
		return
	}

	resp := map[string]any{"validation": out.Validation}
	if out.ChatID != "" {
		resp["chat_id"] = out.ChatID
	}
	if out.Account != nil {
		resp["quota"] = map[string]any{
			"prompts_used":      out.Account.PromptsUsed,
			"prompts_remaining": out.Account.PromptsRemaining,
			"prompts_reset_at":  out.Account.PromptsResetAt,
		}
	}
	a.json(w, http.StatusOK, resp)
}

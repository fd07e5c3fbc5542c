package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"foundrgpt/internal/domain"
	"foundrgpt/internal/middleware"
)

const sessionTTL = 7 * 24 * time.Hour

type verifyTokenRequest struct {
	IDToken string `json:"id_token"`
}

// VerifyToken exchanges the identity provider's ID token for the service's
// own session JWT, upserting the account on the way.
func (a *App) VerifyToken(w http.ResponseWriter, r *http.Request) {
	var req verifyTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	if req.IDToken == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "id_token required")
		return
	}

	claims, err := a.Identity.VerifyIDToken(r.Context(), req.IDToken)
	if err != nil {
		a.Logger.Warn().Err(err).Msg("id token rejected")
		a.error(w, http.StatusUnauthorized, "unauthorized", "invalid identity token")
		return
	}

	acct, err := a.Accounts.Sync(r.Context(), domain.Profile{
		ExternalID: claims.Subject,
		Email:      claims.Email,
		Name:       claims.Name,
		AvatarURL:  claims.AvatarURL,
	})
	if err != nil {
		a.domainError(w, err)
		return
	}

	token, err := middleware.SignJWT(a.JWTSecret, middleware.SessionClaims{
		Sub:       acct.ExternalID,
		Email:     acct.Email,
		Name:      acct.Name,
		AvatarURL: acct.AvatarURL,
		Plan:      string(acct.Plan),
		Exp:       time.Now().Add(sessionTTL).Unix(),
		Issuer:    "foundrgpt",
	})
	if err != nil {
		a.domainError(w, err)
		return
	}

	a.json(w, http.StatusOK, map[string]any{
		"token": token,
		"user":  userView(acct),
	})
}

package handlers

import (
	"net/http"

	"foundrgpt/internal/domain"
)

func (a *App) ListOrders(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	acct, err := a.Accounts.GetByExternalID(r.Context(), userID)
	if err != nil {
		a.domainError(w, err)
		return
	}
	orders := acct.OrderHistory
	if orders == nil {
		orders = []domain.Order{}
	}
	a.json(w, http.StatusOK, map[string]any{"orders": orders})
}

// ClearOrders empties the caller's order history.
func (a *App) ClearOrders(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	if _, err := a.Accounts.Mutate(r.Context(), userID, func(u *domain.UserAccount) error {
		u.OrderHistory = nil
		return nil
	}); err != nil {
		a.domainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

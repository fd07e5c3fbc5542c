package handlers

import (
	"net/http"

	"foundrgpt/internal/billing"
	"foundrgpt/internal/middleware"
)

// Pricing returns the localized premium price for the caller's country.
// Unauthenticated so the landing page can render it.
func (a *App) Pricing(w http.ResponseWriter, r *http.Request) {
	country := middleware.CountryFromContext(r.Context())
	cfg := billing.Resolve(country)
	a.json(w, http.StatusOK, map[string]any{
		"plan":          billing.PlanPremiumName,
		"country":       country,
		"currency":      cfg.Code,
		"symbol":        cfg.Symbol,
		"amount":        cfg.PremiumPrice,
		"display_price": cfg.DisplayPrice,
	})
}

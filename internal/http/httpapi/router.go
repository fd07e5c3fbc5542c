package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"foundrgpt/internal/http/handlers"
	"foundrgpt/internal/infra"
	"foundrgpt/internal/middleware"
)

// NewRouter wires the public API surface. Every authenticated route operates
// on the session subject only; no route carries another user's id.
func NewRouter(app *handlers.App, cfg *infra.Config, countryLookup middleware.CountryLookup) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.RequestID,
		chimw.RealIP,
		chimw.Recoverer,
		middleware.Logger(app.Logger),
		middleware.CORS(cfg.AllowedOrigins),
		middleware.RateLimit(cfg.RateLimitPerMin, time.Minute),
		middleware.Country(countryLookup),
	)

	r.Get("/v1/healthz", app.Health)
	r.Get("/v1/billing/pricing", app.Pricing)
	r.Post("/v1/auth/verify", app.VerifyToken)
	r.Post("/v1/payments/webhook", app.PaymentWebhook)

	r.Group(func(r chi.Router) {
		r.Use(middleware.AuthJWT(cfg.JWTSecret))

		r.Route("/v1/users", func(r chi.Router) {
			r.Get("/me", app.Me)
			r.Post("/sync", app.SyncUser)
		})

		r.Post("/v1/ideas/validate", app.ValidateIdea)

		r.Route("/v1/chats", func(r chi.Router) {
			r.Get("/", app.ListChats)
			r.Post("/", app.CreateChat)
			r.Get("/{id}", app.GetChat)
			r.Delete("/{id}", app.DeleteChat)
		})

		r.Route("/v1/orders", func(r chi.Router) {
			r.Get("/", app.ListOrders)
			r.Delete("/", app.ClearOrders)
		})

		r.Route("/v1/payments", func(r chi.Router) {
			r.Post("/order", app.CreatePaymentOrder)
			r.Post("/verify", app.VerifyPayment)
		})
	})

	return r
}

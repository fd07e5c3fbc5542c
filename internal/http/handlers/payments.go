package handlers

import (
	"encoding/json"
	"io"
	"net/http"

	"foundrgpt/internal/billing"
	"foundrgpt/internal/middleware"
)

// CreatePaymentOrder opens a gateway order for the premium plan, priced in
// the caller's resolved currency.
func (a *App) CreatePaymentOrder(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	cfg := billing.Resolve(middleware.CountryFromContext(r.Context()))
	if !cfg.AmountWithinBounds(cfg.PremiumPrice) {
		a.error(w, http.StatusInternalServerError, "config_error", "premium price out of gateway bounds")
		return
	}
	order, err := a.Payments.CreateOrder(r.Context(), userID, cfg.PremiumPrice, cfg.Code)
	if err != nil {
		a.domainError(w, err)
		return
	}
	a.json(w, http.StatusOK, map[string]any{
		"order_id":      order.ID,
		"amount":        order.Amount,
		"currency":      order.Currency,
		"display_price": cfg.DisplayPrice,
	})
}

type verifyPaymentRequest struct {
	GatewayOrderID   string `json:"gateway_order_id"`
	GatewayPaymentID string `json:"gateway_payment_id"`
	Signature        string `json:"signature"`
}

// VerifyPayment is the checkout callback: signature check, gateway
// cross-check, idempotent plan upgrade.
func (a *App) VerifyPayment(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	var req verifyPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	if req.GatewayOrderID == "" || req.GatewayPaymentID == "" || req.Signature == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "gateway_order_id, gateway_payment_id and signature required")
		return
	}
	acct, order, err := a.Payments.VerifyAndApply(r.Context(), userID, req.GatewayOrderID, req.GatewayPaymentID, req.Signature)
	if err != nil {
		a.domainError(w, err)
		return
	}
	a.json(w, http.StatusOK, map[string]any{
		"user":  userView(acct),
		"order": order,
	})
}

const maxWebhookBody = 1 << 20

// PaymentWebhook handles gateway deliveries. No session auth; trust comes
// from the HMAC over the raw body.
func (a *App) PaymentWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "unreadable body")
		return
	}
	signature := r.Header.Get("X-Razorpay-Signature")
	if signature == "" {
		signature = r.Header.Get("X-Webhook-Signature")
	}
	if err := a.Payments.HandleWebhook(r.Context(), body, signature); err != nil {
		a.domainError(w, err)
		return
	}
	a.json(w, http.StatusOK, map[string]string{"status": "ok"})
}

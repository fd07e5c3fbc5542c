// Package handlers holds the HTTP layer. Handlers decode, delegate to a
// service, and encode; every domain error is mapped to a stable wire kind in
// one place.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"foundrgpt/internal/domain"
	"foundrgpt/internal/ideas"
	"foundrgpt/internal/infra/identity"
	"foundrgpt/internal/middleware"
	"foundrgpt/internal/payment"
)

// AccountService is the account surface the handlers use.
type AccountService interface {
	Sync(ctx context.Context, p domain.Profile) (*domain.UserAccount, error)
	GetByExternalID(ctx context.Context, externalID string) (*domain.UserAccount, error)
	Mutate(ctx context.Context, externalID string, fn func(*domain.UserAccount) error) (*domain.UserAccount, error)
}

// ChatService is the chat surface the handlers use.
type ChatService interface {
	Create(ctx context.Context, externalID, idea string, results *domain.ValidationResult) (*domain.ChatSession, error)
	Get(ctx context.Context, externalID, chatID string) (*domain.ChatSession, error)
	List(ctx context.Context, externalID string) ([]domain.ChatSummary, error)
	Delete(ctx context.Context, externalID, chatID string) error
}

// IdeaService runs idea validations.
type IdeaService interface {
	Validate(ctx context.Context, externalID, requestID, ideaText string) (*ideas.Result, error)
}

// PaymentService is the payment surface the handlers use.
type PaymentService interface {
	CreateOrder(ctx context.Context, externalID string, amount int64, currency string) (*payment.GatewayOrder, error)
	VerifyAndApply(ctx context.Context, externalID, orderID, paymentID, signature string) (*domain.UserAccount, *domain.Order, error)
	HandleWebhook(ctx context.Context, body []byte, signature string) error
}

// Pinger is the liveness probe into the database pool.
type Pinger interface {
	Ping(ctx context.Context) error
}

type App struct {
	Accounts  AccountService
	Chats     ChatService
	Ideas     IdeaService
	Payments  PaymentService
	Identity  identity.TokenVerifier
	DB        Pinger
	JWTSecret string
	Logger    zerolog.Logger
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, code int, kind, message string) {
	a.json(w, code, map[string]any{"error": kind, "message": message})
}

func (a *App) currentUserID(r *http.Request) string {
	return middleware.UserIDFromContext(r.Context())
}

// domainError translates a service error into the wire taxonomy. Quota
// errors carry their reset time so clients can show a countdown.
func (a *App) domainError(w http.ResponseWriter, err error) {
	var qErr *domain.QuotaError
	if errors.As(err, &qErr) {
		kind := "daily_limit_exceeded"
		if qErr.Scope == domain.QuotaScopeWeekly {
			kind = "weekly_limit_exceeded"
		}
		a.json(w, http.StatusTooManyRequests, map[string]any{
			"error":    kind,
			"message":  qErr.Error(),
			"reset_at": qErr.ResetAt.UTC().Format(time.RFC3339),
		})
		return
	}

	switch {
	case errors.Is(err, domain.ErrInvalidIdea):
		a.error(w, http.StatusBadRequest, "invalid_input", err.Error())
	case errors.Is(err, domain.ErrUnauthorized):
		a.error(w, http.StatusUnauthorized, "unauthorized", "not allowed")
	case errors.Is(err, domain.ErrNotFound):
		a.error(w, http.StatusNotFound, "not_found", "resource not found")
	case errors.Is(err, domain.ErrChatLimitExceeded):
		a.error(w, http.StatusConflict, "chat_limit_exceeded", "delete a chat before creating a new one")
	case errors.Is(err, domain.ErrSignatureMismatch):
		a.error(w, http.StatusBadRequest, "signature_mismatch", "payment signature verification failed")
	case errors.Is(err, domain.ErrVerificationFailed):
		a.error(w, http.StatusBadRequest, "verification_failed", "payment could not be verified")
	case errors.Is(err, domain.ErrDuplicateOperation):
		a.error(w, http.StatusConflict, "duplicate_operation", "operation already applied")
	case errors.Is(err, domain.ErrGatewayUnavailable):
		a.error(w, http.StatusBadGateway, "gateway_unavailable", "payment gateway unreachable, try again")
	case errors.Is(err, domain.ErrUpstreamBilling):
		a.error(w, http.StatusBadGateway, "upstream_billing", "ai provider rejected the request")
	case errors.Is(err, domain.ErrUpstreamTransient), errors.Is(err, domain.ErrProviderFailure):
		a.error(w, http.StatusBadGateway, "upstream_unavailable", "ai provider unavailable, try again")
	case errors.Is(err, domain.ErrConfig):
		a.error(w, http.StatusInternalServerError, "config_error", "server misconfiguration")
	case errors.Is(err, domain.ErrConflict):
		a.error(w, http.StatusServiceUnavailable, "conflict", "account busy, retry")
	default:
		a.Logger.Error().Err(err).Msg("unhandled error in handler")
		a.error(w, http.StatusInternalServerError, "internal", "internal error")
	}
}

// userResponse is the account snapshot returned to clients.
type userResponse struct {
	ExternalID           string    `json:"external_id"`
	Email                string    `json:"email"`
	Name                 string    `json:"name"`
	AvatarURL            string    `json:"avatar_url,omitempty"`
	Plan                 string    `json:"plan"`
	PromptsUsed          int       `json:"prompts_used"`
	PromptsRemaining     int       `json:"prompts_remaining"`
	DailyPromptsLimit    int       `json:"daily_prompts_limit"`
	PromptsResetAt       time.Time `json:"prompts_reset_at"`
	WeeklyPromptsUsed    int       `json:"weekly_prompts_used"`
	WeeklyPromptsLimit   int       `json:"weekly_prompts_limit"`
	WeeklyPromptsResetAt time.Time `json:"weekly_prompts_reset_at"`
	ChatCount            int       `json:"chat_count"`
	CreatedAt            time.Time `json:"created_at"`
}

func userView(u *domain.UserAccount) userResponse {
	return userResponse{
		ExternalID:           u.ExternalID,
		Email:                u.Email,
		Name:                 u.Name,
		AvatarURL:            u.AvatarURL,
		Plan:                 string(u.Plan),
		PromptsUsed:          u.PromptsUsed,
		PromptsRemaining:     u.PromptsRemaining,
		DailyPromptsLimit:    u.DailyPromptsLimit,
		PromptsResetAt:       u.PromptsResetAt,
		WeeklyPromptsUsed:    u.WeeklyPromptsUsed,
		WeeklyPromptsLimit:   u.WeeklyPromptsLimit,
		WeeklyPromptsResetAt: u.WeeklyPromptsResetAt,
		ChatCount:            len(u.ChatHistory),
		CreatedAt:            u.CreatedAt,
	}
}

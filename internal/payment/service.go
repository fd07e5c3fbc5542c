package payment

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"foundrgpt/internal/billing"
	"foundrgpt/internal/domain"
)

// errAlreadyApplied signals from inside the mutation closure that another
// delivery of the same payment already landed; it aborts the write.
var errAlreadyApplied = errors.New("payment already applied")

// Accounts is the slice of the account service the payment flow needs.
type Accounts interface {
	GetByExternalID(ctx context.Context, externalID string) (*domain.UserAccount, error)
	SetPlanTier(ctx context.Context, externalID string, tier domain.PlanTier) (*domain.UserAccount, error)
	Mutate(ctx context.Context, externalID string, fn func(*domain.UserAccount) error) (*domain.UserAccount, error)
}

// Service reconciles gateway payments against accounts.
type Service struct {
	gateway       Gateway
	accounts      Accounts
	keySecret     string
	webhookSecret string
	logger        zerolog.Logger
	now           func() time.Time
}

func NewService(gateway Gateway, accounts Accounts, keySecret, webhookSecret string, logger zerolog.Logger) *Service {
	return &Service{
		gateway:       gateway,
		accounts:      accounts,
		keySecret:     keySecret,
		webhookSecret: webhookSecret,
		logger:        logger,
		now:           time.Now,
	}
}

// CreateOrder opens a gateway order for the premium plan at the given
// localized price. The external id rides in the order notes so the webhook
// path can attribute the payment without a session.
func (s *Service) CreateOrder(ctx context.Context, externalID string, amount int64, currency string) (*GatewayOrder, error) {
	if _, err := s.accounts.GetByExternalID(ctx, externalID); err != nil {
		return nil, err
	}
	receipt := "rcpt_" + uuid.NewString()
	return s.gateway.CreateOrder(ctx, amount, currency, receipt, map[string]string{
		"external_id": externalID,
		"plan":        billing.PlanPremiumName,
	})
}

// VerifyCheckoutSignature checks the signature the gateway's checkout script
// hands to the browser: hex HMAC-SHA256 of "orderID|paymentID" under the key
// secret.
func (s *Service) VerifyCheckoutSignature(orderID, paymentID, signature string) error {
	mac := hmac.New(sha256.New, []byte(s.keySecret))
	mac.Write([]byte(orderID + "|" + paymentID))
	expected := hex.EncodeToString(mac.Sum(nil))
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return fmt.Errorf("checkout signature: %w", domain.ErrSignatureMismatch)
	}
	return nil
}

// VerifyAndApply is the checkout callback flow: signature check, gateway
// cross-check, idempotent plan promotion and order bookkeeping.
func (s *Service) VerifyAndApply(ctx context.Context, externalID, orderID, paymentID, signature string) (*domain.UserAccount, *domain.Order, error) {
	if err := s.VerifyCheckoutSignature(orderID, paymentID, signature); err != nil {
		return nil, nil, err
	}
	return s.apply(ctx, externalID, orderID, paymentID)
}

// apply performs the trust checks and state transition shared by the checkout
// and webhook paths. Re-delivery with a paymentID already in the order
// history returns the stored state unchanged.
func (s *Service) apply(ctx context.Context, externalID, orderID, paymentID string) (*domain.UserAccount, *domain.Order, error) {
	acct, err := s.accounts.GetByExternalID(ctx, externalID)
	if err != nil {
		return nil, nil, err
	}
	if existing, ok := acct.FindOrderByPaymentID(paymentID); ok {
		s.logger.Info().Str("payment_id", paymentID).Msg("duplicate payment delivery, returning stored order")
		return acct, &existing, nil
	}

	payment, err := s.gateway.FetchPayment(ctx, paymentID)
	if err != nil {
		return nil, nil, err
	}
	order, err := s.gateway.FetchOrder(ctx, orderID)
	if err != nil {
		return nil, nil, err
	}
	if payment.Status != paymentStatusCaptured {
		return nil, nil, fmt.Errorf("payment status %q: %w", payment.Status, domain.ErrVerificationFailed)
	}
	if order.Status != orderStatusPaid {
		return nil, nil, fmt.Errorf("order status %q: %w", order.Status, domain.ErrVerificationFailed)
	}
	if payment.OrderID != orderID {
		return nil, nil, fmt.Errorf("payment references order %q, expected %q: %w", payment.OrderID, orderID, domain.ErrVerificationFailed)
	}

	record := domain.Order{
		OrderID:          uuid.NewString(),
		PlanName:         billing.PlanPremiumName,
		Amount:           payment.Amount,
		Currency:         payment.Currency,
		Status:           domain.OrderStatusCompleted,
		PaymentMethod:    payment.Method,
		GatewayOrderID:   orderID,
		GatewayPaymentID: paymentID,
		Timestamp:        s.now().UTC(),
	}
	// Promotion and bookkeeping land in one conditional write. The duplicate
	// check runs again on the fresh read inside the closure, so a concurrent
	// delivery of the same payment can win the race only once: the loser sees
	// the stored order and backs out without touching the plan.
	updated, err := s.accounts.Mutate(ctx, externalID, func(u *domain.UserAccount) error {
		if _, ok := u.FindOrderByPaymentID(paymentID); ok {
			return errAlreadyApplied
		}
		domain.ApplyDueResets(u, s.now())
		domain.ApplyPlanChange(u, domain.PlanPremium)
		u.OrderHistory = append([]domain.Order{record}, u.OrderHistory...)
		if len(u.OrderHistory) > domain.MaxOrderHistory {
			u.OrderHistory = u.OrderHistory[:domain.MaxOrderHistory]
		}
		return nil
	})
	if errors.Is(err, errAlreadyApplied) {
		s.logger.Info().Str("payment_id", paymentID).Msg("payment applied by concurrent delivery, returning stored order")
		acct, err := s.accounts.GetByExternalID(ctx, externalID)
		if err != nil {
			return nil, nil, err
		}
		existing, _ := acct.FindOrderByPaymentID(paymentID)
		return acct, &existing, nil
	}
	if err != nil {
		// The upgrade is the primary effect; losing the bookkeeping entry is
		// recoverable by support and must not leave a captured payment with
		// no plan change. Retry the promotion alone before giving up.
		acct, planErr := s.accounts.SetPlanTier(ctx, externalID, domain.PlanPremium)
		if planErr != nil {
			return nil, nil, planErr
		}
		s.logger.Error().Err(err).Str("external_id", externalID).Str("payment_id", paymentID).Msg("order append failed after plan upgrade")
		return acct, &record, nil
	}
	return updated, &record, nil
}

// VerifyWebhookSignature checks the gateway's webhook HMAC: hex SHA-256 over
// the raw body under the dedicated webhook secret.
func (s *Service) VerifyWebhookSignature(body []byte, signature string) error {
	mac := hmac.New(sha256.New, []byte(s.webhookSecret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return fmt.Errorf("webhook signature: %w", domain.ErrSignatureMismatch)
	}
	return nil
}

type webhookEvent struct {
	Event   string `json:"event"`
	Payload struct {
		Payment struct {
			Entity GatewayPayment `json:"entity"`
		} `json:"payment"`
	} `json:"payload"`
}

// HandleWebhook processes a gateway webhook delivery. Only payment.captured
// events mutate state; everything else is acknowledged and dropped. The flow
// is independently idempotent, so webhook and checkout callback can both
// land for the same payment.
func (s *Service) HandleWebhook(ctx context.Context, body []byte, signature string) error {
	if err := s.VerifyWebhookSignature(body, signature); err != nil {
		return err
	}
	var event webhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return fmt.Errorf("decode webhook body: %w", domain.ErrVerificationFailed)
	}
	if event.Event != "payment.captured" {
		s.logger.Debug().Str("event", event.Event).Msg("ignoring webhook event")
		return nil
	}
	entity := event.Payload.Payment.Entity
	externalID := entity.Notes["external_id"]
	if externalID == "" {
		return fmt.Errorf("webhook payment %q has no external id note: %w", entity.ID, domain.ErrVerificationFailed)
	}
	_, _, err := s.apply(ctx, externalID, entity.OrderID, entity.ID)
	return err
}

package domain

import "time"

// PlanTier enumerates billing plans.
type PlanTier string

const (
	PlanFree    PlanTier = "free"
	PlanPremium PlanTier = "premium"
)

// OrderStatus enumerates payment order states.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusCompleted OrderStatus = "completed"
	OrderStatusCancelled OrderStatus = "cancelled"
	OrderStatusRefunded  OrderStatus = "refunded"
)

// Profile is the display profile received from the identity provider on each
// authenticated sync.
type Profile struct {
	ExternalID string
	Email      string
	Name       string
	AvatarURL  string
}

// UserAccount is the authoritative per-user record. One row exists per
// identity-provider subject; chat and order history ride on the same row so
// every mutation shares the per-user atomicity boundary.
type UserAccount struct {
	ID         string
	ExternalID string
	Email      string
	Name       string
	AvatarURL  string
	Plan       PlanTier

	PromptsUsed       int
	PromptsRemaining  int
	DailyPromptsLimit int
	PromptsResetAt    time.Time

	WeeklyPromptsUsed    int
	WeeklyPromptsLimit   int
	WeeklyPromptsResetAt time.Time

	ChatHistory  []ChatSession
	OrderHistory []Order

	// Version is the optimistic-concurrency token; every persisted mutation
	// increments it, and updates are conditioned on the value read.
	Version int64

	CreatedAt    time.Time
	UpdatedAt    time.Time
	LastActiveAt time.Time
}

// IsPremium reports whether the account is on the premium plan.
func (u UserAccount) IsPremium() bool {
	return u.Plan == PlanPremium
}

// FindOrderByPaymentID returns the stored order matching a gateway payment id.
func (u UserAccount) FindOrderByPaymentID(paymentID string) (Order, bool) {
	for _, o := range u.OrderHistory {
		if o.GatewayPaymentID == paymentID {
			return o, true
		}
	}
	return Order{}, false
}

// ChatSession is one saved idea-validation conversation. Sessions are stored
// newest-first.
type ChatSession struct {
	ID        string            `json:"id"`
	Title     string            `json:"title"`
	Idea      string            `json:"idea"`
	Results   *ValidationResult `json:"results,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}

// Summary strips the result payload for list views.
func (s ChatSession) Summary() ChatSummary {
	return ChatSummary{
		ID:         s.ID,
		Title:      s.Title,
		HasResults: s.Results != nil,
		CreatedAt:  s.CreatedAt,
	}
}

// ChatSummary is the header view of a session.
type ChatSummary struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	HasResults bool      `json:"has_results"`
	CreatedAt  time.Time `json:"created_at"`
}

// ValidationResult is the assembled output of one idea validation. The
// enhancement is always present; the six premium sections are nil for
// free-tier results and for premium sections that failed upstream.
type ValidationResult struct {
	EnhancedIdea     string            `json:"enhanced_idea"`
	MarketValidation []string          `json:"market_validation,omitempty"`
	MVPFeatures      []string          `json:"mvp_features,omitempty"`
	TechStack        map[string]string `json:"tech_stack,omitempty"`
	Monetization     []string          `json:"monetization,omitempty"`
	LandingPage      *LandingPageCopy  `json:"landing_page,omitempty"`
	UserPersonas     []UserPersona     `json:"user_personas,omitempty"`
	PartialFailure   bool              `json:"partial_failure,omitempty"`
}

// LandingPageCopy is the landing-page section of a premium result.
type LandingPageCopy struct {
	Headline   string   `json:"headline"`
	Subheading string   `json:"subheading"`
	CTA        string   `json:"cta"`
	Benefits   []string `json:"benefits"`
}

// UserPersona is one target-customer profile in a premium result.
type UserPersona struct {
	Name       string   `json:"name"`
	PainPoints []string `json:"pain_points"`
	Goals      []string `json:"goals"`
	Solution   string   `json:"solution"`
}

// Order records one payment against the account.
type Order struct {
	OrderID          string      `json:"order_id"`
	PlanName         string      `json:"plan_name"`
	Amount           int64       `json:"amount"`
	Currency         string      `json:"currency"`
	Status           OrderStatus `json:"status"`
	PaymentMethod    string      `json:"payment_method"`
	GatewayOrderID   string      `json:"gateway_order_id"`
	GatewayPaymentID string      `json:"gateway_payment_id"`
	Timestamp        time.Time   `json:"timestamp"`
}

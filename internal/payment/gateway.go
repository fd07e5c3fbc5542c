// Package payment covers the order-creation and reconciliation flows against
// the hosted payment gateway.
package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"

	"foundrgpt/internal/domain"
)

// Doer abstracts the HTTP transport for tests.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Gateway is the subset of the payment provider's API the service consumes.
type Gateway interface {
	CreateOrder(ctx context.Context, amount int64, currency, receipt string, notes map[string]string) (*GatewayOrder, error)
	FetchOrder(ctx context.Context, orderID string) (*GatewayOrder, error)
	FetchPayment(ctx context.Context, paymentID string) (*GatewayPayment, error)
}

// GatewayOrder mirrors the provider's order object.
type GatewayOrder struct {
	ID       string            `json:"id"`
	Amount   int64             `json:"amount"`
	Currency string            `json:"currency"`
	Receipt  string            `json:"receipt"`
	Status   string            `json:"status"`
	Notes    map[string]string `json:"notes"`
}

// GatewayPayment mirrors the provider's payment object.
type GatewayPayment struct {
	ID       string            `json:"id"`
	OrderID  string            `json:"order_id"`
	Amount   int64             `json:"amount"`
	Currency string            `json:"currency"`
	Status   string            `json:"status"`
	Method   string            `json:"method"`
	Notes    map[string]string `json:"notes"`
}

// Provider status values the reconciliation flow accepts.
const (
	paymentStatusCaptured = "captured"
	orderStatusPaid       = "paid"
)

// ClientOptions configures the gateway HTTP client.
type ClientOptions struct {
	KeyID      string
	KeySecret  string
	BaseURL    string
	HTTPClient Doer
	Logger     zerolog.Logger
	MaxRetries int                 // additional attempts after the first; zero means 2
	BaseDelay  time.Duration       // zero means 300ms
	SleepFn    func(time.Duration) // for tests; defaults to time.Sleep
}

const (
	defaultGatewayRetries = 2 // 3 attempts total
	defaultGatewayDelay   = 300 * time.Millisecond
)

// Client talks to the gateway's REST API with basic auth, bounded retries
// and a circuit breaker.
type Client struct {
	keyID      string
	keySecret  string
	baseURL    string
	doer       Doer
	logger     zerolog.Logger
	maxRetries int
	baseDelay  time.Duration
	sleepFn    func(time.Duration)
	breaker    *gobreaker.CircuitBreaker[*http.Response]
}

func NewClient(opts ClientOptions) *Client {
	doer := opts.HTTPClient
	if doer == nil {
		doer = &http.Client{Timeout: 15 * time.Second}
	}
	retries := opts.MaxRetries
	if retries <= 0 {
		retries = defaultGatewayRetries
	}
	baseDelay := opts.BaseDelay
	if baseDelay <= 0 {
		baseDelay = defaultGatewayDelay
	}
	sleep := opts.SleepFn
	if sleep == nil {
		sleep = time.Sleep
	}
	breaker := gobreaker.NewCircuitBreaker[*http.Response](gobreaker.Settings{
		Name:        "payment-gateway",
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 5
		},
	})
	return &Client{
		keyID:      opts.KeyID,
		keySecret:  opts.KeySecret,
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		doer:       doer,
		logger:     opts.Logger,
		maxRetries: retries,
		baseDelay:  baseDelay,
		sleepFn:    sleep,
		breaker:    breaker,
	}
}

// CreateOrder opens a gateway order for one-time payment of a plan.
func (c *Client) CreateOrder(ctx context.Context, amount int64, currency, receipt string, notes map[string]string) (*GatewayOrder, error) {
	payload, err := json.Marshal(map[string]any{
		"amount":   amount,
		"currency": currency,
		"receipt":  receipt,
		"notes":    notes,
	})
	if err != nil {
		return nil, fmt.Errorf("encode gateway order: %w", err)
	}
	var order GatewayOrder
	if err := c.call(ctx, http.MethodPost, "/orders", payload, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

func (c *Client) FetchOrder(ctx context.Context, orderID string) (*GatewayOrder, error) {
	var order GatewayOrder
	if err := c.call(ctx, http.MethodGet, "/orders/"+orderID, nil, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

func (c *Client) FetchPayment(ctx context.Context, paymentID string) (*GatewayPayment, error) {
	var payment GatewayPayment
	if err := c.call(ctx, http.MethodGet, "/payments/"+paymentID, nil, &payment); err != nil {
		return nil, err
	}
	return &payment, nil
}

// call performs one API call with up to maxRetries retries on 5xx/429 and
// transport failures. Exhaustion surfaces as ErrGatewayUnavailable.
func (c *Client) call(ctx context.Context, method, path string, payload []byte, out any) error {
	var lastErr error
	attempts := 1 + c.maxRetries
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			c.sleepFn(c.baseDelay * time.Duration(1<<(attempt-1)))
			c.logger.Warn().Err(lastErr).Str("path", path).Int("attempt", attempt+1).Msg("retrying gateway call")
		}
		err := c.attempt(ctx, method, path, payload, out)
		if err == nil {
			return nil
		}
		if !errors.Is(err, domain.ErrGatewayUnavailable) {
			return err
		}
		lastErr = err
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
	return lastErr
}

func (c *Client) attempt(ctx context.Context, method, path string, payload []byte, out any) error {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build gateway request: %w", err)
	}
	req.SetBasicAuth(c.keyID, c.keySecret)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.breaker.Execute(func() (*http.Response, error) {
		r, doErr := c.doer.Do(req)
		if doErr != nil {
			return nil, doErr
		}
		if r.StatusCode >= 500 || r.StatusCode == http.StatusTooManyRequests {
			return r, fmt.Errorf("gateway returned %d", r.StatusCode)
		}
		return r, nil
	})
	if err != nil {
		if resp != nil {
			resp.Body.Close()
		}
		return fmt.Errorf("gateway %s %s: %v: %w", method, path, err, domain.ErrGatewayUnavailable)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("gateway %s %s rejected (%d %s): %w", method, path, resp.StatusCode, strings.TrimSpace(string(raw)), domain.ErrVerificationFailed)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode gateway response: %w", err)
	}
	return nil
}

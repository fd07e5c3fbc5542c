// Package completion is the anti-corruption layer in front of the external
// chat-completion API. All calls go through one client that enforces circuit
// breaking, bounded retries with exponential backoff, per-attempt timeouts,
// and mapping of provider errors onto the domain taxonomy.
package completion

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"

	"foundrgpt/internal/domain"
)

// Doer abstracts the HTTP transport so the de-duplication cache and tests can
// wrap it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Request is one completion call.
type Request struct {
	System      string
	Prompt      string
	Temperature float64
	MaxTokens   int
}

// Options configures a Client.
type Options struct {
	APIKey         string
	Model          string
	BaseURL        string
	HTTPClient     Doer
	Logger         zerolog.Logger
	RequestTimeout time.Duration       // per attempt; zero means 30s
	MaxRetries     int                 // additional attempts after the first; zero means 3
	BaseDelay      time.Duration       // backoff base; zero means 500ms
	SleepFn        func(time.Duration) // for tests; defaults to time.Sleep
}

const (
	defaultModel          = "gpt-4o-mini"
	defaultBaseURL        = "https://api.openai.com/v1"
	defaultRequestTimeout = 30 * time.Second
	defaultMaxRetries     = 3
	defaultBaseDelay      = 500 * time.Millisecond
)

// Client calls the chat-completions endpoint.
type Client struct {
	apiKey     string
	model      string
	baseURL    string
	doer       Doer
	logger     zerolog.Logger
	timeout    time.Duration
	maxRetries int
	baseDelay  time.Duration
	sleepFn    func(time.Duration)
	breaker    *gobreaker.CircuitBreaker[*http.Response]
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature,omitempty"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

type apiErrorBody struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    string `json:"code"`
	} `json:"error"`
}

// NewClient creates a completion Client.
func NewClient(opts Options) *Client {
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = defaultModel
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	doer := opts.HTTPClient
	if doer == nil {
		doer = &http.Client{}
	}
	timeout := opts.RequestTimeout
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	retries := opts.MaxRetries
	if retries <= 0 {
		retries = defaultMaxRetries
	}
	baseDelay := opts.BaseDelay
	if baseDelay <= 0 {
		baseDelay = defaultBaseDelay
	}
	sleep := opts.SleepFn
	if sleep == nil {
		sleep = time.Sleep
	}
	breaker := gobreaker.NewCircuitBreaker[*http.Response](gobreaker.Settings{
		Name:        "completion-api",
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 5
		},
	})
	return &Client{
		apiKey:     strings.TrimSpace(opts.APIKey),
		model:      model,
		baseURL:    baseURL,
		doer:       doer,
		logger:     opts.Logger,
		timeout:    timeout,
		maxRetries: retries,
		baseDelay:  baseDelay,
		sleepFn:    sleep,
		breaker:    breaker,
	}
}

// Complete issues one completion request and returns the free-text response.
// Transient upstream failures (timeouts, 429, 5xx) are retried with
// exponential backoff; auth and billing failures fail immediately.
func (c *Client) Complete(ctx context.Context, req Request) (string, error) {
	if c.apiKey == "" {
		return "", fmt.Errorf("completion api key: %w", domain.ErrConfig)
	}
	payload, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: req.System},
			{Role: "user", Content: req.Prompt},
		},
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("encode completion request: %w", err)
	}

	var lastErr error
	attempts := 1 + c.maxRetries
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			c.sleepFn(lastDelay(lastErr, c.baseDelay, attempt))
		}
		text, err := c.attempt(ctx, payload)
		if err == nil {
			return text, nil
		}
		if !retryable(err) {
			return "", err
		}
		lastErr = err
		c.logger.Warn().Err(err).Int("attempt", attempt+1).Msg("completion attempt failed")
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
	}
	return "", fmt.Errorf("completion retries exhausted: %w", lastErr)
}

func (c *Client) attempt(ctx context.Context, payload []byte) (string, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(attemptCtx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("build completion request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.breaker.Execute(func() (*http.Response, error) {
		r, doErr := c.doer.Do(httpReq)
		if doErr != nil {
			return nil, doErr
		}
		if r.StatusCode >= 500 || r.StatusCode == http.StatusTooManyRequests {
			return r, fmt.Errorf("upstream returned %d", r.StatusCode)
		}
		return r, nil
	})
	if err != nil {
		if resp != nil {
			defer resp.Body.Close()
			return "", classifyStatus(resp)
		}
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return "", fmt.Errorf("completion circuit open: %w", domain.ErrUpstreamTransient)
		}
		// Transport failures and per-attempt timeouts are transient.
		return "", fmt.Errorf("completion request: %v: %w", err, &transientError{class: classTimeout})
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return "", classifyStatus(resp)
	}

	var out chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode completion response: %w", domain.ErrProviderFailure)
	}
	if len(out.Choices) == 0 {
		return "", fmt.Errorf("completion returned no choices: %w", domain.ErrProviderFailure)
	}
	text := strings.TrimSpace(out.Choices[0].Message.Content)
	if text == "" {
		return "", fmt.Errorf("completion returned empty content: %w", domain.ErrProviderFailure)
	}
	return text, nil
}

// failure classes drive the backoff multiplier: rate limiting backs off
// harder than plain server errors.
type failureClass int

const (
	classServer failureClass = iota
	classRateLimit
	classTimeout
)

type transientError struct {
	class  failureClass
	status int
}

func (e *transientError) Error() string {
	return fmt.Sprintf("transient upstream failure (status %d)", e.status)
}

func (e *transientError) Unwrap() error { return domain.ErrUpstreamTransient }

func classifyStatus(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var apiErr apiErrorBody
	_ = json.Unmarshal(body, &apiErr)

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("completion auth rejected: %w", domain.ErrConfig)
	case resp.StatusCode == http.StatusPaymentRequired || apiErr.Error.Code == "insufficient_quota":
		return fmt.Errorf("completion billing rejected: %w", domain.ErrUpstreamBilling)
	case resp.StatusCode == http.StatusTooManyRequests:
		return &transientError{class: classRateLimit, status: resp.StatusCode}
	case resp.StatusCode >= 500:
		return &transientError{class: classServer, status: resp.StatusCode}
	default:
		return fmt.Errorf("completion rejected (%d %s): %w", resp.StatusCode, apiErr.Error.Message, domain.ErrProviderFailure)
	}
}

func retryable(err error) bool {
	var te *transientError
	return errors.As(err, &te) || errors.Is(err, domain.ErrUpstreamTransient)
}

// lastDelay computes the backoff before retry number <attempt>. Rate-limit
// responses double each time, server errors and timeouts grow by 1.5x.
func lastDelay(lastErr error, base time.Duration, attempt int) time.Duration {
	factor := 1.5
	var te *transientError
	if errors.As(lastErr, &te) && te.class == classRateLimit {
		factor = 2.0
	}
	return time.Duration(float64(base) * math.Pow(factor, float64(attempt-1)))
}

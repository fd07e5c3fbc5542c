package domain

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrInvalidIdea        = errors.New("invalid idea")
	ErrQuotaExceeded      = errors.New("quota exceeded")
	ErrChatLimitExceeded  = errors.New("chat limit exceeded")
	ErrSignatureMismatch  = errors.New("signature mismatch")
	ErrVerificationFailed = errors.New("payment verification failed")
	ErrGatewayUnavailable = errors.New("payment gateway unavailable")
	ErrDuplicateOperation = errors.New("duplicate operation")
	ErrProviderFailure    = errors.New("provider failure")
	ErrUpstreamTransient  = errors.New("upstream transient failure")
	ErrUpstreamBilling    = errors.New("upstream billing failure")
	ErrConfig             = errors.New("missing configuration")
	ErrConflict           = errors.New("concurrent update conflict")
)

// QuotaScope distinguishes which allowance was exhausted.
type QuotaScope string

const (
	QuotaScopeDaily  QuotaScope = "daily"
	QuotaScopeWeekly QuotaScope = "weekly"
)

// QuotaError reports an exhausted allowance together with the instant at
// which it rolls over, so clients can compute "try again in N hours" without
// polling. It matches ErrQuotaExceeded under errors.Is.
type QuotaError struct {
	Scope   QuotaScope
	ResetAt time.Time
}

func (e *QuotaError) Error() string {
	return fmt.Sprintf("%s prompt limit exceeded, resets at %s", e.Scope, e.ResetAt.UTC().Format(time.RFC3339))
}

func (e *QuotaError) Unwrap() error { return ErrQuotaExceeded }

// Package account owns the authoritative per-user record: identity linkage,
// plan tier, quota counters, and the chat/order sub-lists. All mutation goes
// through a conditional-update-with-retry loop so concurrent requests for the
// same user are linearized at the store.
package account

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"foundrgpt/internal/domain"
)

// maxMutateAttempts bounds the re-read loop after version conflicts.
const maxMutateAttempts = 5

// Repository is the persistence contract the service needs.
type Repository interface {
	Upsert(ctx context.Context, p domain.Profile, limits domain.PlanLimits, dailyReset, weeklyReset time.Time) (*domain.UserAccount, error)
	GetByExternalID(ctx context.Context, externalID string) (*domain.UserAccount, error)
	// UpdateState persists the mutated account conditioned on the version it
	// was read at and returns domain.ErrConflict when the row moved.
	UpdateState(ctx context.Context, acct *domain.UserAccount) error
}

// Service wraps the quota policy with persistence.
type Service struct {
	repo   Repository
	logger zerolog.Logger
	now    func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates an account Service.
func NewService(repo Repository, logger zerolog.Logger, opts ...Option) *Service {
	s := &Service{repo: repo, logger: logger, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Sync creates the account on first sight of an identity subject, with free
// defaults and reset boundaries computed from the current time, or refreshes
// profile fields on subsequent calls. Quota state is never touched here.
func (s *Service) Sync(ctx context.Context, p domain.Profile) (*domain.UserAccount, error) {
	now := s.now()
	return s.repo.Upsert(ctx, p, domain.LimitsFor(domain.PlanFree),
		domain.NextDailyReset(now), domain.NextWeeklyReset(now))
}

// GetByExternalID returns the account, lazily applying any due quota resets
// before returning. The reconciled state is persisted best-effort; a
// concurrent writer applying the same reset makes the write unnecessary.
func (s *Service) GetByExternalID(ctx context.Context, externalID string) (*domain.UserAccount, error) {
	for attempt := 0; attempt < maxMutateAttempts; attempt++ {
		acct, err := s.repo.GetByExternalID(ctx, externalID)
		if err != nil {
			return nil, err
		}
		if !domain.ApplyDueResets(acct, s.now()) {
			return acct, nil
		}
		err = s.repo.UpdateState(ctx, acct)
		if err == nil {
			return acct, nil
		}
		if !errors.Is(err, domain.ErrConflict) {
			return nil, err
		}
		s.logger.Debug().Str("external_id", externalID).Int("attempt", attempt+1).Msg("reset persist conflict, re-reading")
	}
	return nil, domain.ErrConflict
}

// Mutate runs fn against a fresh read of the account and persists the result
// with a version-conditioned update, retrying the whole read-modify-write on
// conflict. An error from fn aborts without persisting.
func (s *Service) Mutate(ctx context.Context, externalID string, fn func(*domain.UserAccount) error) (*domain.UserAccount, error) {
	for attempt := 0; attempt < maxMutateAttempts; attempt++ {
		acct, err := s.repo.GetByExternalID(ctx, externalID)
		if err != nil {
			return nil, err
		}
		if err := fn(acct); err != nil {
			return nil, err
		}
		err = s.repo.UpdateState(ctx, acct)
		if err == nil {
			return acct, nil
		}
		if !errors.Is(err, domain.ErrConflict) {
			return nil, err
		}
		s.logger.Debug().Str("external_id", externalID).Int("attempt", attempt+1).Msg("account version conflict, retrying")
	}
	return nil, domain.ErrConflict
}

// DecrementQuota atomically spends one validation prompt: due resets apply
// first, then the weekly ceiling and daily remainder are checked, then the
// counters move. Callers invoke this before the expensive completion call.
func (s *Service) DecrementQuota(ctx context.Context, externalID string) (*domain.UserAccount, error) {
	return s.Mutate(ctx, externalID, func(u *domain.UserAccount) error {
		return domain.ConsumePrompt(u, s.now())
	})
}

// SetPlanTier switches the plan. Any tier change grants a clean slate for the
// used counters; remaining prompts are banked up to the new ceiling.
func (s *Service) SetPlanTier(ctx context.Context, externalID string, tier domain.PlanTier) (*domain.UserAccount, error) {
	return s.Mutate(ctx, externalID, func(u *domain.UserAccount) error {
		domain.ApplyDueResets(u, s.now())
		domain.ApplyPlanChange(u, tier)
		return nil
	})
}

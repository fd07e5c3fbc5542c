package account

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"foundrgpt/internal/domain"
)

// fakeRepo keeps one account in memory and enforces the same version
// discipline as the Postgres repository.
type fakeRepo struct {
	acct *domain.UserAccount
	// conflicts forces the next n UpdateState calls to fail with ErrConflict
	// after still applying a competing decrement, to exercise the retry loop.
	conflicts int
	updates   int
}

func (f *fakeRepo) Upsert(_ context.Context, p domain.Profile, limits domain.PlanLimits, dailyReset, weeklyReset time.Time) (*domain.UserAccount, error) {
	if f.acct == nil {
		f.acct = &domain.UserAccount{
			ID:                   "row-1",
			ExternalID:           p.ExternalID,
			Email:                p.Email,
			Name:                 p.Name,
			AvatarURL:            p.AvatarURL,
			Plan:                 domain.PlanFree,
			PromptsRemaining:     limits.DailyPrompts,
			DailyPromptsLimit:    limits.DailyPrompts,
			PromptsResetAt:       dailyReset,
			WeeklyPromptsLimit:   limits.WeeklyPrompts,
			WeeklyPromptsResetAt: weeklyReset,
		}
	} else {
		f.acct.Email = p.Email
		f.acct.Name = p.Name
		f.acct.AvatarURL = p.AvatarURL
	}
	cp := *f.acct
	return &cp, nil
}

func (f *fakeRepo) GetByExternalID(_ context.Context, externalID string) (*domain.UserAccount, error) {
	if f.acct == nil || f.acct.ExternalID != externalID {
		return nil, domain.ErrNotFound
	}
	cp := *f.acct
	cp.ChatHistory = append([]domain.ChatSession(nil), f.acct.ChatHistory...)
	cp.OrderHistory = append([]domain.Order(nil), f.acct.OrderHistory...)
	return &cp, nil
}

func (f *fakeRepo) UpdateState(_ context.Context, acct *domain.UserAccount) error {
	f.updates++
	if f.acct == nil || acct.Version != f.acct.Version {
		return domain.ErrConflict
	}
	if f.conflicts > 0 {
		f.conflicts--
		f.acct.Version++
		return domain.ErrConflict
	}
	cp := *acct
	cp.Version++
	f.acct = &cp
	acct.Version++
	return nil
}

func newTestService(repo Repository, now time.Time) *Service {
	return NewService(repo, zerolog.Nop(), WithClock(func() time.Time { return now }))
}

func testProfile() domain.Profile {
	return domain.Profile{ExternalID: "user_abc", Email: "a@b.c", Name: "Ada"}
}

func TestSyncCreatesFreeAccountWithBoundaries(t *testing.T) {
	now := time.Date(2024, 3, 14, 10, 0, 0, 0, time.UTC)
	repo := &fakeRepo{}
	svc := newTestService(repo, now)

	acct, err := svc.Sync(context.Background(), testProfile())
	if err != nil {
		t.Fatalf("sync: %v", err)
	}
	if acct.Plan != domain.PlanFree || acct.DailyPromptsLimit != 1 || acct.WeeklyPromptsLimit != 4 {
		t.Fatalf("unexpected defaults: %+v", acct)
	}
	if !acct.PromptsResetAt.Equal(time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("daily boundary = %v", acct.PromptsResetAt)
	}
	if acct.WeeklyPromptsResetAt.Weekday() != time.Monday {
		t.Fatalf("weekly boundary = %v", acct.WeeklyPromptsResetAt)
	}

	// Second sync updates profile only.
	repo.acct.PromptsRemaining = 0
	p := testProfile()
	p.Name = "Ada L."
	again, err := svc.Sync(context.Background(), p)
	if err != nil {
		t.Fatalf("second sync: %v", err)
	}
	if again.Name != "Ada L." {
		t.Fatalf("profile not refreshed: %+v", again)
	}
	if again.PromptsRemaining != 0 {
		t.Fatalf("second sync must not touch quota, remaining = %d", again.PromptsRemaining)
	}
}

func TestGetAppliesDueResetsAndPersists(t *testing.T) {
	start := time.Date(2024, 3, 13, 10, 0, 0, 0, time.UTC)
	repo := &fakeRepo{}
	svc := newTestService(repo, start)
	if _, err := svc.Sync(context.Background(), testProfile()); err != nil {
		t.Fatalf("sync: %v", err)
	}
	repo.acct.PromptsUsed = 1
	repo.acct.PromptsRemaining = 0

	later := newTestService(repo, start.Add(24*time.Hour))
	acct, err := later.GetByExternalID(context.Background(), "user_abc")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if acct.PromptsUsed != 0 || acct.PromptsRemaining != 1 {
		t.Fatalf("reset not applied: %+v", acct)
	}
	if repo.acct.PromptsRemaining != 1 {
		t.Fatal("reconciled state was not persisted")
	}
}

func TestGetUnknownUser(t *testing.T) {
	svc := newTestService(&fakeRepo{}, time.Now())
	if _, err := svc.GetByExternalID(context.Background(), "nobody"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDecrementQuotaExhaustion(t *testing.T) {
	now := time.Date(2024, 3, 14, 10, 0, 0, 0, time.UTC)
	repo := &fakeRepo{}
	svc := newTestService(repo, now)
	if _, err := svc.Sync(context.Background(), testProfile()); err != nil {
		t.Fatalf("sync: %v", err)
	}

	acct, err := svc.DecrementQuota(context.Background(), "user_abc")
	if err != nil {
		t.Fatalf("first decrement: %v", err)
	}
	if acct.PromptsRemaining != 0 || acct.PromptsUsed != 1 || acct.WeeklyPromptsUsed != 1 {
		t.Fatalf("unexpected counters: %+v", acct)
	}

	_, err = svc.DecrementQuota(context.Background(), "user_abc")
	var qe *domain.QuotaError
	if !errors.As(err, &qe) || qe.Scope != domain.QuotaScopeDaily {
		t.Fatalf("expected daily quota error, got %v", err)
	}
	if repo.acct.PromptsRemaining != 0 {
		t.Fatalf("remaining went to %d, want 0", repo.acct.PromptsRemaining)
	}
}

func TestDecrementQuotaRetriesOnConflict(t *testing.T) {
	now := time.Date(2024, 3, 14, 10, 0, 0, 0, time.UTC)
	repo := &fakeRepo{}
	svc := newTestService(repo, now)
	if _, err := svc.Sync(context.Background(), testProfile()); err != nil {
		t.Fatalf("sync: %v", err)
	}
	repo.conflicts = 2

	if _, err := svc.DecrementQuota(context.Background(), "user_abc"); err != nil {
		t.Fatalf("decrement should survive conflicts: %v", err)
	}
	if repo.updates != 3 {
		t.Fatalf("expected 3 update attempts, got %d", repo.updates)
	}
	if repo.acct.PromptsUsed != 1 {
		t.Fatalf("decrement applied %d times", repo.acct.PromptsUsed)
	}
}

func TestSetPlanTierCleanSlate(t *testing.T) {
	now := time.Date(2024, 3, 14, 10, 0, 0, 0, time.UTC)
	repo := &fakeRepo{}
	svc := newTestService(repo, now)
	if _, err := svc.Sync(context.Background(), testProfile()); err != nil {
		t.Fatalf("sync: %v", err)
	}
	if _, err := svc.DecrementQuota(context.Background(), "user_abc"); err != nil {
		t.Fatalf("decrement: %v", err)
	}

	acct, err := svc.SetPlanTier(context.Background(), "user_abc", domain.PlanPremium)
	if err != nil {
		t.Fatalf("set plan: %v", err)
	}
	if acct.Plan != domain.PlanPremium {
		t.Fatalf("plan = %s", acct.Plan)
	}
	if acct.PromptsUsed != 0 || acct.WeeklyPromptsUsed != 0 {
		t.Fatalf("tier change must reset used counters: %+v", acct)
	}
	if acct.PromptsRemaining != 3 || acct.DailyPromptsLimit != 3 || acct.WeeklyPromptsLimit != 10 {
		t.Fatalf("premium limits not applied: %+v", acct)
	}
}

func TestGetGivesUpAfterRepeatedResetConflicts(t *testing.T) {
	start := time.Date(2024, 3, 13, 10, 0, 0, 0, time.UTC)
	repo := &fakeRepo{}
	svc := newTestService(repo, start)
	if _, err := svc.Sync(context.Background(), testProfile()); err != nil {
		t.Fatalf("sync: %v", err)
	}
	repo.acct.PromptsUsed = 1
	repo.acct.PromptsRemaining = 0
	repo.conflicts = 100

	later := newTestService(repo, start.Add(24*time.Hour))
	_, err := later.GetByExternalID(context.Background(), "user_abc")
	if !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
	if repo.updates != maxMutateAttempts {
		t.Fatalf("expected %d bounded attempts, got %d", maxMutateAttempts, repo.updates)
	}
}

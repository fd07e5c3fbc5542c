package ideas

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"foundrgpt/internal/domain"
	"foundrgpt/internal/providers/completion"
)

type fakeAccounts struct {
	acct       *domain.UserAccount
	now        time.Time
	decrements int
}

func (f *fakeAccounts) GetByExternalID(ctx context.Context, externalID string) (*domain.UserAccount, error) {
	if f.acct == nil || f.acct.ExternalID != externalID {
		return nil, domain.ErrNotFound
	}
	copied := *f.acct
	return &copied, nil
}

func (f *fakeAccounts) DecrementQuota(ctx context.Context, externalID string) (*domain.UserAccount, error) {
	f.decrements++
	if f.acct == nil || f.acct.ExternalID != externalID {
		return nil, domain.ErrNotFound
	}
	if err := domain.ConsumePrompt(f.acct, f.now); err != nil {
		return nil, err
	}
	copied := *f.acct
	return &copied, nil
}

type fakeChats struct {
	created []string
	fail    bool
}

func (f *fakeChats) Create(ctx context.Context, externalID, idea string, results *domain.ValidationResult) (*domain.ChatSession, error) {
	if f.fail {
		return nil, errors.New("store down")
	}
	f.created = append(f.created, idea)
	return &domain.ChatSession{ID: "chat-1", Idea: idea, Results: results}, nil
}

// sectionCompleter answers each prompt by the topic keyword it contains and
// fails the topics listed in fail.
type sectionCompleter struct {
	fail  map[string]bool
	calls int
}

var sectionTopics = map[string]string{
	"market validation":      "- Large market\n- Clear demand",
	"minimum viable product": "- Idea input form\n- AI report",
	"technology stack":       "Frontend: React\nBackend: Go\nDatabase: Postgres\nHosting: Railway",
	"monetization":           "- One-time premium unlock",
	"landing page":           "Headline: Validate faster\nSubheading: AI reports\nCTA: Try it\nBenefits:\n- Speed",
	"personas":               "1. Name: Sam\nPain Points: time\nGoals: clarity\nSolution: reports",
}

func (c *sectionCompleter) Complete(ctx context.Context, req completion.Request) (string, error) {
	c.calls++
	if strings.HasPrefix(req.Prompt, "Startup idea:") {
		return "An enhanced pitch.", nil
	}
	for topic, reply := range sectionTopics {
		if strings.Contains(req.Prompt, topic) {
			if c.fail[topic] {
				return "", domain.ErrUpstreamTransient
			}
			return reply, nil
		}
	}
	return "", errors.New("unmatched prompt: " + req.Prompt)
}

func freeAccount(now time.Time) *domain.UserAccount {
	limits := domain.LimitsFor(domain.PlanFree)
	return &domain.UserAccount{
		ID:                   "acct-1",
		ExternalID:           "user-1",
		Plan:                 domain.PlanFree,
		PromptsRemaining:     limits.DailyPrompts,
		DailyPromptsLimit:    limits.DailyPrompts,
		PromptsResetAt:       domain.NextDailyReset(now),
		WeeklyPromptsLimit:   limits.WeeklyPrompts,
		WeeklyPromptsResetAt: domain.NextWeeklyReset(now),
	}
}

func newTestService(accounts *fakeAccounts, chats *fakeChats, completer Completer) *Service {
	return NewService(accounts, chats, completer, nil, zerolog.Nop())
}

const validIdea = "A marketplace that matches local farms with restaurants."

func TestValidateRejectsShortInputBeforeQuota(t *testing.T) {
	accounts := &fakeAccounts{acct: freeAccount(time.Now().UTC()), now: time.Now().UTC()}
	svc := newTestService(accounts, &fakeChats{}, &sectionCompleter{})

	for _, idea := range []string{"", "short", "a test x", strings.Repeat("x", 2001)} {
		if _, err := svc.Validate(context.Background(), "user-1", "req", idea); !errors.Is(err, domain.ErrInvalidIdea) {
			t.Errorf("idea %q: expected invalid-idea error, got %v", idea, err)
		}
	}
	if accounts.decrements != 0 {
		t.Fatalf("input guards must run before quota, decrements = %d", accounts.decrements)
	}
}

func TestValidateLengthBoundsCountCharactersNotBytes(t *testing.T) {
	// Nine Cyrillic characters take 18 bytes; byte counting would wrongly
	// accept them against the 10-character floor.
	short := strings.Repeat("и", 9)
	accounts := &fakeAccounts{acct: freeAccount(time.Now().UTC()), now: time.Now().UTC()}
	svc := newTestService(accounts, &fakeChats{}, &sectionCompleter{})
	if _, err := svc.Validate(context.Background(), "user-1", "req", short); !errors.Is(err, domain.ErrInvalidIdea) {
		t.Fatalf("9-character idea: expected invalid-idea error, got %v", err)
	}

	// Two thousand Cyrillic characters take 4000 bytes; byte counting would
	// wrongly reject them against the 2000-character ceiling.
	long := strings.Repeat("и", 2000)
	now := time.Date(2026, time.March, 4, 12, 0, 0, 0, time.UTC)
	accounts = &fakeAccounts{acct: freeAccount(now), now: now}
	svc = newTestService(accounts, &fakeChats{}, &sectionCompleter{})
	if _, err := svc.Validate(context.Background(), "user-1", "req", long); err != nil {
		t.Fatalf("2000-character idea: %v", err)
	}
}

func TestValidateFreeTierTwoCalls(t *testing.T) {
	now := time.Date(2026, time.March, 4, 12, 0, 0, 0, time.UTC)
	accounts := &fakeAccounts{acct: freeAccount(now), now: now}
	chats := &fakeChats{}
	svc := newTestService(accounts, chats, &sectionCompleter{})

	out, err := svc.Validate(context.Background(), "user-1", "req-1", validIdea)
	if err != nil {
		t.Fatalf("first call: %v", err)
	}
	v := out.Validation
	if v.EnhancedIdea == "" {
		t.Fatal("enhanced idea missing")
	}
	if v.MarketValidation != nil || v.TechStack != nil || v.LandingPage != nil || v.UserPersonas != nil {
		t.Fatalf("free tier must not get premium sections: %#v", v)
	}
	if out.ChatID == "" || len(chats.created) != 1 {
		t.Fatalf("expected one chat session, got %q / %d", out.ChatID, len(chats.created))
	}

	_, err = svc.Validate(context.Background(), "user-1", "req-2", validIdea)
	var qErr *domain.QuotaError
	if !errors.As(err, &qErr) || qErr.Scope != domain.QuotaScopeDaily {
		t.Fatalf("second call: expected daily quota error, got %v", err)
	}
	if accounts.acct.PromptsRemaining != 0 {
		t.Fatalf("remaining = %d after exhaustion, want 0", accounts.acct.PromptsRemaining)
	}
}

func TestValidatePremiumAllSections(t *testing.T) {
	now := time.Date(2026, time.March, 4, 12, 0, 0, 0, time.UTC)
	acct := freeAccount(now)
	domain.ApplyPlanChange(acct, domain.PlanPremium)
	completer := &sectionCompleter{}
	accounts := &fakeAccounts{acct: acct, now: now}
	svc := newTestService(accounts, &fakeChats{}, completer)

	out, err := svc.Validate(context.Background(), "user-1", "req", validIdea)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	v := out.Validation
	if v.PartialFailure {
		t.Fatal("unexpected partial failure")
	}
	if len(v.MarketValidation) == 0 || len(v.MVPFeatures) == 0 || len(v.Monetization) == 0 {
		t.Fatalf("list sections missing: %#v", v)
	}
	if v.TechStack["backend"] != "Go" {
		t.Fatalf("tech stack = %#v", v.TechStack)
	}
	if v.LandingPage == nil || v.LandingPage.Headline != "Validate faster" {
		t.Fatalf("landing page = %#v", v.LandingPage)
	}
	if len(v.UserPersonas) != 1 || v.UserPersonas[0].Name != "Sam" {
		t.Fatalf("personas = %#v", v.UserPersonas)
	}
	if completer.calls != 7 { // enhancement + six sections
		t.Fatalf("completer calls = %d", completer.calls)
	}
}

func TestValidatePremiumPartialFailure(t *testing.T) {
	now := time.Date(2026, time.March, 4, 12, 0, 0, 0, time.UTC)
	acct := freeAccount(now)
	domain.ApplyPlanChange(acct, domain.PlanPremium)
	completer := &sectionCompleter{fail: map[string]bool{
		"technology stack": true,
		"personas":         true,
	}}
	accounts := &fakeAccounts{acct: acct, now: now}
	svc := newTestService(accounts, &fakeChats{}, completer)

	out, err := svc.Validate(context.Background(), "user-1", "req", validIdea)
	if err != nil {
		t.Fatalf("partial failure must not fail the request: %v", err)
	}
	v := out.Validation
	if !v.PartialFailure {
		t.Fatal("partial failure flag not set")
	}
	if v.TechStack != nil || v.UserPersonas != nil {
		t.Fatalf("failed sections must be absent: %#v", v)
	}
	if len(v.MarketValidation) == 0 || len(v.MVPFeatures) == 0 || len(v.Monetization) == 0 || v.LandingPage == nil {
		t.Fatalf("surviving sections missing: %#v", v)
	}
}

func TestValidateEnhancementFailureFailsRequest(t *testing.T) {
	now := time.Now().UTC()
	accounts := &fakeAccounts{acct: freeAccount(now), now: now}
	svc := newTestService(accounts, &fakeChats{}, failingCompleter{})

	if _, err := svc.Validate(context.Background(), "user-1", "req", validIdea); !errors.Is(err, domain.ErrUpstreamTransient) {
		t.Fatalf("expected upstream error, got %v", err)
	}
}

type failingCompleter struct{}

func (failingCompleter) Complete(ctx context.Context, req completion.Request) (string, error) {
	return "", domain.ErrUpstreamTransient
}

func TestValidateChatStoreFailureKeepsResult(t *testing.T) {
	now := time.Now().UTC()
	accounts := &fakeAccounts{acct: freeAccount(now), now: now}
	svc := newTestService(accounts, &fakeChats{fail: true}, &sectionCompleter{})

	out, err := svc.Validate(context.Background(), "user-1", "req", validIdea)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if out.Validation == nil || out.ChatID != "" {
		t.Fatalf("expected result without session, got %#v", out)
	}
}

func TestValidateAtChatCapConsumesNoQuota(t *testing.T) {
	now := time.Now().UTC()
	acct := freeAccount(now)
	for i := 0; i < domain.MaxChatSessions; i++ {
		acct.ChatHistory = append(acct.ChatHistory, domain.ChatSession{ID: "c"})
	}
	accounts := &fakeAccounts{acct: acct, now: now}
	svc := newTestService(accounts, &fakeChats{}, &sectionCompleter{})

	if _, err := svc.Validate(context.Background(), "user-1", "req", validIdea); !errors.Is(err, domain.ErrChatLimitExceeded) {
		t.Fatalf("expected chat limit error, got %v", err)
	}
	if accounts.decrements != 0 {
		t.Fatalf("quota consumed at chat cap, decrements = %d", accounts.decrements)
	}
}

// Package ideas orchestrates one idea validation: input guards, quota
// consumption, the guaranteed enhancement call, and the premium section
// fan-out with its free-text parsers.
package ideas

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"foundrgpt/internal/domain"
	"foundrgpt/internal/providers/completion"
)

const (
	minIdeaLength = 10
	maxIdeaLength = 2000

	enhanceTemperature = 0.7
	sectionTemperature = 0.7
	enhanceMaxTokens   = 500
	sectionMaxTokens   = 700
)

var testInputPattern = regexp.MustCompile(`(?i)\btest\b`)

// Accounts is the slice of the account service the orchestrator needs.
type Accounts interface {
	GetByExternalID(ctx context.Context, externalID string) (*domain.UserAccount, error)
	DecrementQuota(ctx context.Context, externalID string) (*domain.UserAccount, error)
}

// Chats persists the validated idea as a session.
type Chats interface {
	Create(ctx context.Context, externalID, idea string, results *domain.ValidationResult) (*domain.ChatSession, error)
}

// Completer issues one completion request.
type Completer interface {
	Complete(ctx context.Context, req completion.Request) (string, error)
}

// UsageRecorder logs one validation attempt for analytics. Best effort.
type UsageRecorder interface {
	Record(ctx context.Context, accountID, requestID, eventType string, success bool, latency time.Duration, props map[string]any)
}

// Result pairs the assembled validation output with the session that holds it.
type Result struct {
	Validation *domain.ValidationResult `json:"validation"`
	ChatID     string                   `json:"chat_id,omitempty"`
	Account    *domain.UserAccount      `json:"-"`
}

// Service runs idea validations.
type Service struct {
	accounts  Accounts
	chats     Chats
	completer Completer
	usage     UsageRecorder
	logger    zerolog.Logger
	now       func() time.Time
}

func NewService(accounts Accounts, chats Chats, completer Completer, usage UsageRecorder, logger zerolog.Logger) *Service {
	return &Service{
		accounts:  accounts,
		chats:     chats,
		completer: completer,
		usage:     usage,
		logger:    logger,
		now:       time.Now,
	}
}

// Validate runs the full pipeline for one idea. Input guards run before any
// quota is consumed; the enhancement call must succeed; premium sections
// settle independently and a failed section is omitted rather than failing
// the request.
func (s *Service) Validate(ctx context.Context, externalID, requestID, ideaText string) (*Result, error) {
	idea, err := guardIdea(ideaText)
	if err != nil {
		return nil, err
	}

	acct, err := s.accounts.GetByExternalID(ctx, externalID)
	if err != nil {
		return nil, err
	}
	// Check the session cap up front so quota is not burned on a request
	// whose session could never be stored.
	if len(acct.ChatHistory) >= domain.MaxChatSessions {
		return nil, domain.ErrChatLimitExceeded
	}

	acct, err = s.accounts.DecrementQuota(ctx, externalID)
	if err != nil {
		return nil, err
	}

	started := s.now()
	result, err := s.run(ctx, acct, idea)
	s.record(ctx, acct.ID, requestID, err == nil, s.now().Sub(started), result)
	if err != nil {
		return nil, err
	}

	out := &Result{Validation: result, Account: acct}
	session, err := s.chats.Create(ctx, externalID, idea, result)
	if err != nil {
		// The validation itself succeeded; losing the session is
		// recoverable and must not void the paid-for result.
		s.logger.Error().Err(err).Str("external_id", externalID).Msg("failed to store chat session for validation")
		return out, nil
	}
	out.ChatID = session.ID
	return out, nil
}

func guardIdea(ideaText string) (string, error) {
	idea := strings.TrimSpace(ideaText)
	// Bounds are in characters, not bytes, so multibyte input counts the same
	// as ASCII.
	length := utf8.RuneCountInString(idea)
	switch {
	case idea == "":
		return "", fmt.Errorf("idea is empty: %w", domain.ErrInvalidIdea)
	case length < minIdeaLength:
		return "", fmt.Errorf("idea shorter than %d characters: %w", minIdeaLength, domain.ErrInvalidIdea)
	case length > maxIdeaLength:
		return "", fmt.Errorf("idea longer than %d characters: %w", maxIdeaLength, domain.ErrInvalidIdea)
	case length < 20 && testInputPattern.MatchString(idea):
		return "", fmt.Errorf("idea looks like a test input: %w", domain.ErrInvalidIdea)
	}
	return idea, nil
}

func (s *Service) run(ctx context.Context, acct *domain.UserAccount, idea string) (*domain.ValidationResult, error) {
	enhanced, err := s.completer.Complete(ctx, completion.Request{
		System:      enhanceSystemPrompt,
		Prompt:      enhancePrompt(idea),
		Temperature: enhanceTemperature,
		MaxTokens:   enhanceMaxTokens,
	})
	if err != nil {
		return nil, err
	}

	result := &domain.ValidationResult{EnhancedIdea: enhanced}
	if !acct.IsPremium() {
		return result, nil
	}

	s.runPremiumSections(ctx, result, idea, enhanced)
	return result, nil
}

// runPremiumSections fans out the six section prompts concurrently and
// settles them all: each closure records its own outcome and returns nil so
// one failure never cancels the siblings.
func (s *Service) runPremiumSections(ctx context.Context, result *domain.ValidationResult, idea, enhanced string) {
	type section struct {
		name   string
		prompt string
		apply  func(text string)
	}
	sections := []section{
		{"market_validation", marketPrompt(enhanced), func(t string) { result.MarketValidation = parseBulletList(t) }},
		{"mvp_features", mvpPrompt(enhanced), func(t string) { result.MVPFeatures = parseBulletList(t) }},
		{"tech_stack", techStackPrompt(enhanced), func(t string) { result.TechStack = parseTechStack(t) }},
		{"monetization", monetizationPrompt(enhanced), func(t string) { result.Monetization = parseBulletList(t) }},
		{"landing_page", landingPagePrompt(idea, enhanced), func(t string) { result.LandingPage = parseLandingPage(t) }},
		{"user_personas", personasPrompt(enhanced), func(t string) { result.UserPersonas = parsePersonas(t) }},
	}

	texts := make([]string, len(sections))
	failed := make([]bool, len(sections))

	g, gctx := errgroup.WithContext(ctx)
	for i, sec := range sections {
		i, sec := i, sec
		g.Go(func() error {
			text, err := s.completer.Complete(gctx, completion.Request{
				System:      sectionSystemPrompt,
				Prompt:      sec.prompt,
				Temperature: sectionTemperature,
				MaxTokens:   sectionMaxTokens,
			})
			if err != nil {
				s.logger.Warn().Err(err).Str("section", sec.name).Msg("premium section failed")
				failed[i] = true
				return nil
			}
			texts[i] = text
			return nil
		})
	}
	_ = g.Wait()

	for i, sec := range sections {
		if failed[i] {
			result.PartialFailure = true
			continue
		}
		sec.apply(texts[i])
	}
}

func (s *Service) record(ctx context.Context, accountID, requestID string, success bool, latency time.Duration, result *domain.ValidationResult) {
	if s.usage == nil {
		return
	}
	props := map[string]any{}
	if result != nil {
		props["partial_failure"] = result.PartialFailure
	}
	s.usage.Record(ctx, accountID, requestID, "idea_validation", success, latency, props)
}

// Package chat manages the bounded chat-history list inside a user's account
// record. Sessions are stored newest-first and capped; hitting the cap is a
// hard error rather than silent eviction.
package chat

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"foundrgpt/internal/domain"
)

const titleMaxRunes = 50

// Accounts is the slice of the account store the chat manager needs: a fresh
// read and the per-user atomic mutation primitive.
type Accounts interface {
	GetByExternalID(ctx context.Context, externalID string) (*domain.UserAccount, error)
	Mutate(ctx context.Context, externalID string, fn func(*domain.UserAccount) error) (*domain.UserAccount, error)
}

// Service implements chat session CRUD.
type Service struct {
	accounts Accounts
	now      func() time.Time
}

// NewService creates a chat Service.
func NewService(accounts Accounts) *Service {
	return &Service{accounts: accounts, now: time.Now}
}

// Create prepends a new session. It fails with ErrChatLimitExceeded when the
// account already holds the maximum number of sessions; nothing is persisted
// in that case.
func (s *Service) Create(ctx context.Context, externalID, idea string, results *domain.ValidationResult) (*domain.ChatSession, error) {
	session := domain.ChatSession{
		ID:        uuid.NewString(),
		Title:     TitleFor(idea),
		Idea:      idea,
		Results:   results,
		CreatedAt: s.now().UTC(),
	}
	_, err := s.accounts.Mutate(ctx, externalID, func(u *domain.UserAccount) error {
		if len(u.ChatHistory) >= domain.MaxChatSessions {
			return domain.ErrChatLimitExceeded
		}
		u.ChatHistory = append([]domain.ChatSession{session}, u.ChatHistory...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &session, nil
}

// AttachResults replaces the results of an existing session.
func (s *Service) AttachResults(ctx context.Context, externalID, chatID string, results *domain.ValidationResult) (*domain.ChatSession, error) {
	var updated domain.ChatSession
	_, err := s.accounts.Mutate(ctx, externalID, func(u *domain.UserAccount) error {
		for i := range u.ChatHistory {
			if u.ChatHistory[i].ID == chatID {
				u.ChatHistory[i].Results = results
				updated = u.ChatHistory[i]
				return nil
			}
		}
		return fmt.Errorf("chat %s: %w", chatID, domain.ErrNotFound)
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// Get returns one session by id.
func (s *Service) Get(ctx context.Context, externalID, chatID string) (*domain.ChatSession, error) {
	acct, err := s.accounts.GetByExternalID(ctx, externalID)
	if err != nil {
		return nil, err
	}
	for i := range acct.ChatHistory {
		if acct.ChatHistory[i].ID == chatID {
			return &acct.ChatHistory[i], nil
		}
	}
	return nil, fmt.Errorf("chat %s: %w", chatID, domain.ErrNotFound)
}

// List returns session headers, newest first, without the result payloads.
func (s *Service) List(ctx context.Context, externalID string) ([]domain.ChatSummary, error) {
	acct, err := s.accounts.GetByExternalID(ctx, externalID)
	if err != nil {
		return nil, err
	}
	summaries := make([]domain.ChatSummary, 0, len(acct.ChatHistory))
	for _, session := range acct.ChatHistory {
		summaries = append(summaries, session.Summary())
	}
	return summaries, nil
}

// Delete removes a session by id.
func (s *Service) Delete(ctx context.Context, externalID, chatID string) error {
	_, err := s.accounts.Mutate(ctx, externalID, func(u *domain.UserAccount) error {
		for i := range u.ChatHistory {
			if u.ChatHistory[i].ID == chatID {
				u.ChatHistory = append(u.ChatHistory[:i], u.ChatHistory[i+1:]...)
				return nil
			}
		}
		return fmt.Errorf("chat %s: %w", chatID, domain.ErrNotFound)
	})
	return err
}

// TitleFor derives the session title from the idea text: the first 50 runes,
// with an ellipsis when truncated.
func TitleFor(idea string) string {
	trimmed := strings.TrimSpace(idea)
	runes := []rune(trimmed)
	if len(runes) <= titleMaxRunes {
		return trimmed
	}
	return string(runes[:titleMaxRunes]) + "..."
}

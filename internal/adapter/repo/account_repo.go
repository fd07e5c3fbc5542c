package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"foundrgpt/internal/domain"
	"foundrgpt/internal/infra"
	"foundrgpt/internal/sqlinline"
)

// AccountRepositoryPG persists UserAccount documents in PostgreSQL. The whole
// account lives on one row; chat and order history are jsonb columns so every
// mutation shares the row's atomicity.
type AccountRepositoryPG struct {
	sql infra.SQLExecutor
}

// NewAccountRepository creates a new AccountRepositoryPG.
func NewAccountRepository(sql infra.SQLExecutor) *AccountRepositoryPG {
	return &AccountRepositoryPG{sql: sql}
}

// Upsert inserts a fresh free-tier account with the given reset boundaries,
// or updates profile fields only when the external id already exists. The
// upsert is a single statement, so concurrent first-syncs converge to one row.
func (r *AccountRepositoryPG) Upsert(ctx context.Context, p domain.Profile, limits domain.PlanLimits, dailyReset, weeklyReset time.Time) (*domain.UserAccount, error) {
	row := r.sql.QueryRow(ctx, sqlinline.QUpsertAccount,
		p.ExternalID, p.Email, p.Name, p.AvatarURL,
		limits.DailyPrompts, dailyReset,
		limits.WeeklyPrompts, weeklyReset,
	)
	return scanAccount(row)
}

// GetByExternalID fetches an account by identity-provider subject id.
func (r *AccountRepositoryPG) GetByExternalID(ctx context.Context, externalID string) (*domain.UserAccount, error) {
	row := r.sql.QueryRow(ctx, sqlinline.QSelectAccountByExternalID, externalID)
	return scanAccount(row)
}

// UpdateState writes the mutated account conditioned on the version read.
// It returns domain.ErrConflict when another writer got there first; the
// in-memory version is bumped on success to mirror the row.
func (r *AccountRepositoryPG) UpdateState(ctx context.Context, acct *domain.UserAccount) error {
	chatJSON, err := json.Marshal(acct.ChatHistory)
	if err != nil {
		return fmt.Errorf("marshal chat history: %w", err)
	}
	orderJSON, err := json.Marshal(acct.OrderHistory)
	if err != nil {
		return fmt.Errorf("marshal order history: %w", err)
	}
	tag, err := r.sql.Exec(ctx, sqlinline.QUpdateAccountState,
		acct.ExternalID,
		acct.Plan,
		acct.PromptsUsed,
		acct.PromptsRemaining,
		acct.DailyPromptsLimit,
		acct.PromptsResetAt,
		acct.WeeklyPromptsUsed,
		acct.WeeklyPromptsLimit,
		acct.WeeklyPromptsResetAt,
		chatJSON,
		orderJSON,
		acct.Version,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrConflict
	}
	acct.Version++
	return nil
}

func scanAccount(row pgx.Row) (*domain.UserAccount, error) {
	var (
		u         domain.UserAccount
		chatJSON  []byte
		orderJSON []byte
	)
	err := row.Scan(
		&u.ID, &u.ExternalID, &u.Email, &u.Name, &u.AvatarURL, &u.Plan,
		&u.PromptsUsed, &u.PromptsRemaining, &u.DailyPromptsLimit, &u.PromptsResetAt,
		&u.WeeklyPromptsUsed, &u.WeeklyPromptsLimit, &u.WeeklyPromptsResetAt,
		&chatJSON, &orderJSON, &u.Version, &u.CreatedAt, &u.UpdatedAt, &u.LastActiveAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	if len(chatJSON) > 0 {
		if err := json.Unmarshal(chatJSON, &u.ChatHistory); err != nil {
			return nil, fmt.Errorf("unmarshal chat history: %w", err)
		}
	}
	if len(orderJSON) > 0 {
		if err := json.Unmarshal(orderJSON, &u.OrderHistory); err != nil {
			return nil, fmt.Errorf("unmarshal order history: %w", err)
		}
	}
	return &u, nil
}

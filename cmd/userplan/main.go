// Command userplan is a support tool for switching an account's plan tier
// from the shell. Tier changes go through the same service path as payments,
// so the clean-slate quota policy applies here too.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"foundrgpt/internal/account"
	"foundrgpt/internal/adapter/repo"
	"foundrgpt/internal/domain"
	"foundrgpt/internal/infra"
)

func main() {
	var (
		externalIDFlag string
		planFlag       string
	)

	flag.StringVar(&externalIDFlag, "external-id", "", "identity subject of the account to update")
	flag.StringVar(&planFlag, "plan", "premium", "plan to assign (free, premium)")
	flag.Parse()

	externalID := strings.TrimSpace(externalIDFlag)
	plan := domain.PlanTier(strings.TrimSpace(strings.ToLower(planFlag)))

	if externalID == "" {
		exitWithError(errors.New("-external-id is required"))
	}
	switch plan {
	case domain.PlanFree, domain.PlanPremium:
	default:
		exitWithError(fmt.Errorf("unsupported plan %q", plan))
	}

	dbURL := strings.TrimSpace(os.Getenv("DATABASE_URL"))
	if dbURL == "" {
		exitWithError(errors.New("DATABASE_URL is required"))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		exitWithError(fmt.Errorf("failed to connect database: %w", err))
	}
	defer pool.Close()

	logger := infra.NewLogger("cli").With().Str("cmd", "userplan").Logger()
	runner := infra.NewSQLRunner(pool, logger)
	accounts := account.NewService(repo.NewAccountRepository(runner), logger)

	acct, err := accounts.SetPlanTier(ctx, externalID, plan)
	if err != nil {
		exitWithError(fmt.Errorf("set plan: %w", err))
	}

	out, _ := json.MarshalIndent(map[string]any{
		"external_id":       acct.ExternalID,
		"plan":              acct.Plan,
		"prompts_remaining": acct.PromptsRemaining,
		"daily_limit":       acct.DailyPromptsLimit,
		"weekly_limit":      acct.WeeklyPromptsLimit,
		"prompts_reset_at":  acct.PromptsResetAt,
		"weekly_reset_at":   acct.WeeklyPromptsResetAt,
	}, "", "  ")
	fmt.Println(string(out))
}

func exitWithError(err error) {
	fmt.Fprintln(os.Stderr, "userplan:", err)
	os.Exit(1)
}

package domain

import "time"

// List capacity limits enforced on the account document.
const (
	MaxChatSessions = 10
	MaxOrderHistory = 50
)

// PlanLimits holds the prompt allowances for a plan tier.
type PlanLimits struct {
	DailyPrompts  int
	WeeklyPrompts int
}

// planDefaults is the single source of truth for what each tier allows.
var planDefaults = map[PlanTier]PlanLimits{
	PlanFree:    {DailyPrompts: 1, WeeklyPrompts: 4},
	PlanPremium: {DailyPrompts: 3, WeeklyPrompts: 10},
}

// LimitsFor returns the allowances for a tier. Unknown tiers get the free
// limits so enforcement fails safe.
func LimitsFor(tier PlanTier) PlanLimits {
	if l, ok := planDefaults[tier]; ok {
		return l
	}
	return planDefaults[PlanFree]
}

// NextDailyReset returns the next UTC midnight strictly after now. An input
// of exactly midnight rolls to the following day.
func NextDailyReset(now time.Time) time.Time {
	t := now.UTC()
	midnight := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return midnight.Add(24 * time.Hour)
}

// NextWeeklyReset returns the next Monday 00:00:00 UTC strictly after now.
// An input of exactly Monday midnight rolls to the following Monday.
func NextWeeklyReset(now time.Time) time.Time {
	t := now.UTC()
	midnight := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	days := (8 - int(t.Weekday())) % 7
	next := midnight.AddDate(0, 0, days)
	if !next.After(now) {
		next = next.AddDate(0, 0, 7)
	}
	return next
}

// IsResetDue reports whether a counter must roll over. A zero boundary is
// treated as due.
func IsResetDue(resetAt, now time.Time) bool {
	return resetAt.IsZero() || !now.Before(resetAt)
}

// ApplyDueResets rolls over the daily and weekly counters whose boundary has
// passed and reports whether anything changed. Applying when nothing is due
// is a no-op, so the call is idempotent.
func ApplyDueResets(u *UserAccount, now time.Time) bool {
	changed := false
	if IsResetDue(u.PromptsResetAt, now) {
		u.PromptsUsed = 0
		u.PromptsRemaining = u.DailyPromptsLimit
		u.PromptsResetAt = NextDailyReset(now)
		changed = true
	}
	if IsResetDue(u.WeeklyPromptsResetAt, now) {
		u.WeeklyPromptsUsed = 0
		u.WeeklyPromptsResetAt = NextWeeklyReset(now)
		changed = true
	}
	return changed
}

// ConsumePrompt applies due resets, then spends one unit of quota. It fails
// with a *QuotaError carrying the relevant reset boundary when either
// allowance is exhausted; on failure only the reset rollover has touched the
// record.
func ConsumePrompt(u *UserAccount, now time.Time) error {
	ApplyDueResets(u, now)
	if u.WeeklyPromptsUsed >= u.WeeklyPromptsLimit {
		return &QuotaError{Scope: QuotaScopeWeekly, ResetAt: u.WeeklyPromptsResetAt}
	}
	if u.PromptsRemaining <= 0 {
		return &QuotaError{Scope: QuotaScopeDaily, ResetAt: u.PromptsResetAt}
	}
	u.PromptsUsed++
	u.WeeklyPromptsUsed++
	u.PromptsRemaining--
	return nil
}

// ApplyPlanChange switches the account to the given tier. Any tier change
// grants a clean slate: used counters reset to zero. Remaining prompts are
// banked up to the new ceiling (max of current and new limit when moving to a
// bigger plan, min when moving to a smaller one).
func ApplyPlanChange(u *UserAccount, tier PlanTier) {
	limits := LimitsFor(tier)
	remaining := u.PromptsRemaining
	if limits.DailyPrompts >= u.DailyPromptsLimit {
		remaining = max(remaining, limits.DailyPrompts)
	} else {
		remaining = min(remaining, limits.DailyPrompts)
	}
	u.Plan = tier
	u.DailyPromptsLimit = limits.DailyPrompts
	u.WeeklyPromptsLimit = limits.WeeklyPrompts
	u.PromptsUsed = 0
	u.WeeklyPromptsUsed = 0
	u.PromptsRemaining = remaining
}

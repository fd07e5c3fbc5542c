package repo

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog"

	"foundrgpt/internal/infra"
	"foundrgpt/internal/sqlinline"
)

// UsageRepositoryPG appends usage events. Recording is best-effort
// bookkeeping: failures are logged and swallowed so they never fail the
// request that produced them.
type UsageRepositoryPG struct {
	sql    infra.SQLExecutor
	logger zerolog.Logger
}

// NewUsageRepository creates a new UsageRepositoryPG.
func NewUsageRepository(sql infra.SQLExecutor, logger zerolog.Logger) *UsageRepositoryPG {
	return &UsageRepositoryPG{sql: sql, logger: logger}
}

// Record appends one usage event for the account.
func (r *UsageRepositoryPG) Record(ctx context.Context, accountID, requestID, eventType string, success bool, latency time.Duration, props map[string]any) {
	var propsJSON []byte
	if props != nil {
		propsJSON, _ = json.Marshal(props)
	}
	var reqID any
	if requestID != "" {
		reqID = requestID
	}
	_, err := r.sql.Exec(ctx, sqlinline.QInsertUsageEvent,
		accountID, reqID, eventType, success, latency.Milliseconds(), propsJSON)
	if err != nil {
		r.logger.Error().Err(err).Str("event", eventType).Msg("record usage event failed")
	}
}

package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/parchment-ai/parchment/internal/service"
)

// QueryLogRepository records answered queries for later inspection.
type QueryLogRepository struct {
	db dbtx
}

func NewQueryLogRepository(pool *pgxpool.Pool) *QueryLogRepository {
	return &QueryLogRepository{db: pool}
}

func (r *QueryLogRepository) CreateQueryLog(ctx context.Context, entry service.QueryLogEntry) (string, error) {
	id := uuid.NewString()
	_, err := r.db.Exec(ctx,
		`INSERT INTO query_logs
			(id, query, sources, result_count, degraded, failure_reason, duration_ms, created_at)
		 VALUES
			($1, $2, $3, $4, $5, $6, $7, $8)`,
		id,
		entry.Query,
		entry.Sources,
		entry.ResultCount,
		entry.Degraded,
		nullableString(entry.FailureReason),
		entry.DurationMs,
		time.Now().UTC(),
	)
	if err != nil {
		return "", err
	}
	return id, nil
}

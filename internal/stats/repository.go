package stats

import (
	"context"
	"database/sql"
	"fmt"
)

// Repository persists hourly aggregate deltas. UpsertStats must be a single
// atomic increment-or-create operation so concurrent writers to the same
// bucket cannot lose updates; callers never read-modify-write.
type Repository interface {
	UpsertStats(ctx context.Context, delta MessageStats) error
	GetStats(ctx context.Context, domain, messageID string) ([]MessageStats, error)
}

type PostgresRepository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &PostgresRepository{db: db}
}

const upsertStatsQuery = `
INSERT INTO message_stats
	(domain, message_id, date, sent, delivered, not_delivered, received, click, action_click, billable_sends)
VALUES
	($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
ON CONFLICT (domain, message_id, date) DO UPDATE SET
	sent           = message_stats.sent + EXCLUDED.sent,
	delivered      = message_stats.delivered + EXCLUDED.delivered,
	not_delivered  = message_stats.not_delivered + EXCLUDED.not_delivered,
	received       = message_stats.received + EXCLUDED.received,
	click          = message_stats.click + EXCLUDED.click,
	action_click   = message_stats.action_click + EXCLUDED.action_click,
	billable_sends = message_stats.billable_sends + EXCLUDED.billable_sends`

func (r *PostgresRepository) UpsertStats(ctx context.Context, delta MessageStats) error {
	_, err := r.db.ExecContext(ctx, upsertStatsQuery,
		delta.Domain,
		delta.MessageID,
		HourBucket(delta.Date),
		delta.Sent,
		delta.Delivered,
		delta.NotDelivered,
		delta.Received,
		delta.Click,
		delta.ActionClick,
		delta.BillableSends,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert message stats: %w", err)
	}
	return nil
}

const getStatsQuery = `
SELECT domain, message_id, date, sent, delivered, not_delivered, received, click, action_click, billable_sends
FROM message_stats
WHERE domain = $1 AND message_id = $2
ORDER BY date`

func (r *PostgresRepository) GetStats(ctx context.Context, domain, messageID string) ([]MessageStats, error) {
	rows, err := r.db.QueryContext(ctx, getStatsQuery, domain, messageID)
	if err != nil {
		return nil, fmt.Errorf("failed to query message stats: %w", err)
	}
	defer rows.Close()

	var result []MessageStats
	for rows.Next() {
		var row MessageStats
		if err := rows.Scan(
			&row.Domain,
			&row.MessageID,
			&row.Date,
			&row.Sent,
			&row.Delivered,
			&row.NotDelivered,
			&row.Received,
			&row.Click,
			&row.ActionClick,
			&row.BillableSends,
		); err != nil {
			return nil, fmt.Errorf("failed to scan message stats row: %w", err)
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read message stats rows: %w", err)
	}

	return result, nil
}

package postgres

import (
	"context"
	"fmt"
	"time"

	"cosmicds/internal/store"
)

func (c *Client) ListSessions(ctx context.Context) ([]store.SessionSummary, error) {
	rows, err := c.pool.Query(ctx, `SELECT id, updated_at FROM sessions ORDER BY updated_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}
	defer rows.Close()

	var summaries []store.SessionSummary
	for rows.Next() {
		var s store.SessionSummary
		if err := rows.Scan(&s.ID, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning session: %w", err)
		}
		summaries = append(summaries, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return summaries, nil
}

func (c *Client) PruneSessions(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := c.pool.Exec(ctx, `DELETE FROM sessions WHERE updated_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("pruning sessions: %w", err)
	}
	return tag.RowsAffected(), nil
}

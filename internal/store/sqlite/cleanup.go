package sqlite

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"cosmicds/internal/store"
)

func (c *Client) ListSessions(ctx context.Context) ([]store.SessionSummary, error) {
	rows, err := c.db.QueryContext(ctx, `SELECT id, updated_at FROM sessions`)
	if err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}
	defer rows.Close()

	var summaries []store.SessionSummary
	for rows.Next() {
		var s store.SessionSummary
		var updated string
		if err := rows.Scan(&s.ID, &updated); err != nil {
			return nil, fmt.Errorf("scanning session: %w", err)
		}
		s.UpdatedAt, err = parseTimestamp(updated)
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Stored text may differ in width, so order by the parsed time.
	slices.SortFunc(summaries, func(a, b store.SessionSummary) int {
		if n := b.UpdatedAt.Compare(a.UpdatedAt); n != 0 {
			return n
		}
		return strings.Compare(a.ID, b.ID)
	})
	return summaries, nil
}

// PruneSessions deletes sessions last saved before cutoff.
func (c *Client) PruneSessions(ctx context.Context, cutoff time.Time) (int64, error) {
	summaries, err := c.ListSessions(ctx)
	if err != nil {
		return 0, err
	}

	var removed int64
	for _, s := range summaries {
		if !s.UpdatedAt.Before(cutoff) {
			continue
		}
		result, err := c.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, s.ID)
		if err != nil {
			return removed, fmt.Errorf("pruning session %s: %w", s.ID, err)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return removed, fmt.Errorf("getting rows affected: %w", err)
		}
		removed += affected
	}
	return removed, nil
}

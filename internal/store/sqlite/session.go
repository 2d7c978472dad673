package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"cosmicds/internal/store"
)

// timestampLayout keeps every stored timestamp the same width so that the
// text column sorts by time.
const timestampLayout = "2006-01-02T15:04:05.000000000Z07:00"

func parseTimestamp(raw string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing session timestamp: %w", err)
	}
	return t, nil
}

func (c *Client) LoadSession(ctx context.Context, id string) (*store.Session, error) {
	query := `SELECT global, stories, stages, updated_at FROM sessions WHERE id = ?`

	var enc store.EncodedSession
	var updated string
	err := c.db.QueryRowContext(ctx, query, id).Scan(&enc.Global, &enc.Stories, &enc.Stages, &updated)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrSessionNotFound
		}
		return nil, fmt.Errorf("loading session %s: %w", id, err)
	}

	updatedAt, err := parseTimestamp(updated)
	if err != nil {
		return nil, err
	}
	return store.DecodeSession(id, enc, updatedAt)
}

func (c *Client) SaveSession(ctx context.Context, s *store.Session) error {
	enc, err := store.EncodeSession(s)
	if err != nil {
		return err
	}
	now := time.Now().UTC()

	query := `
	INSERT INTO sessions (id, global, stories, stages, updated_at)
	VALUES (?, ?, ?, ?, ?)
	ON CONFLICT (id) DO UPDATE SET
		global = excluded.global,
		stories = excluded.stories,
		stages = excluded.stages,
		updated_at = excluded.updated_at
	`
	_, err = c.db.ExecContext(ctx, query, s.ID, string(enc.Global), string(enc.Stories), string(enc.Stages), now.Format(timestampLayout))
	if err != nil {
		return fmt.Errorf("saving session %s: %w", s.ID, err)
	}
	s.UpdatedAt = now
	return nil
}

func (c *Client) DeleteSession(ctx context.Context, id string) error {
	res, err := c.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting session %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("deleting session %s: %w", id, err)
	}
	if n == 0 {
		return store.ErrSessionNotFound
	}
	return nil
}

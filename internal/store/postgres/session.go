package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"cosmicds/internal/store"
)

func (c *Client) LoadSession(ctx context.Context, id string) (*store.Session, error) {
	query := `SELECT global, stories, stages, updated_at FROM sessions WHERE id = $1`

	var enc store.EncodedSession
	var updatedAt time.Time
	err := c.pool.QueryRow(ctx, query, id).Scan(&enc.Global, &enc.Stories, &enc.Stages, &updatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrSessionNotFound
		}
		return nil, fmt.Errorf("loading session %s: %w", id, err)
	}
	return store.DecodeSession(id, enc, updatedAt)
}

func (c *Client) SaveSession(ctx context.Context, s *store.Session) error {
	enc, err := store.EncodeSession(s)
	if err != nil {
		return err
	}

	query := `
INSERT INTO sessions (id, global, stories, stages, updated_at)
VALUES ($1, $2::jsonb, $3::jsonb, $4::jsonb, now())
ON CONFLICT (id) DO UPDATE SET
    global = EXCLUDED.global,
    stories = EXCLUDED.stories,
    stages = EXCLUDED.stages,
    updated_at = EXCLUDED.updated_at
RETURNING updated_at
`
	var updatedAt time.Time
	err = c.pool.QueryRow(ctx, query, s.ID, string(enc.Global), string(enc.Stories), string(enc.Stages)).Scan(&updatedAt)
	if err != nil {
		return fmt.Errorf("saving session %s: %w", s.ID, err)
	}
	s.UpdatedAt = updatedAt
	return nil
}

func (c *Client) DeleteSession(ctx context.Context, id string) error {
	tag, err := c.pool.Exec(ctx, `DELETE FROM sessions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting session %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrSessionNotFound
	}
	return nil
}

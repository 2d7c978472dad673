package sqlite

import (
	"context"
	"fmt"
)

func (c *Client) EnsureSchema(ctx context.Context) error {
	ddl := `
	CREATE TABLE IF NOT EXISTS sessions (
		id         TEXT PRIMARY KEY,
		global     TEXT NOT NULL DEFAULT '{}',
		stories    TEXT NOT NULL DEFAULT '{}',
		stages     TEXT NOT NULL DEFAULT '{}',
		updated_at TEXT NOT NULL
	);
	`
	if _, err := c.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("ensuring sqlite schema: %w", err)
	}
	return nil
}

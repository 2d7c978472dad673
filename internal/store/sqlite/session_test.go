package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"cosmicds/internal/state"
	"cosmicds/internal/store"
)

func newTestClient(t *testing.T, dsn string) *Client {
	t.Helper()
	ctx := context.Background()
	c, err := New(ctx, dsn)
	if err != nil {
		t.Fatalf("opening sqlite: %v", err)
	}
	t.Cleanup(func() { c.Close(ctx) })
	if err := c.EnsureSchema(ctx); err != nil {
		t.Fatalf("ensuring schema: %v", err)
	}
	return c
}

func TestSessionRoundTrip(t *testing.T) {
	ctx := context.Background()
	c := newTestClient(t, "sqlite://:memory:")

	if _, err := c.LoadSession(ctx, "missing"); !errors.Is(err, store.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}

	sess := store.NewSession("student-tab")
	sess.Global.Student.ID = 42
	sess.Global.Classroom.Size = 12
	sess.SetStory("hubbles_law", state.StoryDocument{"story_id": "hubbles_law", "step": 2.0})
	sess.SetStage("hubbles_law", 1, state.StageDocument{"stage_id": 1.0, "marker": "sel_gal1"})

	if err := c.SaveSession(ctx, sess); err != nil {
		t.Fatalf("saving: %v", err)
	}
	if sess.UpdatedAt.IsZero() {
		t.Fatalf("expected updated timestamp")
	}

	loaded, err := c.LoadSession(ctx, "student-tab")
	if err != nil {
		t.Fatalf("loading: %v", err)
	}
	if loaded.Global.Student.ID != 42 || loaded.Global.Classroom.Size != 12 {
		t.Fatalf("unexpected global state: %+v", loaded.Global)
	}
	doc, ok := loaded.Stage("hubbles_law", 1)
	if !ok || doc["marker"] != "sel_gal1" {
		t.Fatalf("unexpected stage document: %v", doc)
	}
	if !loaded.UpdatedAt.Equal(sess.UpdatedAt) {
		t.Fatalf("expected %v, got %v", sess.UpdatedAt, loaded.UpdatedAt)
	}

	loaded.Global.ClearUser()
	if err := c.SaveSession(ctx, loaded); err != nil {
		t.Fatalf("saving again: %v", err)
	}
	again, err := c.LoadSession(ctx, "student-tab")
	if err != nil {
		t.Fatalf("loading again: %v", err)
	}
	if again.Global.Student.ID != 0 {
		t.Fatalf("expected cleared student, got %d", again.Global.Student.ID)
	}

	if err := c.DeleteSession(ctx, "student-tab"); err != nil {
		t.Fatalf("deleting: %v", err)
	}
	if err := c.DeleteSession(ctx, "student-tab"); !errors.Is(err, store.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestFileDatabaseCreatesDirectory(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), ".cosmicds", "session.db")
	c := newTestClient(t, "sqlite://"+path)

	if err := c.SaveSession(ctx, store.NewSession("default")); err != nil {
		t.Fatalf("saving: %v", err)
	}
	sess, err := store.LoadOrCreate(ctx, c, "default")
	if err != nil {
		t.Fatalf("loading: %v", err)
	}
	if sess.ID != "default" {
		t.Fatalf("unexpected session id %q", sess.ID)
	}
}

func TestListAndPruneSessions(t *testing.T) {
	ctx := context.Background()
	c := newTestClient(t, "sqlite://:memory:")

	for _, id := range []string{"old", "fresh"} {
		if err := c.SaveSession(ctx, store.NewSession(id)); err != nil {
			t.Fatalf("saving %s: %v", id, err)
		}
	}
	if _, err := c.db.ExecContext(ctx, `UPDATE sessions SET updated_at = ? WHERE id = ?`, "2020-01-01T00:00:00Z", "old"); err != nil {
		t.Fatalf("backdating: %v", err)
	}

	summaries, err := c.ListSessions(ctx)
	if err != nil {
		t.Fatalf("listing: %v", err)
	}
	if len(summaries) != 2 {
		t.Fatalf("expected 2 sessions, got %d", len(summaries))
	}

	removed, err := c.PruneSessions(ctx, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("pruning: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected 1 pruned session, got %d", removed)
	}
	if _, err := c.LoadSession(ctx, "old"); !errors.Is(err, store.ErrSessionNotFound) {
		t.Fatalf("expected old session gone, got %v", err)
	}
	if _, err := c.LoadSession(ctx, "fresh"); err != nil {
		t.Fatalf("expected fresh session kept: %v", err)
	}
}

func TestListSessionsNewestFirst(t *testing.T) {
	ctx := context.Background()
	c := newTestClient(t, "sqlite://:memory:")

	for _, id := range []string{"older", "newer"} {
		if err := c.SaveSession(ctx, store.NewSession(id)); err != nil {
			t.Fatalf("saving %s: %v", id, err)
		}
	}
	// Trimmed fractions: as text "…00.5Z" sorts after "…00.51Z".
	stamps := map[string]string{
		"older": "2026-01-01T00:00:00.5Z",
		"newer": "2026-01-01T00:00:00.51Z",
	}
	for id, stamp := range stamps {
		if _, err := c.db.ExecContext(ctx, `UPDATE sessions SET updated_at = ? WHERE id = ?`, stamp, id); err != nil {
			t.Fatalf("setting timestamp: %v", err)
		}
	}

	summaries, err := c.ListSessions(ctx)
	if err != nil {
		t.Fatalf("listing: %v", err)
	}
	if len(summaries) != 2 || summaries[0].ID != "newer" || summaries[1].ID != "older" {
		t.Fatalf("expected newer before older, got %+v", summaries)
	}
}

func TestSaveSessionWritesFixedWidthTimestamp(t *testing.T) {
	ctx := context.Background()
	c := newTestClient(t, "sqlite://:memory:")

	if err := c.SaveSession(ctx, store.NewSession("tab")); err != nil {
		t.Fatalf("saving: %v", err)
	}
	var raw string
	if err := c.db.QueryRowContext(ctx, `SELECT updated_at FROM sessions WHERE id = ?`, "tab").Scan(&raw); err != nil {
		t.Fatalf("reading timestamp: %v", err)
	}
	if len(raw) != len("2006-01-02T15:04:05.000000000Z") {
		t.Fatalf("expected fixed-width timestamp, got %q", raw)
	}
}

// Package store keeps the state containers of a UI session between
// interactions. It caches what the backend returned; the backend stays the
// source of truth for student progress.
package store

import (
	"context"
	"errors"
	"time"
)

var ErrSessionNotFound = errors.New("session not found")

type Store interface {
	Close(ctx context.Context) error
	EnsureSchema(ctx context.Context) error

	LoadSession(ctx context.Context, id string) (*Session, error)
	SaveSession(ctx context.Context, s *Session) error
	DeleteSession(ctx context.Context, id string) error

	ListSessions(ctx context.Context) ([]SessionSummary, error)
	PruneSessions(ctx context.Context, cutoff time.Time) (int64, error)
}

type SessionSummary struct {
	ID        string    `json:"id"`
	UpdatedAt time.Time `json:"updated_at"`
}

// LoadOrCreate returns the stored session or a fresh one when id is unknown.
func LoadOrCreate(ctx context.Context, st Store, id string) (*Session, error) {
	sess, err := st.LoadSession(ctx, id)
	if errors.Is(err, ErrSessionNotFound) {
		return NewSession(id), nil
	}
	if err != nil {
		return nil, err
	}
	return sess, nil
}

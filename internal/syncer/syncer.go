// Package syncer runs the bootstrap and sync operations against a stored
// session. It is the UI session shared by the CLI and the MCP server: every
// call loads the session, drives the remote client, and saves the result.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"cosmicds/internal/config"
	"cosmicds/internal/identity"
	"cosmicds/internal/logging"
	"cosmicds/internal/remote"
	"cosmicds/internal/state"
	"cosmicds/internal/store"
)

// ErrNoStudent is returned by sync operations on a session with no student
// loaded.
var ErrNoStudent = errors.New("no student loaded in session")

type Options struct {
	Client    *remote.Client
	API       remote.StateAPI
	Store     store.Store
	StoryName string
	Manifest  *config.StoryManifest
	Logger    *zerolog.Logger
}

type Service struct {
	client   *remote.Client
	api      remote.StateAPI
	store    store.Store
	story    string
	manifest *config.StoryManifest
	log      zerolog.Logger
}

func New(opts Options) (*Service, error) {
	if opts.Client == nil {
		return nil, fmt.Errorf("remote client is required")
	}
	if opts.Store == nil {
		return nil, fmt.Errorf("session store is required")
	}
	if opts.StoryName == "" {
		return nil, fmt.Errorf("story name is required")
	}
	if opts.Manifest != nil && opts.Manifest.Story != opts.StoryName {
		return nil, fmt.Errorf("story manifest is for %q, not %q", opts.Manifest.Story, opts.StoryName)
	}

	api := opts.API
	if api == nil {
		api = &remote.JSONStateAPI{Client: opts.Client}
	}
	log := logging.Component("sync")
	if opts.Logger != nil {
		log = *opts.Logger
	}

	return &Service{
		client:   opts.Client,
		api:      api,
		store:    opts.Store,
		story:    opts.StoryName,
		manifest: opts.Manifest,
		log:      log,
	}, nil
}

func (s *Service) StoryName() string { return s.story }

func (s *Service) Manifest() *config.StoryManifest { return s.manifest }

// update loads the session, applies fn and saves the session when fn succeeds.
func (s *Service) update(ctx context.Context, sessionID string, fn func(sess *store.Session) error) (*store.Session, error) {
	sess, err := store.LoadOrCreate(ctx, s.store, sessionID)
	if err != nil {
		return nil, fmt.Errorf("loading session: %w", err)
	}
	if err := fn(sess); err != nil {
		return nil, err
	}
	if err := s.store.SaveSession(ctx, sess); err != nil {
		return nil, fmt.Errorf("saving session: %w", err)
	}
	return sess, nil
}

func (s *Service) Session(ctx context.Context, sessionID string) (*store.Session, error) {
	return store.LoadOrCreate(ctx, s.store, sessionID)
}

func (s *Service) ListSessions(ctx context.Context) ([]store.SessionSummary, error) {
	return s.store.ListSessions(ctx)
}

func (s *Service) DropSession(ctx context.Context, sessionID string) error {
	return s.store.DeleteSession(ctx, sessionID)
}

// PruneSessions removes sessions not saved within maxAge.
func (s *Service) PruneSessions(ctx context.Context, maxAge time.Duration) (int64, error) {
	if maxAge <= 0 {
		return 0, fmt.Errorf("max age must be positive")
	}
	removed, err := s.store.PruneSessions(ctx, time.Now().Add(-maxAge))
	if err != nil {
		return 0, err
	}
	s.log.Info().Int64("removed", removed).Dur("max_age", maxAge).Msg("pruned sessions")
	return removed, nil
}

func (s *Service) UserExists(ctx context.Context, user *identity.UserInfo) (bool, error) {
	return s.client.UserExists(ctx, user)
}

func (s *Service) LoadUserInfo(ctx context.Context, sessionID string, user *identity.UserInfo) (state.GlobalState, error) {
	sess, err := s.update(ctx, sessionID, func(sess *store.Session) error {
		return s.client.LoadUserInfo(ctx, user, s.story, &sess.Global)
	})
	if err != nil {
		return state.GlobalState{}, err
	}
	return sess.Global, nil
}

func (s *Service) CreateNewUser(ctx context.Context, sessionID string, user *identity.UserInfo, classCode string) (state.GlobalState, error) {
	sess, err := s.update(ctx, sessionID, func(sess *store.Session) error {
		return s.client.CreateNewUser(ctx, user, s.story, classCode, &sess.Global)
	})
	if err != nil {
		return state.GlobalState{}, err
	}
	return sess.Global, nil
}

func (s *Service) ClearUser(ctx context.Context, sessionID string) (state.GlobalState, error) {
	sess, err := s.update(ctx, sessionID, func(sess *store.Session) error {
		remote.ClearUser(&sess.Global)
		return nil
	})
	if err != nil {
		return state.GlobalState{}, err
	}
	return sess.Global, nil
}

func requireStudent(sess *store.Session) error {
	if sess.Global.Student.ID == 0 {
		return ErrNoStudent
	}
	return nil
}

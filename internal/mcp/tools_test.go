package mcp

import (
	"context"
	"io"
	"testing"

	"github.com/rs/zerolog"

	"cosmicds/internal/config"
	"cosmicds/internal/identity"
	"cosmicds/internal/remote"
	"cosmicds/internal/remote/remotetest"
	"cosmicds/internal/store/sqlite"
	"cosmicds/internal/syncer"
)

const testSecret = "session-secret"

var grace = &identity.UserInfo{Name: "Grace"}

func newTestServer(t *testing.T) (*Server, *remotetest.Backend) {
	t.Helper()
	ctx := context.Background()

	backend := remotetest.NewBackend()
	srv := remotetest.NewServer(t, backend)
	logger := zerolog.New(io.Discard)

	client, err := remote.New(remote.Options{BaseURL: srv.URL, Secret: testSecret, Logger: &logger})
	if err != nil {
		t.Fatalf("creating client: %v", err)
	}
	st, err := sqlite.New(ctx, "sqlite://:memory:")
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	t.Cleanup(func() { st.Close(ctx) })
	if err := st.EnsureSchema(ctx); err != nil {
		t.Fatalf("ensuring schema: %v", err)
	}
	manifest, err := config.LoadStoryManifest("testdata/story.yaml")
	if err != nil {
		t.Fatalf("loading manifest: %v", err)
	}

	service, err := syncer.New(syncer.Options{
		Client:    client,
		Store:     st,
		StoryName: "hubbles_law",
		Manifest:  manifest,
		Logger:    &logger,
	})
	if err != nil {
		t.Fatalf("creating service: %v", err)
	}
	return NewServer(service, "mcp-session", grace, "test"), backend
}

func signUp(t *testing.T, server *Server, backend *remotetest.Backend) GlobalOutput {
	t.Helper()
	backend.AddClassroom("XYZ", map[string]any{"name": "Period 3"})
	_, out, err := server.handleCreateNewUser(context.Background(), nil, CreateNewUserInput{ClassCode: "XYZ"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return out
}

func TestCreateNewUserRequiresClassCode(t *testing.T) {
	server, backend := newTestServer(t)

	_, _, err := server.handleCreateNewUser(context.Background(), nil, CreateNewUserInput{})
	if err == nil {
		t.Fatalf("expected error")
	}
	if len(backend.SignUps()) != 0 {
		t.Fatalf("expected no sign-up")
	}
}

func TestUserTools(t *testing.T) {
	ctx := context.Background()
	server, backend := newTestServer(t)

	_, exists, err := server.handleUserExists(ctx, nil, EmptyInput{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if exists.Exists {
		t.Fatalf("expected no user before sign-up")
	}

	global := signUp(t, server, backend)
	if global.StudentID == 0 || global.Size != 1 || global.ClassInfo["name"] != "Period 3" {
		t.Fatalf("unexpected global output: %+v", global)
	}

	_, exists, err = server.handleUserExists(ctx, nil, EmptyInput{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !exists.Exists {
		t.Fatalf("expected user after sign-up")
	}

	_, cleared, err := server.handleClearUser(ctx, nil, EmptyInput{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cleared.StudentID != 0 || cleared.Size != 0 || len(cleared.ClassInfo) != 0 {
		t.Fatalf("unexpected cleared output: %+v", cleared)
	}

	_, loaded, err := server.handleLoadUserInfo(ctx, nil, EmptyInput{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if loaded.StudentID != global.StudentID {
		t.Fatalf("expected student %d, got %d", global.StudentID, loaded.StudentID)
	}
}

func TestStageTools(t *testing.T) {
	ctx := context.Background()
	server, backend := newTestServer(t)
	global := signUp(t, server, backend)

	_, put, err := server.handlePutStageState(ctx, nil, PutStageInput{StageID: 1, Values: map[string]any{"marker": "sel_gal1"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if put.State["marker"] != "sel_gal1" {
		t.Fatalf("unexpected put output: %+v", put)
	}
	if _, ok := backend.StageState(global.StudentID, "hubbles_law", "1"); !ok {
		t.Fatalf("expected stage state stored on backend")
	}

	backend.SetStageState(global.StudentID, "hubbles_law", "1", `{"stage_id": 1, "marker": "mee_gui1"}`)
	_, got, err := server.handleGetStageState(ctx, nil, StageInput{StageID: 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.Updated || got.State["marker"] != "mee_gui1" {
		t.Fatalf("unexpected get output: %+v", got)
	}

	_, deleted, err := server.handleDeleteStageState(ctx, nil, StageInput{StageID: 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !deleted.Deleted {
		t.Fatalf("expected deleted output")
	}
	if _, ok := backend.StageState(global.StudentID, "hubbles_law", "1"); ok {
		t.Fatalf("expected stage state removed from backend")
	}

	if _, _, err := server.handleGetStageState(ctx, nil, StageInput{}); err == nil {
		t.Fatalf("expected error for missing stage_id")
	}
}

func TestStoryAndSessionTools(t *testing.T) {
	ctx := context.Background()
	server, backend := newTestServer(t)
	signUp(t, server, backend)

	_, put, err := server.handlePutStoryState(ctx, nil, PutStoryInput{Values: map[string]any{"step": 3}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if put.StoryID != "hubbles_law" || put.State["step"] != 3 {
		t.Fatalf("unexpected put output: %+v", put)
	}

	_, got, err := server.handleGetStoryState(ctx, nil, EmptyInput{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.Updated || got.State["step"] != 3.0 {
		t.Fatalf("unexpected get output: %+v", got)
	}

	_, sess, err := server.handleGetSession(ctx, nil, EmptyInput{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sess.ID != "mcp-session" || sess.Global.StudentID == 0 {
		t.Fatalf("unexpected session output: %+v", sess)
	}
	if _, ok := sess.Stories["hubbles_law"]; !ok {
		t.Fatalf("expected cached story state")
	}
}

func TestGetStoryManifest(t *testing.T) {
	server, _ := newTestServer(t)

	_, out, err := server.handleGetStoryManifest(context.Background(), nil, EmptyInput{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Story != "hubbles_law" || len(out.Stages) != 2 {
		t.Fatalf("unexpected manifest output: %+v", out)
	}
	if out.Stages[0].Fields[0].Name != "marker" || len(out.Stages[0].Fields[0].Values) != 2 {
		t.Fatalf("unexpected stage fields: %+v", out.Stages[0].Fields)
	}
}

func TestDeleteStageStateNeverStored(t *testing.T) {
	ctx := context.Background()
	server, backend := newTestServer(t)
	signUp(t, server, backend)

	_, out, err := server.handleDeleteStageState(ctx, nil, StageInput{StageID: 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Deleted {
		t.Fatalf("expected deleted=false for a stage the backend does not have")
	}
	if backend.CountCalls("DELETE") != 1 {
		t.Fatalf("expected one delete request, got %d", backend.CountCalls("DELETE"))
	}
}

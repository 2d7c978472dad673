package remote

import (
	"bytes"
	"context"
	"errors"
	"net/url"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cosmicds/internal/identity"
	"cosmicds/internal/remote/remotetest"
	"cosmicds/internal/state"
)

const testSecret = "session-secret"

var ada = &identity.UserInfo{Email: "ada@example.edu", Name: "Ada"}

type scoreStage struct {
	state.BaseStageState
	Score int    `json:"score"`
	Notes string `json:"notes,omitempty"`
}

type hubbleStory struct {
	state.BaseLocalState
	Step int    `json:"step"`
	Name string `json:"name,omitempty"`
}

type testEnv struct {
	backend *remotetest.Backend
	client  *Client
	logs    *bytes.Buffer
}

func newTestEnv(t *testing.T, configure ...func(*Options)) *testEnv {
	t.Helper()
	backend := remotetest.NewBackend()
	backend.APIKey = "test-key"
	srv := remotetest.NewServer(t, backend)

	logs := &bytes.Buffer{}
	logger := zerolog.New(logs)
	opts := Options{
		BaseURL: srv.URL,
		APIKey:  "test-key",
		Secret:  testSecret,
		Logger:  &logger,
	}
	for _, fn := range configure {
		fn(&opts)
	}
	client, err := New(opts)
	require.NoError(t, err)
	return &testEnv{backend: backend, client: client, logs: logs}
}

func hashOf(t *testing.T, user *identity.UserInfo) string {
	t.Helper()
	hash, err := identity.NewResolver(testSecret).Resolve(user)
	require.NoError(t, err)
	return hash
}

func TestNewDefaults(t *testing.T) {
	c, err := New(Options{})
	require.NoError(t, err)
	assert.Equal(t, DefaultBaseURL, c.BaseURL())

	c, err = New(Options{BaseURL: "http://localhost:8080/"})
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080", c.BaseURL())
}

func TestNewRejectsBadOptions(t *testing.T) {
	_, err := New(Options{BaseURL: "not a url"})
	assert.Error(t, err)

	_, err = New(Options{SignUpConfirm: ConfirmOptions{Attempts: -1}})
	assert.Error(t, err)
}

func TestAuthorizationHeader(t *testing.T) {
	env := newTestEnv(t)
	env.backend.AddStudent(hashOf(t, ada), "")

	exists, err := env.client.UserExists(context.Background(), ada)
	require.NoError(t, err)
	assert.True(t, exists)

	wrong := newTestEnv(t, func(o *Options) { o.APIKey = "nope" })
	wrong.backend.AddStudent(hashOf(t, ada), "")
	exists, err = wrong.client.UserExists(context.Background(), ada)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestTransportErrorsPropagate(t *testing.T) {
	backend := remotetest.NewBackend()
	srv := remotetest.NewServer(t, backend)
	base := srv.URL
	srv.Close()

	logger := zerolog.Nop()
	c, err := New(Options{BaseURL: base, Secret: testSecret, Logger: &logger})
	require.NoError(t, err)

	_, err = c.UserExists(context.Background(), ada)
	require.Error(t, err)
	var urlErr *url.Error
	assert.True(t, errors.As(err, &urlErr))
}

func TestHashedUserLogsWithoutInputs(t *testing.T) {
	env := newTestEnv(t)

	_, ok := env.client.HashedUser(&identity.UserInfo{})
	assert.False(t, ok)
	assert.Contains(t, env.logs.String(), "failed to create hash")

	hash, ok := env.client.HashedUser(ada)
	assert.True(t, ok)
	assert.Equal(t, hashOf(t, ada), hash)
	assert.NotContains(t, env.logs.String(), ada.Email)
}

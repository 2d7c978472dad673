package syncer

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPutStageStartsFromDefaults(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	id := env.signedIn(t)

	doc, err := env.service.PutStage(ctx, sessionID, 1, map[string]any{"marker": "sel_gal1"})
	require.NoError(t, err)
	assert.Equal(t, "sel_gal1", doc["marker"])
	assert.Equal(t, 0, doc["galaxies_selected"])
	assert.Equal(t, 1, doc["stage_id"])

	raw, ok := env.backend.StageState(id, testStory, "1")
	require.True(t, ok)
	var stored map[string]any
	require.NoError(t, json.Unmarshal(raw, &stored))
	assert.Equal(t, map[string]any{"stage_id": 1.0, "marker": "sel_gal1", "galaxies_selected": 0.0}, stored)
}

func TestPutStageChecksManifest(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.signedIn(t)

	_, err := env.service.PutStage(ctx, sessionID, 2, map[string]any{"notes": "x"})
	assert.ErrorContains(t, err, "distance_estimate is required")

	_, err = env.service.PutStage(ctx, sessionID, 9, nil)
	assert.ErrorContains(t, err, "not declared")

	assert.Zero(t, env.backend.CountCalls(http.MethodPut))
}

func TestGetStageReplacesCachedState(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	id := env.signedIn(t)

	_, err := env.service.PutStage(ctx, sessionID, 2, map[string]any{"distance_estimate": 1.5, "local": true})
	require.NoError(t, err)
	env.backend.SetStageState(id, testStory, "2", `{"stage_id": 2, "distance_estimate": 3.25}`)

	result, err := env.service.GetStage(ctx, sessionID, 2)
	require.NoError(t, err)
	assert.True(t, result.Updated)
	assert.Equal(t, 3.25, result.Document["distance_estimate"])
	assert.NotContains(t, result.Document, "local", "fields not in the backend payload are dropped")

	sess, err := env.service.Session(ctx, sessionID)
	require.NoError(t, err)
	cached, ok := sess.Stage(testStory, 2)
	require.True(t, ok)
	assert.Equal(t, 3.25, cached["distance_estimate"])
}

func TestGetStageMissingKeepsCache(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.signedIn(t)

	result, err := env.service.GetStage(ctx, sessionID, 1)
	require.NoError(t, err)
	assert.False(t, result.Updated)
	assert.Equal(t, 1, result.Document["stage_id"])
}

func TestDeleteStageKeepsCache(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	id := env.signedIn(t)

	_, err := env.service.PutStage(ctx, sessionID, 1, map[string]any{"galaxies_selected": 3})
	require.NoError(t, err)

	deleted, err := env.service.DeleteStage(ctx, sessionID, 1)
	require.NoError(t, err)
	assert.True(t, deleted)
	_, ok := env.backend.StageState(id, testStory, strconv.Itoa(1))
	assert.False(t, ok)

	sess, err := env.service.Session(ctx, sessionID)
	require.NoError(t, err)
	cached, ok := sess.Stage(testStory, 1)
	require.True(t, ok)
	assert.Equal(t, 3.0, cached["galaxies_selected"])

	// A second delete finds nothing and is only logged.
	deleted, err = env.service.DeleteStage(ctx, sessionID, 1)
	require.NoError(t, err)
	assert.False(t, deleted)
}

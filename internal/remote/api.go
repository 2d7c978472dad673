package remote

import (
	"context"
	"net/http"

	"cosmicds/internal/state"
)

// StateAPI stores state back to the backend. Every story decides how its
// states are serialized, so each story package supplies its own
// implementation.
type StateAPI interface {
	PutStageState(ctx context.Context, global *state.GlobalState, local state.StoryState, component state.StageState) error
	PutStoryState(ctx context.Context, global *state.GlobalState, local state.StoryState) error
}

var _ StateAPI = (*JSONStateAPI)(nil)

// JSONStateAPI stores states as their plain JSON encoding. It serves stories
// whose state structs already match the backend's stored shape, and the
// runtime documents used by the CLI and MCP surfaces.
type JSONStateAPI struct {
	Client *Client
}

type storyPutRequest struct {
	Story state.StoryState `json:"story"`
}

func (a *JSONStateAPI) PutStageState(ctx context.Context, global *state.GlobalState, local state.StoryState, component state.StageState) error {
	c := a.Client
	status, err := c.do(ctx, http.MethodPut, stagePath(global, local, component), component, nil)
	if err != nil {
		return err
	}
	if !success(status) {
		c.log.Error().
			Int("status", status).
			Str("stage_id", component.StageKey()).
			Str("story_id", local.StoryKey()).
			Int("student_id", global.Student.ID).
			Msg("failed to store stage state")
		return nil
	}
	c.log.Info().Str("stage_id", component.StageKey()).Msg("stored stage state")
	return nil
}

func (a *JSONStateAPI) PutStoryState(ctx context.Context, global *state.GlobalState, local state.StoryState) error {
	c := a.Client
	status, err := c.do(ctx, http.MethodPut, storyPath(global, local), storyPutRequest{Story: local}, nil)
	if err != nil {
		return err
	}
	if !success(status) {
		c.log.Error().
			Int("status", status).
			Str("story_id", local.StoryKey()).
			Int("student_id", global.Student.ID).
			Msg("failed to store story state")
		return nil
	}
	c.log.Info().Str("story_id", local.StoryKey()).Msg("stored story state")
	return nil
}

package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"cosmicds/internal/state"
)

type stateResponse struct {
	State json.RawMessage `json:"state"`
}

type deleteResponse struct {
	Success bool `json:"success"`
}

func stagePath(global *state.GlobalState, local state.StoryState, component state.StageState) string {
	return endpoint("stage-state", strconv.Itoa(global.Student.ID), local.StoryKey(), component.StageKey())
}

// GetStageState fetches the stage addressed by (student, story, stage) and
// replaces *component with a value decoded from scratch. When the backend has
// no state, *component is left as it was and ok is false.
func GetStageState[T state.StageState](ctx context.Context, c *Client, global *state.GlobalState, local state.StoryState, component *T) (T, bool, error) {
	var zero T
	current := *component

	var resp stateResponse
	if _, err := c.do(ctx, http.MethodGet, stagePath(global, local, current), nil, &resp); err != nil {
		return zero, false, err
	}
	if isNull(resp.State) {
		c.log.Error().
			Str("stage_id", current.StageKey()).
			Str("story_id", local.StoryKey()).
			Int("student_id", global.Student.ID).
			Msg("failed to retrieve stage state")
		return zero, false, nil
	}

	var fresh T
	if err := json.Unmarshal(resp.State, &fresh); err != nil {
		return zero, false, fmt.Errorf("decoding stage state: %w", err)
	}
	*component = fresh

	c.log.Info().Str("stage_id", fresh.StageKey()).Msg("updated component state from database")
	return fresh, true, nil
}

// DeleteStageState removes the remote record only; the caller's component
// state is never touched. deleted is true only when the backend confirmed the
// removal.
func (c *Client) DeleteStageState(ctx context.Context, global *state.GlobalState, local state.StoryState, component state.StageState) (deleted bool, err error) {
	var resp deleteResponse
	status, err := c.do(ctx, http.MethodDelete, stagePath(global, local, component), nil, &resp)
	if err != nil {
		if isDecodeError(err) {
			c.log.Error().Err(err).Str("stage_id", component.StageKey()).Msg("malformed delete response")
			return false, nil
		}
		return false, err
	}

	if status != http.StatusOK {
		c.log.Error().
			Str("stage_id", component.StageKey()).
			Str("story_id", local.StoryKey()).
			Int("student_id", global.Student.ID).
			Msg("stage state did not exist in database")
		return false, nil
	}
	if !resp.Success {
		c.log.Error().
			Str("stage_id", component.StageKey()).
			Str("story_id", local.StoryKey()).
			Int("student_id", global.Student.ID).
			Msg("error deleting stage state")
		return false, nil
	}

	c.log.Info().Str("stage_id", component.StageKey()).Msg("deleted stage state")
	return true, nil
}

package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"cosmicds/internal/state"
)

// storyPayload is the shape of the "state" object of a story record. The
// backend may also carry an "app" object with global state; it is ignored
// because global state is never synchronized remotely.
type storyPayload struct {
	Story json.RawMessage `json:"story"`
}

func storyPath(global *state.GlobalState, local state.StoryState) string {
	return endpoint("story-state", strconv.Itoa(global.Student.ID), local.StoryKey())
}

// GetStoryState fetches the story record and replaces *local with a value
// decoded from its "story" object alone. Absent state leaves *local as it was.
func GetStoryState[T state.StoryState](ctx context.Context, c *Client, global *state.GlobalState, local *T) (T, bool, error) {
	var zero T
	current := *local

	var resp stateResponse
	if _, err := c.do(ctx, http.MethodGet, storyPath(global, current), nil, &resp); err != nil {
		return zero, false, err
	}
	if isNull(resp.State) {
		c.log.Error().
			Str("story_id", current.StoryKey()).
			Int("student_id", global.Student.ID).
			Msg("failed to retrieve story state")
		return zero, false, nil
	}

	var payload storyPayload
	if err := json.Unmarshal(resp.State, &payload); err != nil {
		return zero, false, fmt.Errorf("decoding story state: %w", err)
	}
	story := payload.Story
	if isNull(story) {
		story = json.RawMessage("{}")
	}

	var fresh T
	if err := json.Unmarshal(story, &fresh); err != nil {
		return zero, false, fmt.Errorf("decoding story state: %w", err)
	}
	*local = fresh

	c.log.Info().Str("story_id", current.StoryKey()).Msg("updated local state from database")
	return fresh, true, nil
}

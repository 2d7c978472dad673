package syncer

import (
	"context"
	"maps"

	"cosmicds/internal/remote"
	"cosmicds/internal/state"
	"cosmicds/internal/store"
)

type StoryResult struct {
	Document state.StoryDocument `json:"state"`
	Updated  bool                `json:"updated"`
}

func (s *Service) GetStory(ctx context.Context, sessionID string) (StoryResult, error) {
	var result StoryResult
	_, err := s.update(ctx, sessionID, func(sess *store.Session) error {
		if err := requireStudent(sess); err != nil {
			return err
		}
		local := sess.Story(s.story)

		_, ok, err := remote.GetStoryState(ctx, s.client, &sess.Global, &local)
		if err != nil {
			return err
		}
		if ok {
			sess.SetStory(s.story, local)
		}
		result = StoryResult{Document: local, Updated: ok}
		return nil
	})
	if err != nil {
		return StoryResult{}, err
	}
	return result, nil
}

func (s *Service) PutStory(ctx context.Context, sessionID string, values map[string]any) (state.StoryDocument, error) {
	var out state.StoryDocument
	_, err := s.update(ctx, sessionID, func(sess *store.Session) error {
		if err := requireStudent(sess); err != nil {
			return err
		}
		local := sess.Story(s.story)
		maps.Copy(local, values)
		local["story_id"] = s.story

		if err := s.api.PutStoryState(ctx, &sess.Global, local); err != nil {
			return err
		}
		sess.SetStory(s.story, local)
		out = local
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

package syncer

import (
	"context"
	"fmt"
	"maps"

	"cosmicds/internal/config"
	"cosmicds/internal/remote"
	"cosmicds/internal/state"
	"cosmicds/internal/store"
)

type StageResult struct {
	Document state.StageDocument `json:"state"`
	Updated  bool                `json:"updated"`
}

func (s *Service) declaredStage(stageID int) (*config.Stage, error) {
	if s.manifest == nil {
		return nil, nil
	}
	stage, ok := s.manifest.StageByID(stageID)
	if !ok {
		return nil, fmt.Errorf("stage %d is not declared in the %s manifest", stageID, s.story)
	}
	return stage, nil
}

// GetStage refreshes the stage's component state from the backend. When the
// backend has nothing stored, the cached document is returned unchanged with
// Updated false.
func (s *Service) GetStage(ctx context.Context, sessionID string, stageID int) (StageResult, error) {
	if _, err := s.declaredStage(stageID); err != nil {
		return StageResult{}, err
	}

	var result StageResult
	_, err := s.update(ctx, sessionID, func(sess *store.Session) error {
		if err := requireStudent(sess); err != nil {
			return err
		}
		local := sess.Story(s.story)
		component, _ := sess.Stage(s.story, stageID)

		_, ok, err := remote.GetStageState(ctx, s.client, &sess.Global, local, &component)
		if err != nil {
			return err
		}
		if ok {
			sess.SetStage(s.story, stageID, component)
		}
		result = StageResult{Document: component, Updated: ok}
		return nil
	})
	if err != nil {
		return StageResult{}, err
	}
	return result, nil
}

// PutStage merges values into the stage's component state and stores it on
// the backend. A stage seen for the first time starts from the manifest
// defaults.
func (s *Service) PutStage(ctx context.Context, sessionID string, stageID int, values map[string]any) (state.StageDocument, error) {
	decl, err := s.declaredStage(stageID)
	if err != nil {
		return nil, err
	}

	var out state.StageDocument
	_, err = s.update(ctx, sessionID, func(sess *store.Session) error {
		if err := requireStudent(sess); err != nil {
			return err
		}
		local := sess.Story(s.story)
		component, known := sess.Stage(s.story, stageID)
		if !known && decl != nil {
			maps.Copy(component, decl.Defaults())
		}
		maps.Copy(component, values)
		component["stage_id"] = stageID

		if decl != nil {
			if err := decl.Check(component); err != nil {
				return err
			}
		}
		if err := s.api.PutStageState(ctx, &sess.Global, local, component); err != nil {
			return err
		}
		sess.SetStage(s.story, stageID, component)
		out = component
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteStage removes the backend record and reports whether the backend
// confirmed it. The cached component state stays.
func (s *Service) DeleteStage(ctx context.Context, sessionID string, stageID int) (bool, error) {
	if _, err := s.declaredStage(stageID); err != nil {
		return false, err
	}

	sess, err := s.Session(ctx, sessionID)
	if err != nil {
		return false, fmt.Errorf("loading session: %w", err)
	}
	if err := requireStudent(sess); err != nil {
		return false, err
	}
	component, _ := sess.Stage(s.story, stageID)
	return s.client.DeleteStageState(ctx, &sess.Global, sess.Story(s.story), component)
}

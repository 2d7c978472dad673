package store

import (
	"encoding/json"
	"fmt"
	"time"

	"cosmicds/internal/state"
)

type Session struct {
	ID        string                         `json:"id"`
	Global    state.GlobalState              `json:"global"`
	Stories   map[string]state.StoryDocument `json:"stories"`
	Stages    map[string]state.StageDocument `json:"stages"`
	UpdatedAt time.Time                      `json:"updated_at"`
}

func NewSession(id string) *Session {
	s := &Session{
		ID:      id,
		Stories: map[string]state.StoryDocument{},
		Stages:  map[string]state.StageDocument{},
	}
	s.Global.ClearUser()
	return s
}

// Story returns a copy of the story's local state, addressed by storyID even
// when the stored document lacks a story_id.
func (s *Session) Story(storyID string) state.StoryDocument {
	doc, ok := s.Stories[storyID]
	if !ok {
		return state.NewStoryDocument(storyID)
	}
	doc = doc.Clone()
	if doc == nil {
		doc = state.StoryDocument{}
	}
	if doc.StoryKey() == "" {
		doc["story_id"] = storyID
	}
	return doc
}

func (s *Session) SetStory(storyID string, doc state.StoryDocument) {
	s.Stories[storyID] = doc
}

// Stage returns a copy of the stage's component state and whether it was
// stored before.
func (s *Session) Stage(storyID string, stageID int) (state.StageDocument, bool) {
	key := stageSlot(storyID, state.NewStageDocument(stageID).StageKey())
	doc, ok := s.Stages[key]
	if !ok {
		return state.NewStageDocument(stageID), false
	}
	doc = doc.Clone()
	if doc == nil {
		doc = state.StageDocument{}
	}
	if doc.StageKey() == "" {
		doc["stage_id"] = stageID
	}
	return doc, true
}

func (s *Session) SetStage(storyID string, stageID int, doc state.StageDocument) {
	s.Stages[stageSlot(storyID, state.NewStageDocument(stageID).StageKey())] = doc
}

func stageSlot(storyID, stageKey string) string {
	return storyID + "/" + stageKey
}

// EncodedSession is the column form shared by the sql stores.
type EncodedSession struct {
	Global  []byte
	Stories []byte
	Stages  []byte
}

func EncodeSession(s *Session) (EncodedSession, error) {
	global, err := json.Marshal(s.Global)
	if err != nil {
		return EncodedSession{}, fmt.Errorf("marshaling global state: %w", err)
	}
	stories, err := json.Marshal(s.Stories)
	if err != nil {
		return EncodedSession{}, fmt.Errorf("marshaling story states: %w", err)
	}
	stages, err := json.Marshal(s.Stages)
	if err != nil {
		return EncodedSession{}, fmt.Errorf("marshaling stage states: %w", err)
	}
	return EncodedSession{Global: global, Stories: stories, Stages: stages}, nil
}

func DecodeSession(id string, enc EncodedSession, updatedAt time.Time) (*Session, error) {
	s := NewSession(id)
	s.UpdatedAt = updatedAt
	if len(enc.Global) > 0 {
		if err := json.Unmarshal(enc.Global, &s.Global); err != nil {
			return nil, fmt.Errorf("unmarshaling global state: %w", err)
		}
	}
	if len(enc.Stories) > 0 {
		if err := json.Unmarshal(enc.Stories, &s.Stories); err != nil {
			return nil, fmt.Errorf("unmarshaling story states: %w", err)
		}
	}
	if len(enc.Stages) > 0 {
		if err := json.Unmarshal(enc.Stages, &s.Stages); err != nil {
			return nil, fmt.Errorf("unmarshaling stage states: %w", err)
		}
	}
	if s.Stories == nil {
		s.Stories = map[string]state.StoryDocument{}
	}
	if s.Stages == nil {
		s.Stages = map[string]state.StageDocument{}
	}
	return s, nil
}

package state

import (
	"encoding/json"
	"fmt"
	"maps"
	"strconv"
)

// StoryDocument is a story state whose fields are only known at runtime.
type StoryDocument map[string]any

func NewStoryDocument(storyID string) StoryDocument {
	return StoryDocument{"story_id": storyID}
}

func (d StoryDocument) StoryKey() string { return documentKey(d, "story_id") }

func (d StoryDocument) Clone() StoryDocument { return maps.Clone(d) }

// StageDocument is a stage state whose fields are only known at runtime.
type StageDocument map[string]any

func NewStageDocument(stageID int) StageDocument {
	return StageDocument{"stage_id": stageID}
}

func (d StageDocument) StageKey() string { return documentKey(d, "stage_id") }

func (d StageDocument) Clone() StageDocument { return maps.Clone(d) }

func documentKey(doc map[string]any, field string) string {
	switch v := doc[field].(type) {
	case nil:
		return ""
	case string:
		return v
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case json.Number:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}

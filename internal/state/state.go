// Package state holds the containers a UI session keeps for one student:
// the global student/classroom record, one local state per story and one
// component state per stage.
package state

import "strconv"

type Student struct {
	ID int `json:"id"`
}

type Classroom struct {
	ClassInfo map[string]any `json:"class_info"`
	Size      int            `json:"size"`
}

type GlobalState struct {
	Student   Student   `json:"student"`
	Classroom Classroom `json:"classroom"`
}

// ClearUser forgets the cached student and classroom.
func (g *GlobalState) ClearUser() {
	g.Student.ID = 0
	g.Classroom.ClassInfo = map[string]any{}
	g.Classroom.Size = 0
}

// StoryState is implemented by every per-story local state.
type StoryState interface {
	StoryKey() string
}

// StageState is implemented by every per-stage component state.
type StageState interface {
	StageKey() string
}

// BaseLocalState is meant to be embedded by concrete story states.
type BaseLocalState struct {
	StoryID string `json:"story_id"`
}

func (s BaseLocalState) StoryKey() string { return s.StoryID }

// BaseStageState is meant to be embedded by concrete stage states.
type BaseStageState struct {
	StageID int `json:"stage_id"`
}

func (s BaseStageState) StageKey() string { return strconv.Itoa(s.StageID) }

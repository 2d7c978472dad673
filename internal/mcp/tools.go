package mcp

import (
	"context"
	"fmt"
	"time"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"cosmicds/internal/config"
	"cosmicds/internal/state"
	"cosmicds/internal/store"
)

type EmptyInput struct{}

type CreateNewUserInput struct {
	ClassCode string `json:"class_code" jsonschema:"classroom code given by the teacher"`
}

type StageInput struct {
	StageID int `json:"stage_id" jsonschema:"stage number within the story"`
}

type PutStageInput struct {
	StageID int            `json:"stage_id" jsonschema:"stage number within the story"`
	Values  map[string]any `json:"values" jsonschema:"fields to merge into the stage state"`
}

type PutStoryInput struct {
	Values map[string]any `json:"values" jsonschema:"fields to merge into the story state"`
}

type UserExistsOutput struct {
	Exists bool `json:"exists"`
}

type GlobalOutput struct {
	StudentID int            `json:"student_id"`
	ClassInfo map[string]any `json:"class_info"`
	Size      int            `json:"size"`
}

type StageOutput struct {
	StageID int            `json:"stage_id"`
	Updated bool           `json:"updated"`
	State   map[string]any `json:"state"`
}

type StoryOutput struct {
	StoryID string         `json:"story_id"`
	Updated bool           `json:"updated"`
	State   map[string]any `json:"state"`
}

type DeleteStageOutput struct {
	StageID int  `json:"stage_id"`
	Deleted bool `json:"deleted"`
}

type SessionOutput struct {
	ID        string                    `json:"id"`
	Global    GlobalOutput              `json:"global"`
	Stories   map[string]map[string]any `json:"stories"`
	Stages    map[string]map[string]any `json:"stages"`
	UpdatedAt string                    `json:"updated_at,omitempty"`
}

type ManifestOutput struct {
	Version int           `json:"version"`
	Story   string        `json:"story"`
	Title   string        `json:"title,omitempty"`
	Stages  []StageSchema `json:"stages"`
}

type StageSchema struct {
	ID     int           `json:"id"`
	Name   string        `json:"name"`
	Fields []FieldSchema `json:"fields"`
}

type FieldSchema struct {
	Name     string   `json:"name"`
	Type     string   `json:"type"`
	Values   []string `json:"values,omitempty"`
	Default  string   `json:"default,omitempty"`
	Required bool     `json:"required,omitempty"`
}

func (s *Server) registerTools() {
	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "user_exists",
		Description: "Report whether the backend has a student record for the current user",
	}, s.handleUserExists)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "load_user_info",
		Description: "Load the student and classroom of the current user into the session",
	}, s.handleLoadUserInfo)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "create_new_user",
		Description: "Sign the current user up with a classroom code",
	}, s.handleCreateNewUser)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "clear_user",
		Description: "Forget the student and classroom held by the session",
	}, s.handleClearUser)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "get_stage_state",
		Description: "Refresh a stage's state from the backend",
	}, s.handleGetStageState)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "put_stage_state",
		Description: "Update a stage's state and store it on the backend",
	}, s.handlePutStageState)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "delete_stage_state",
		Description: "Delete a stage's stored state on the backend",
	}, s.handleDeleteStageState)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "get_story_state",
		Description: "Refresh the story state from the backend",
	}, s.handleGetStoryState)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "put_story_state",
		Description: "Update the story state and store it on the backend",
	}, s.handlePutStoryState)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "get_session",
		Description: "Return every state container cached in the session",
	}, s.handleGetSession)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "get_story_manifest",
		Description: "Return the story's stages and their fields",
	}, s.handleGetStoryManifest)
}

func (s *Server) handleUserExists(ctx context.Context, req *sdk.CallToolRequest, input EmptyInput) (*sdk.CallToolResult, UserExistsOutput, error) {
	exists, err := s.sync.UserExists(ctx, s.user)
	if err != nil {
		return nil, UserExistsOutput{}, err
	}
	return nil, UserExistsOutput{Exists: exists}, nil
}

func (s *Server) handleLoadUserInfo(ctx context.Context, req *sdk.CallToolRequest, input EmptyInput) (*sdk.CallToolResult, GlobalOutput, error) {
	global, err := s.sync.LoadUserInfo(ctx, s.session, s.user)
	if err != nil {
		return nil, GlobalOutput{}, err
	}
	return nil, globalOutput(global), nil
}

func (s *Server) handleCreateNewUser(ctx context.Context, req *sdk.CallToolRequest, input CreateNewUserInput) (*sdk.CallToolResult, GlobalOutput, error) {
	if input.ClassCode == "" {
		return nil, GlobalOutput{}, fmt.Errorf("class_code is required")
	}
	global, err := s.sync.CreateNewUser(ctx, s.session, s.user, input.ClassCode)
	if err != nil {
		return nil, GlobalOutput{}, err
	}
	return nil, globalOutput(global), nil
}

func (s *Server) handleClearUser(ctx context.Context, req *sdk.CallToolRequest, input EmptyInput) (*sdk.CallToolResult, GlobalOutput, error) {
	global, err := s.sync.ClearUser(ctx, s.session)
	if err != nil {
		return nil, GlobalOutput{}, err
	}
	return nil, globalOutput(global), nil
}

func (s *Server) handleGetStageState(ctx context.Context, req *sdk.CallToolRequest, input StageInput) (*sdk.CallToolResult, StageOutput, error) {
	if input.StageID <= 0 {
		return nil, StageOutput{}, fmt.Errorf("stage_id is required")
	}
	result, err := s.sync.GetStage(ctx, s.session, input.StageID)
	if err != nil {
		return nil, StageOutput{}, err
	}
	return nil, StageOutput{StageID: input.StageID, Updated: result.Updated, State: result.Document}, nil
}

func (s *Server) handlePutStageState(ctx context.Context, req *sdk.CallToolRequest, input PutStageInput) (*sdk.CallToolResult, StageOutput, error) {
	if input.StageID <= 0 {
		return nil, StageOutput{}, fmt.Errorf("stage_id is required")
	}
	doc, err := s.sync.PutStage(ctx, s.session, input.StageID, input.Values)
	if err != nil {
		return nil, StageOutput{}, err
	}
	return nil, StageOutput{StageID: input.StageID, Updated: true, State: doc}, nil
}

func (s *Server) handleDeleteStageState(ctx context.Context, req *sdk.CallToolRequest, input StageInput) (*sdk.CallToolResult, DeleteStageOutput, error) {
	if input.StageID <= 0 {
		return nil, DeleteStageOutput{}, fmt.Errorf("stage_id is required")
	}
	deleted, err := s.sync.DeleteStage(ctx, s.session, input.StageID)
	if err != nil {
		return nil, DeleteStageOutput{}, err
	}
	return nil, DeleteStageOutput{StageID: input.StageID, Deleted: deleted}, nil
}

func (s *Server) handleGetStoryState(ctx context.Context, req *sdk.CallToolRequest, input EmptyInput) (*sdk.CallToolResult, StoryOutput, error) {
	result, err := s.sync.GetStory(ctx, s.session)
	if err != nil {
		return nil, StoryOutput{}, err
	}
	return nil, StoryOutput{StoryID: s.sync.StoryName(), Updated: result.Updated, State: result.Document}, nil
}

func (s *Server) handlePutStoryState(ctx context.Context, req *sdk.CallToolRequest, input PutStoryInput) (*sdk.CallToolResult, StoryOutput, error) {
	doc, err := s.sync.PutStory(ctx, s.session, input.Values)
	if err != nil {
		return nil, StoryOutput{}, err
	}
	return nil, StoryOutput{StoryID: s.sync.StoryName(), Updated: true, State: doc}, nil
}

func (s *Server) handleGetSession(ctx context.Context, req *sdk.CallToolRequest, input EmptyInput) (*sdk.CallToolResult, SessionOutput, error) {
	sess, err := s.sync.Session(ctx, s.session)
	if err != nil {
		return nil, SessionOutput{}, err
	}
	return nil, sessionOutput(sess), nil
}

func (s *Server) handleGetStoryManifest(ctx context.Context, req *sdk.CallToolRequest, input EmptyInput) (*sdk.CallToolResult, ManifestOutput, error) {
	manifest := s.sync.Manifest()
	if manifest == nil {
		return nil, ManifestOutput{}, fmt.Errorf("no story manifest configured")
	}
	return nil, manifestOutput(manifest), nil
}

func globalOutput(global state.GlobalState) GlobalOutput {
	info := global.Classroom.ClassInfo
	if info == nil {
		info = map[string]any{}
	}
	return GlobalOutput{
		StudentID: global.Student.ID,
		ClassInfo: info,
		Size:      global.Classroom.Size,
	}
}

func sessionOutput(sess *store.Session) SessionOutput {
	out := SessionOutput{
		ID:      sess.ID,
		Global:  globalOutput(sess.Global),
		Stories: make(map[string]map[string]any, len(sess.Stories)),
		Stages:  make(map[string]map[string]any, len(sess.Stages)),
	}
	for key, doc := range sess.Stories {
		out.Stories[key] = doc.Clone()
	}
	for key, doc := range sess.Stages {
		out.Stages[key] = doc.Clone()
	}
	if !sess.UpdatedAt.IsZero() {
		out.UpdatedAt = sess.UpdatedAt.UTC().Format(time.RFC3339)
	}
	return out
}

func manifestOutput(manifest *config.StoryManifest) ManifestOutput {
	out := ManifestOutput{
		Version: manifest.Version,
		Story:   manifest.Story,
		Title:   manifest.Title,
		Stages:  make([]StageSchema, 0, len(manifest.Stages)),
	}
	for _, stage := range manifest.Stages {
		stageOut := StageSchema{
			ID:     stage.ID,
			Name:   stage.Name,
			Fields: make([]FieldSchema, 0, len(stage.Fields)),
		}
		for _, field := range stage.Fields {
			stageOut.Fields = append(stageOut.Fields, FieldSchema{
				Name:     field.Name,
				Type:     field.Type,
				Values:   field.Values,
				Default:  field.Default,
				Required: field.Required,
			})
		}
		out.Stages = append(out.Stages, stageOut)
	}
	return out
}

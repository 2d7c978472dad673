package validate

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"cosmicds/internal/config"
	"cosmicds/internal/store"
)

type Severity string

const (
	SeverityError Severity = "error"
	SeverityWarn  Severity = "warning"
)

const (
	codeManifestInvalid  = "manifest_invalid"
	codeManifestMismatch = "manifest_story_mismatch"
	codeNoManifest       = "manifest_missing"
	codeNoSecret         = "session_secret_missing"
	codeNoAPIKey         = "api_key_missing"
	codeUndeclaredStage  = "undeclared_stage"
	codeEnumInvalid      = "enum_value_invalid"
	codeMissingRequired  = "missing_required_field"
	codeTypeInvalid      = "field_type_invalid"
)

type Issue struct {
	Severity Severity
	Code     string
	Message  string
	Session  string
	Stage    string
}

type Report struct {
	Issues []Issue
}

// Project is what the checks run against. ManifestPath is already resolved;
// empty means no manifest is configured.
type Project struct {
	Config       *config.ProjectConfig
	ManifestPath string
	Env          config.Env
}

// SessionReader is the part of the session store the checks read.
type SessionReader interface {
	ListSessions(ctx context.Context) ([]store.SessionSummary, error)
	LoadSession(ctx context.Context, id string) (*store.Session, error)
}

// Run checks the project setup and, when sessions is not nil, every cached
// stage state against the story manifest.
func Run(ctx context.Context, p Project, sessions SessionReader) (*Report, error) {
	if p.Config == nil {
		return nil, fmt.Errorf("project config is required")
	}

	issues := make([]Issue, 0)
	issues = append(issues, validateEnv(p.Env)...)

	if p.ManifestPath == "" {
		issues = append(issues, Issue{
			Severity: SeverityWarn,
			Code:     codeNoManifest,
			Message:  "no story manifest configured; stage fields are not checked",
		})
		return &Report{Issues: issues}, nil
	}

	manifest, err := config.LoadStoryManifest(p.ManifestPath)
	if err != nil {
		issues = append(issues, Issue{Severity: SeverityError, Code: codeManifestInvalid, Message: err.Error()})
		return &Report{Issues: issues}, nil
	}
	if manifest.Story != p.Config.Story.Name {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Code:     codeManifestMismatch,
			Message:  fmt.Sprintf("story manifest %s is for %q, config names %q", p.ManifestPath, manifest.Story, p.Config.Story.Name),
		})
		return &Report{Issues: issues}, nil
	}

	if sessions == nil {
		return &Report{Issues: issues}, nil
	}
	summaries, err := sessions.ListSessions(ctx)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	for _, summary := range summaries {
		sess, err := sessions.LoadSession(ctx, summary.ID)
		if err != nil {
			return nil, fmt.Errorf("load session %s: %w", summary.ID, err)
		}
		issues = append(issues, validateSession(sess, manifest)...)
	}

	return &Report{Issues: issues}, nil
}

func validateEnv(env config.Env) []Issue {
	var issues []Issue
	if env.SessionSecret == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Code:     codeNoSecret,
			Message:  "SOLARA_SESSION_SECRET_KEY is not set; users cannot be identified",
		})
	}
	if env.APIKey == "" {
		issues = append(issues, Issue{
			Severity: SeverityWarn,
			Code:     codeNoAPIKey,
			Message:  "CDS_API_KEY is not set; requests will be unauthenticated",
		})
	}
	return issues
}

func validateSession(sess *store.Session, manifest *config.StoryManifest) []Issue {
	prefix := manifest.Story + "/"
	slots := make([]string, 0, len(sess.Stages))
	for slot := range sess.Stages {
		if strings.HasPrefix(slot, prefix) {
			slots = append(slots, slot)
		}
	}
	slices.Sort(slots)

	var issues []Issue
	for _, slot := range slots {
		key := strings.TrimPrefix(slot, prefix)
		id, err := strconv.Atoi(key)
		stage, ok := manifest.StageByID(id)
		if err != nil || !ok {
			issues = append(issues, Issue{
				Severity: SeverityWarn,
				Code:     codeUndeclaredStage,
				Message:  "cached state for a stage the manifest does not declare",
				Session:  sess.ID,
				Stage:    key,
			})
			continue
		}
		issues = append(issues, validateStage(sess.ID, key, stage, sess.Stages[slot])...)
	}
	return issues
}

func validateStage(sessionID, key string, stage *config.Stage, doc map[string]any) []Issue {
	var issues []Issue
	for _, field := range stage.Fields {
		value, ok := doc[field.Name]
		if !ok || value == nil {
			if field.Required {
				issues = append(issues, Issue{
					Severity: SeverityError,
					Code:     codeMissingRequired,
					Message:  fmt.Sprintf("missing required field: %s", field.Name),
					Session:  sessionID,
					Stage:    key,
				})
			}
			continue
		}
		if err := field.Check(value); err != nil {
			code := codeTypeInvalid
			if strings.EqualFold(field.Type, "enum") {
				code = codeEnumInvalid
			}
			issues = append(issues, Issue{
				Severity: SeverityError,
				Code:     code,
				Message:  err.Error(),
				Session:  sessionID,
				Stage:    key,
			})
		}
	}
	return issues
}

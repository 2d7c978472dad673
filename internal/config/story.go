package config

import (
	"encoding/json"
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// StoryManifest declares the stages of a story and the fields each stage
// state carries.
type StoryManifest struct {
	Version int     `yaml:"version"`
	Story   string  `yaml:"story"`
	Title   string  `yaml:"title"`
	Stages  []Stage `yaml:"stages"`

	stageIndex map[int]*Stage
}

type Stage struct {
	ID     int     `yaml:"id"`
	Name   string  `yaml:"name"`
	Fields []Field `yaml:"fields"`
}

type Field struct {
	Name     string   `yaml:"name"`
	Type     string   `yaml:"type"`
	Values   []string `yaml:"values"`
	Default  string   `yaml:"default"`
	Required bool     `yaml:"required"`
}

var fieldTypes = []string{"int", "float", "string", "bool", "enum", "json"}

func LoadStoryManifest(path string) (*StoryManifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("loading story manifest: %w", err)
	}

	var manifest StoryManifest
	if err := yaml.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("loading story manifest: %w", err)
	}

	if err := validateStoryManifest(&manifest); err != nil {
		return nil, fmt.Errorf("loading story manifest: %w", err)
	}

	manifest.stageIndex = make(map[int]*Stage, len(manifest.Stages))
	for i := range manifest.Stages {
		stage := &manifest.Stages[i]
		manifest.stageIndex[stage.ID] = stage
	}

	return &manifest, nil
}

func validateStoryManifest(m *StoryManifest) error {
	if m.Version != 1 {
		return fmt.Errorf("unsupported version: %d", m.Version)
	}
	if strings.TrimSpace(m.Story) == "" {
		return fmt.Errorf("story is required")
	}
	if len(m.Stages) == 0 {
		return fmt.Errorf("at least one stage is required")
	}

	ids := make(map[int]struct{})
	names := make(map[string]struct{})
	for i, stage := range m.Stages {
		if strings.TrimSpace(stage.Name) == "" {
			return fmt.Errorf("stage %d name is required", i)
		}
		if stage.ID <= 0 {
			return fmt.Errorf("stage %s id must be positive", stage.Name)
		}
		if _, exists := ids[stage.ID]; exists {
			return fmt.Errorf("duplicate stage id: %d", stage.ID)
		}
		ids[stage.ID] = struct{}{}
		key := strings.ToLower(stage.Name)
		if _, exists := names[key]; exists {
			return fmt.Errorf("duplicate stage name: %s", stage.Name)
		}
		names[key] = struct{}{}

		fieldNames := make(map[string]struct{})
		for _, field := range stage.Fields {
			name := strings.TrimSpace(field.Name)
			if name == "" {
				return fmt.Errorf("stage %s has field with empty name", stage.Name)
			}
			if name == "stage_id" {
				return fmt.Errorf("stage %s declares reserved field stage_id", stage.Name)
			}
			if _, exists := fieldNames[name]; exists {
				return fmt.Errorf("stage %s has duplicate field: %s", stage.Name, field.Name)
			}
			fieldNames[name] = struct{}{}
			if !slices.Contains(fieldTypes, strings.ToLower(field.Type)) {
				return fmt.Errorf("stage %s field %s has unknown type: %q", stage.Name, field.Name, field.Type)
			}
			if strings.EqualFold(field.Type, "enum") && len(field.Values) == 0 {
				return fmt.Errorf("stage %s field %s enum has no values", stage.Name, field.Name)
			}
			if field.Default != "" {
				if _, err := field.Parse(field.Default); err != nil {
					return fmt.Errorf("stage %s field %s default: %w", stage.Name, field.Name, err)
				}
			}
		}
	}

	return nil
}

func (m *StoryManifest) StageByID(id int) (*Stage, bool) {
	if m == nil {
		return nil, false
	}
	stage, ok := m.stageIndex[id]
	return stage, ok
}

func (s *Stage) FieldByName(name string) (*Field, bool) {
	for i := range s.Fields {
		if s.Fields[i].Name == name {
			return &s.Fields[i], true
		}
	}
	return nil, false
}

// Defaults returns the parsed default of every field that declares one.
func (s *Stage) Defaults() map[string]any {
	out := make(map[string]any)
	for _, field := range s.Fields {
		if field.Default == "" {
			continue
		}
		value, err := field.Parse(field.Default)
		if err != nil {
			continue
		}
		out[field.Name] = value
	}
	return out
}

// Check reports required fields missing from doc and values of the wrong
// type. Keys the manifest does not declare are allowed.
func (s *Stage) Check(doc map[string]any) error {
	for _, field := range s.Fields {
		value, ok := doc[field.Name]
		if !ok || value == nil {
			if field.Required {
				return fmt.Errorf("stage %s: field %s is required", s.Name, field.Name)
			}
			continue
		}
		if err := field.Check(value); err != nil {
			return fmt.Errorf("stage %s: %w", s.Name, err)
		}
	}
	return nil
}

// Parse converts a raw command-line value to the field's type.
func (f *Field) Parse(raw string) (any, error) {
	switch strings.ToLower(f.Type) {
	case "int":
		v, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil {
			return nil, fmt.Errorf("field %s: %q is not an int", f.Name, raw)
		}
		return v, nil
	case "float":
		v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return nil, fmt.Errorf("field %s: %q is not a float", f.Name, raw)
		}
		return v, nil
	case "bool":
		v, err := strconv.ParseBool(strings.TrimSpace(raw))
		if err != nil {
			return nil, fmt.Errorf("field %s: %q is not a bool", f.Name, raw)
		}
		return v, nil
	case "enum":
		if !slices.Contains(f.Values, raw) {
			return nil, fmt.Errorf("field %s: %q is not one of %s", f.Name, raw, strings.Join(f.Values, ", "))
		}
		return raw, nil
	case "json":
		var v any
		if err := json.Unmarshal([]byte(raw), &v); err != nil {
			return nil, fmt.Errorf("field %s: invalid json: %w", f.Name, err)
		}
		return v, nil
	default:
		return raw, nil
	}
}

// Check reports whether value has the field's type.
func (f *Field) Check(value any) error {
	switch strings.ToLower(f.Type) {
	case "int":
		switch v := value.(type) {
		case int, int64:
			return nil
		case float64:
			if v == float64(int64(v)) {
				return nil
			}
		}
		return fmt.Errorf("field %s must be an int", f.Name)
	case "float":
		switch value.(type) {
		case int, int64, float64:
			return nil
		}
		return fmt.Errorf("field %s must be a number", f.Name)
	case "bool":
		if _, ok := value.(bool); !ok {
			return fmt.Errorf("field %s must be a bool", f.Name)
		}
	case "string":
		if _, ok := value.(string); !ok {
			return fmt.Errorf("field %s must be a string", f.Name)
		}
	case "enum":
		s, ok := value.(string)
		if !ok || !slices.Contains(f.Values, s) {
			return fmt.Errorf("field %s must be one of %s", f.Name, strings.Join(f.Values, ", "))
		}
	}
	return nil
}

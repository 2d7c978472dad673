package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultAPIURL     = "https://api.cosmicds.cfa.harvard.edu"
	DefaultSessionDSN = "sqlite://.cosmicds/session.db"
)

type ProjectConfig struct {
	Project string        `yaml:"project"`
	Version int           `yaml:"version"`
	API     APIConfig     `yaml:"api"`
	Session SessionConfig `yaml:"session"`
	Story   StoryConfig   `yaml:"story"`
	Logging LoggingConfig `yaml:"logging"`
}

type APIConfig struct {
	URL           string        `yaml:"url"`
	Timeout       time.Duration `yaml:"timeout"`
	SignUpConfirm ConfirmConfig `yaml:"signup_confirm"`
}

// ConfirmConfig turns on polling for a new student after sign-up. Leave
// attempts at zero for backends with read-after-write consistency.
type ConfirmConfig struct {
	Attempts        int           `yaml:"attempts"`
	InitialInterval time.Duration `yaml:"initial_interval"`
}

type SessionConfig struct {
	DSN string `yaml:"dsn"`
}

type StoryConfig struct {
	Name     string `yaml:"name"`
	Manifest string `yaml:"manifest"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Pretty bool   `yaml:"pretty"`
}

func LoadProjectConfig(path string) (*ProjectConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("loading project config: %w", err)
	}

	var cfg ProjectConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("loading project config: %w", err)
	}

	applyDefaults(&cfg)
	if err := validateProjectConfig(&cfg); err != nil {
		return nil, fmt.Errorf("loading project config: %w", err)
	}

	return &cfg, nil
}

// ApplyEnv lets the environment override the file.
func (c *ProjectConfig) ApplyEnv(env Env) {
	if strings.TrimSpace(env.APIURL) != "" {
		c.API.URL = strings.TrimSpace(env.APIURL)
	}
	if strings.TrimSpace(env.LogLevel) != "" {
		c.Logging.Level = strings.TrimSpace(env.LogLevel)
	}
}

func applyDefaults(cfg *ProjectConfig) {
	if strings.TrimSpace(cfg.API.URL) == "" {
		cfg.API.URL = DefaultAPIURL
	}
	if strings.TrimSpace(cfg.Session.DSN) == "" {
		cfg.Session.DSN = DefaultSessionDSN
	}
}

func validateProjectConfig(cfg *ProjectConfig) error {
	if strings.TrimSpace(cfg.Project) == "" {
		return fmt.Errorf("project name is required")
	}
	if cfg.Version != 1 {
		return fmt.Errorf("unsupported version: %d", cfg.Version)
	}
	if !strings.HasPrefix(cfg.API.URL, "http://") && !strings.HasPrefix(cfg.API.URL, "https://") {
		return fmt.Errorf("api url must be http or https: %s", cfg.API.URL)
	}
	if cfg.API.Timeout < 0 {
		return fmt.Errorf("api timeout must not be negative")
	}
	if cfg.API.SignUpConfirm.Attempts < 0 {
		return fmt.Errorf("signup_confirm attempts must not be negative")
	}
	if cfg.API.SignUpConfirm.InitialInterval < 0 {
		return fmt.Errorf("signup_confirm initial_interval must not be negative")
	}
	if strings.TrimSpace(cfg.Story.Name) == "" {
		return fmt.Errorf("story name is required")
	}
	if strings.Contains(cfg.Story.Name, "/") {
		return fmt.Errorf("story name must not contain '/': %s", cfg.Story.Name)
	}

	switch SessionDriver(cfg.Session.DSN) {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("unsupported session dsn: %s", cfg.Session.DSN)
	}

	return nil
}

// SessionDriver names the store backing dsn, or "" when it is not recognised.
func SessionDriver(dsn string) string {
	switch {
	case strings.HasPrefix(dsn, "sqlite://"):
		return "sqlite"
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		return "postgres"
	default:
		return ""
	}
}

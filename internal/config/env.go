package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Env holds the secrets and overrides read from the process environment.
type Env struct {
	APIKey        string `env:"CDS_API_KEY"`
	SessionSecret string `env:"SOLARA_SESSION_SECRET_KEY"`
	APIURL        string `env:"CDS_API_URL"`
	LogLevel      string `env:"CDS_LOG_LEVEL"`
}

func LoadEnv() (Env, error) {
	var e Env
	if err := env.Parse(&e); err != nil {
		return Env{}, fmt.Errorf("parse env: %w", err)
	}
	return e, nil
}

// LoadDotEnv loads path into the environment without overriding variables
// that are already set. A missing file is not an error.
func LoadDotEnv(path string) error {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("loading %s: %w", path, err)
	}
	return nil
}

// RequireSessionSecret fails when the identity hash secret is missing.
func (e Env) RequireSessionSecret() error {
	if e.SessionSecret == "" {
		return fmt.Errorf("SOLARA_SESSION_SECRET_KEY is required")
	}
	return nil
}

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

const minimalConfig = "project: test\nversion: 1\nstory:\n  name: hubbles_law\n"

func TestLoadProjectConfig(t *testing.T) {
	t.Run("valid config loads", func(t *testing.T) {
		cfg, err := LoadProjectConfig(filepath.Join("testdata", "valid_config.yaml"))
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if cfg.Project != "hubbles-law" {
			t.Fatalf("expected project name, got %q", cfg.Project)
		}
		if cfg.API.Timeout != 30*time.Second {
			t.Fatalf("expected 30s timeout, got %v", cfg.API.Timeout)
		}
		if cfg.API.SignUpConfirm.Attempts != 3 || cfg.API.SignUpConfirm.InitialInterval != 250*time.Millisecond {
			t.Fatalf("unexpected signup_confirm: %+v", cfg.API.SignUpConfirm)
		}
		if cfg.Story.Manifest != "story.yaml" {
			t.Fatalf("expected manifest path, got %q", cfg.Story.Manifest)
		}
	})

	t.Run("defaults applied", func(t *testing.T) {
		cfg, err := LoadProjectConfig(writeTempConfig(t, minimalConfig))
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if cfg.API.URL != DefaultAPIURL {
			t.Fatalf("expected default api url, got %q", cfg.API.URL)
		}
		if cfg.Session.DSN != DefaultSessionDSN {
			t.Fatalf("expected default dsn, got %q", cfg.Session.DSN)
		}
		if cfg.API.SignUpConfirm.Attempts != 0 {
			t.Fatalf("expected confirmation off by default")
		}
	})

	t.Run("missing project name", func(t *testing.T) {
		path := writeTempConfig(t, "version: 1\nstory:\n  name: hubbles_law\n")
		if _, err := LoadProjectConfig(path); err == nil {
			t.Fatalf("expected error")
		}
	})

	t.Run("unsupported version", func(t *testing.T) {
		path := writeTempConfig(t, "project: test\nversion: 2\nstory:\n  name: hubbles_law\n")
		if _, err := LoadProjectConfig(path); err == nil {
			t.Fatalf("expected error")
		}
	})

	t.Run("missing story name", func(t *testing.T) {
		path := writeTempConfig(t, "project: test\nversion: 1\n")
		if _, err := LoadProjectConfig(path); err == nil {
			t.Fatalf("expected error")
		}
	})

	t.Run("story name with slash", func(t *testing.T) {
		path := writeTempConfig(t, "project: test\nversion: 1\nstory:\n  name: a/b\n")
		if _, err := LoadProjectConfig(path); err == nil {
			t.Fatalf("expected error")
		}
	})

	t.Run("non http api url", func(t *testing.T) {
		path := writeTempConfig(t, minimalConfig+"api:\n  url: ftp://example.com\n")
		if _, err := LoadProjectConfig(path); err == nil {
			t.Fatalf("expected error")
		}
	})

	t.Run("negative confirm attempts", func(t *testing.T) {
		path := writeTempConfig(t, minimalConfig+"api:\n  signup_confirm:\n    attempts: -1\n")
		if _, err := LoadProjectConfig(path); err == nil {
			t.Fatalf("expected error")
		}
	})

	t.Run("unknown session dsn", func(t *testing.T) {
		path := writeTempConfig(t, minimalConfig+"session:\n  dsn: mysql://localhost/db\n")
		if _, err := LoadProjectConfig(path); err == nil {
			t.Fatalf("expected error")
		}
	})

	t.Run("file not found", func(t *testing.T) {
		if _, err := LoadProjectConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
			t.Fatalf("expected error")
		}
	})

	t.Run("invalid yaml", func(t *testing.T) {
		path := writeTempConfig(t, "project: [\n")
		if _, err := LoadProjectConfig(path); err == nil {
			t.Fatalf("expected error")
		}
	})
}

func TestApplyEnv(t *testing.T) {
	cfg, err := LoadProjectConfig(writeTempConfig(t, minimalConfig))
	if err != nil {
		t.Fatalf("loading config: %v", err)
	}

	cfg.ApplyEnv(Env{})
	if cfg.API.URL != DefaultAPIURL {
		t.Fatalf("empty env must not override, got %q", cfg.API.URL)
	}

	cfg.ApplyEnv(Env{APIURL: " http://localhost:8080 ", LogLevel: "debug"})
	if cfg.API.URL != "http://localhost:8080" {
		t.Fatalf("expected env api url, got %q", cfg.API.URL)
	}
	if cfg.Logging.Level != "debug" {
		t.Fatalf("expected env log level, got %q", cfg.Logging.Level)
	}
}

func TestSessionDriver(t *testing.T) {
	cases := map[string]string{
		"sqlite://:memory:":               "sqlite",
		"postgres://localhost/cosmicds":   "postgres",
		"postgresql://localhost/cosmicds": "postgres",
		"bolt://localhost":                "",
	}
	for dsn, want := range cases {
		if got := SessionDriver(dsn); got != want {
			t.Fatalf("SessionDriver(%q) = %q, want %q", dsn, got, want)
		}
	}
}

func writeTempConfig(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("writing temp config: %v", err)
	}
	return path
}

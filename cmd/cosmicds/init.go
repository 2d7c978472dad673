package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"cosmicds/internal/config"
)

func initCmd() *cobra.Command {
	var storyName string
	var projectName string
	var dir string
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Scaffold cosmicds.yaml and a story manifest",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(storyName) == "" {
				return fmt.Errorf("--story is required")
			}
			if projectName == "" {
				projectName = strings.ReplaceAll(storyName, "_", "-")
			}
			if err := runInit(dir, projectName, storyName); err != nil {
				return err
			}
			cmd.Printf("Wrote %s and %s\n", filepath.Join(dir, "cosmicds.yaml"), filepath.Join(dir, "story.yaml"))
			return nil
		},
	}
	cmd.Flags().StringVar(&storyName, "story", "", "Story name, e.g. hubbles_law")
	cmd.Flags().StringVar(&projectName, "project", "", "Project name (defaults to the story name)")
	cmd.Flags().StringVar(&dir, "dir", ".", "Directory to write into")
	return cmd
}

func runInit(dir, projectName, storyName string) error {
	configPath := filepath.Join(dir, "cosmicds.yaml")
	manifestPath := filepath.Join(dir, "story.yaml")
	if _, err := os.Stat(configPath); err == nil {
		return fmt.Errorf("%s already exists", configPath)
	}
	if _, err := os.Stat(manifestPath); err == nil {
		return fmt.Errorf("%s already exists", manifestPath)
	}

	configContents := fmt.Sprintf(`project: %s
version: 1

api:
  url: %s
  timeout: 30s
  signup_confirm:
    attempts: 0
    initial_interval: 250ms

session:
  dsn: %s

story:
  name: %s
  manifest: story.yaml

logging:
  level: info
  pretty: false
`, projectName, config.DefaultAPIURL, config.DefaultSessionDSN, storyName)

	manifestContents := fmt.Sprintf(`version: 1
story: %s
stages:
  - id: 1
    name: Introduction
    fields:
      - { name: marker, type: string }
`, storyName)

	if err := os.WriteFile(configPath, []byte(configContents), 0o600); err != nil {
		return fmt.Errorf("writing %s: %w", configPath, err)
	}
	if err := os.WriteFile(manifestPath, []byte(manifestContents), 0o600); err != nil {
		return fmt.Errorf("writing %s: %w", manifestPath, err)
	}
	return nil
}

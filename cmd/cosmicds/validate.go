package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"cosmicds/internal/validate"
)

func validateCmd(flags *globalFlags) *cobra.Command {
	var skipSessions bool
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check the project config, the story manifest and cached session state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(cmd.OutOrStdout(), flags.configPath, !skipSessions)
		},
	}
	cmd.Flags().BoolVar(&skipSessions, "skip-sessions", false, "Do not open the session store")
	return cmd
}

func runValidate(out io.Writer, configPath string, checkSessions bool) error {
	ctx := context.Background()

	cfg, env, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	project := validate.Project{
		Config:       cfg,
		ManifestPath: manifestPath(configPath, cfg.Story.Manifest),
		Env:          env,
	}

	var sessions validate.SessionReader
	if checkSessions {
		st, err := openStore(ctx, cfg.Session.DSN)
		if err != nil {
			return err
		}
		defer st.Close(ctx)
		sessions = st
	}

	report, err := validate.Run(ctx, project, sessions)
	if err != nil {
		return err
	}

	var errorIssues []validate.Issue
	var warnIssues []validate.Issue
	for _, issue := range report.Issues {
		switch issue.Severity {
		case validate.SeverityError:
			errorIssues = append(errorIssues, issue)
		case validate.SeverityWarn:
			warnIssues = append(warnIssues, issue)
		}
	}

	if len(errorIssues) == 0 && len(warnIssues) == 0 {
		fmt.Fprintln(out, "No issues found.")
		return nil
	}
	if len(errorIssues) > 0 {
		fmt.Fprintf(out, "Errors (%d):\n", len(errorIssues))
		printIssues(out, errorIssues)
	}
	if len(warnIssues) > 0 {
		if len(errorIssues) > 0 {
			fmt.Fprintln(out, "")
		}
		fmt.Fprintf(out, "Warnings (%d):\n", len(warnIssues))
		printIssues(out, warnIssues)
	}

	if len(errorIssues) > 0 {
		return fmt.Errorf("validation found errors")
	}
	return nil
}

func printIssues(out io.Writer, issues []validate.Issue) {
	for _, issue := range issues {
		location := "project"
		if issue.Session != "" {
			location = fmt.Sprintf("session %s", issue.Session)
			if issue.Stage != "" {
				location = fmt.Sprintf("%s stage %s", location, issue.Stage)
			}
		}
		fmt.Fprintf(out, "  - %s: %s (%s)\n", location, issue.Message, issue.Code)
	}
}

package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func sessionCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Inspect and clean up stored sessions",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the state containers cached in the session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(flags, func(ctx context.Context, a *app) error {
				sess, err := a.service.Session(ctx, flags.sessionID)
				if err != nil {
					return err
				}
				return printJSON(cmd, sess)
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List stored sessions, most recent first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(flags, func(ctx context.Context, a *app) error {
				summaries, err := a.service.ListSessions(ctx)
				if err != nil {
					return err
				}
				if len(summaries) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No sessions.")
					return nil
				}
				for _, s := range summaries {
					fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", s.ID, s.UpdatedAt.Local().Format(time.RFC3339))
				}
				return nil
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "drop",
		Short: "Delete the session from the store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(flags, func(ctx context.Context, a *app) error {
				return a.service.DropSession(ctx, flags.sessionID)
			})
		},
	})
	cmd.AddCommand(sessionPruneCmd(flags))
	return cmd
}

func sessionPruneCmd(flags *globalFlags) *cobra.Command {
	var olderThan time.Duration
	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete sessions not used within --older-than",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(flags, func(ctx context.Context, a *app) error {
				removed, err := a.service.PruneSessions(ctx, olderThan)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %d session(s).\n", removed)
				return nil
			})
		},
	}
	cmd.Flags().DurationVar(&olderThan, "older-than", 30*24*time.Hour, "Maximum session age")
	return cmd
}

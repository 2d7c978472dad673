package main

import (
	"context"

	"github.com/spf13/cobra"
)

func storyCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "story",
		Short: "Sync the story state with the backend",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "get",
		Short: "Refresh the story state from the backend",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(flags, func(ctx context.Context, a *app) error {
				result, err := a.service.GetStory(ctx, flags.sessionID)
				if err != nil {
					return err
				}
				return printJSON(cmd, result)
			})
		},
	})
	cmd.AddCommand(storyPutCmd(flags))
	return cmd
}

func storyPutCmd(flags *globalFlags) *cobra.Command {
	var sets []string
	cmd := &cobra.Command{
		Use:   "put",
		Short: "Update the story state and store it on the backend",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			values, err := parseAssignments(nil, sets)
			if err != nil {
				return err
			}
			return withApp(flags, func(ctx context.Context, a *app) error {
				doc, err := a.service.PutStory(ctx, flags.sessionID, values)
				if err != nil {
					return err
				}
				return printJSON(cmd, doc)
			})
		},
	}
	cmd.Flags().StringArrayVar(&sets, "set", nil, "Field assignment as key=value (repeatable)")
	return cmd
}

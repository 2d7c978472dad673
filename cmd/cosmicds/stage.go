package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"cosmicds/internal/config"
)

func stageCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stage",
		Short: "Sync one stage's state with the backend",
	}
	cmd.AddCommand(stageGetCmd(flags))
	cmd.AddCommand(stagePutCmd(flags))
	cmd.AddCommand(stageDeleteCmd(flags))
	return cmd
}

func parseStageID(arg string) (int, error) {
	id, err := strconv.Atoi(arg)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid stage id %q", arg)
	}
	return id, nil
}

func stageGetCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "get <stage-id>",
		Short: "Refresh a stage's state from the backend",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			stageID, err := parseStageID(args[0])
			if err != nil {
				return err
			}
			return withApp(flags, func(ctx context.Context, a *app) error {
				result, err := a.service.GetStage(ctx, flags.sessionID, stageID)
				if err != nil {
					return err
				}
				return printJSON(cmd, result)
			})
		},
	}
}

func stagePutCmd(flags *globalFlags) *cobra.Command {
	var sets []string
	cmd := &cobra.Command{
		Use:   "put <stage-id>",
		Short: "Update a stage's state and store it on the backend",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			stageID, err := parseStageID(args[0])
			if err != nil {
				return err
			}
			return withApp(flags, func(ctx context.Context, a *app) error {
				var stage *config.Stage
				if manifest := a.service.Manifest(); manifest != nil {
					stage, _ = manifest.StageByID(stageID)
				}
				values, err := parseAssignments(stage, sets)
				if err != nil {
					return err
				}
				doc, err := a.service.PutStage(ctx, flags.sessionID, stageID, values)
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

func stageDeleteCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <stage-id>",
		Short: "Delete a stage's stored state on the backend",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			stageID, err := parseStageID(args[0])
			if err != nil {
				return err
			}
			return withApp(flags, func(ctx context.Context, a *app) error {
				deleted, err := a.service.DeleteStage(ctx, flags.sessionID, stageID)
				if err != nil {
					return err
				}
				return printJSON(cmd, map[string]any{"stage_id": stageID, "deleted": deleted})
			})
		},
	}
}

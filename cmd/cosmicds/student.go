package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func studentCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "student",
		Short: "Look up, load, create, or clear the session's student",
	}
	cmd.AddCommand(studentExistsCmd(flags))
	cmd.AddCommand(studentLoadCmd(flags))
	cmd.AddCommand(studentCreateCmd(flags))
	cmd.AddCommand(studentClearCmd(flags))
	return cmd
}

func studentExistsCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "exists",
		Short: "Report whether the backend knows the user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(flags, func(ctx context.Context, a *app) error {
				user, err := a.userInfo(flags)
				if err != nil {
					return err
				}
				exists, err := a.service.UserExists(ctx, user)
				if err != nil {
					return err
				}
				return printJSON(cmd, map[string]bool{"exists": exists})
			})
		},
	}
}

func studentLoadCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "load",
		Short: "Load the user's student and classroom into the session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(flags, func(ctx context.Context, a *app) error {
				user, err := a.userInfo(flags)
				if err != nil {
					return err
				}
				global, err := a.service.LoadUserInfo(ctx, flags.sessionID, user)
				if err != nil {
					return err
				}
				return printJSON(cmd, global)
			})
		},
	}
}

func studentCreateCmd(flags *globalFlags) *cobra.Command {
	var classCode string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Sign the user up with a classroom code",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(classCode) == "" {
				return fmt.Errorf("--class-code is required")
			}
			return withApp(flags, func(ctx context.Context, a *app) error {
				user, err := a.userInfo(flags)
				if err != nil {
					return err
				}
				global, err := a.service.CreateNewUser(ctx, flags.sessionID, user, strings.TrimSpace(classCode))
				if err != nil {
					return err
				}
				return printJSON(cmd, global)
			})
		},
	}
	cmd.Flags().StringVar(&classCode, "class-code", "", "Classroom code given by the teacher")
	return cmd
}

func studentClearCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Forget the session's student and classroom",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(flags, func(ctx context.Context, a *app) error {
				global, err := a.service.ClearUser(ctx, flags.sessionID)
				if err != nil {
					return err
				}
				return printJSON(cmd, global)
			})
		},
	}
}

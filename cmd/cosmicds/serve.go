package main

import (
	"context"

	"github.com/google/uuid"
	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"

	"cosmicds/internal/logging"
	"cosmicds/internal/mcp"
)

func serveCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server over stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sessionID := flags.sessionID
			if !cmd.Flags().Changed("session") {
				sessionID = uuid.NewString()
			}
			return runServe(flags, sessionID)
		},
	}
	return cmd
}

func runServe(flags *globalFlags, sessionID string) error {
	return withApp(flags, func(ctx context.Context, a *app) error {
		user, err := a.userInfo(flags)
		if err != nil {
			return err
		}
		log := logging.Component("serve")
		log.Info().
			Str("session", sessionID).
			Str("story_id", a.service.StoryName()).
			Msg("serving MCP over stdio")

		server := mcp.NewServer(a.service, sessionID, user, version)
		return server.Run(ctx, &sdk.StdioTransport{})
	})
}

package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// version is stamped at link time: -ldflags "-X main.version=v1.2.3".
var version = "0.0.0-unreleased"

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show the cosmicds client build",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "cosmicds %s\n", version)
			return err
		},
	}
}

package main

import (
	"os"

	"github.com/spf13/cobra"
)

// globalFlags are shared by every command that touches a session.
type globalFlags struct {
	configPath string
	sessionID  string
	email      string
	name       string
	idToken    string
}

func main() {
	flags := &globalFlags{}
	root := &cobra.Command{
		Use:          "cosmicds",
		Short:        "Sync student progress with the Cosmic Data Stories backend",
		SilenceUsage: true,
	}
	root.Version = version
	root.SetVersionTemplate("{{.Version}}\n")

	pf := root.PersistentFlags()
	pf.StringVar(&flags.configPath, "config", "cosmicds.yaml", "Project config file")
	pf.StringVar(&flags.sessionID, "session", "default", "Session id")
	pf.StringVar(&flags.email, "email", "", "User email")
	pf.StringVar(&flags.name, "name", "", "User name, used when no email is given")
	pf.StringVar(&flags.idToken, "id-token", "", "OIDC ID token carrying the user's email and name")

	root.AddCommand(initCmd())
	root.AddCommand(validateCmd(flags))
	root.AddCommand(studentCmd(flags))
	root.AddCommand(stageCmd(flags))
	root.AddCommand(storyCmd(flags))
	root.AddCommand(sessionCmd(flags))
	root.AddCommand(serveCmd(flags))
	root.AddCommand(versionCmd())
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

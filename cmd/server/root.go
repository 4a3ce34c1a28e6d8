package main

import (
	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command.  Configuration comes from the
// environment and an optional .env file.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "server",
		Short: "Bearer token authentication API",
		Long: `Registration, login, logout and password reset for a JSON API,
backed by signed bearer tokens with version based revocation.`,
		SilenceUsage: true,
	}

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewMigrateCmd())
	cmd.AddCommand(NewWorkerCmd())

	return cmd
}

package main

import (
	"github.com/spf13/cobra"
)

// Global flags available to all subcommands.
var configFile string

// NewRootCmd creates the root command for the Wildmere CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "wildmere",
		Short: "Wildmere - multiplayer interaction dispatch server",
		Long: `Wildmere is the server-side interaction engine for a multiplayer game.
It loads level object bundles, dispatches client interaction requests
through an ordered set of gameplay modules, and records rejected
requests for moderation review.`,
	}

	// Global flag for config file path
	cmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path")

	// Add subcommands
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newStatusCmd())
	cmd.AddCommand(NewValidateLevelsCmd())

	return cmd
}

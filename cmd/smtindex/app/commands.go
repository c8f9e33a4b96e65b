package app

import (
	"github.com/spf13/cobra"

	"github.com/agentstation/smtindex/cmd/smtindex/cmd/build"
	"github.com/agentstation/smtindex/cmd/smtindex/cmd/list"
	"github.com/agentstation/smtindex/cmd/smtindex/cmd/serve"
	"github.com/agentstation/smtindex/cmd/smtindex/cmd/validate"
)

// registerCommands registers all subcommands with the root command.
func (a *App) registerCommands(rootCmd *cobra.Command) {
	// Core commands
	rootCmd.AddCommand(build.NewCommand(a))
	rootCmd.AddCommand(validate.NewCommand(a))

	// Query commands
	rootCmd.AddCommand(serve.NewCommand(a))
	rootCmd.AddCommand(list.NewCommand(a))
	rootCmd.AddCommand(list.NewShowCommand(a))

	// Utility commands
	rootCmd.AddCommand(a.newVersionCommand())
}

// newVersionCommand creates the version command.
func (a *App) newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			cmd.Printf("smtindex %s\n", a.version)
			if a.config.Verbose {
				cmd.Printf("  commit:   %s\n", a.commit)
				cmd.Printf("  built:    %s\n", a.date)
				cmd.Printf("  built by: %s\n", a.builtBy)
			}
		},
	}
}

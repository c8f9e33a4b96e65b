package app

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/agentstation/smtindex/internal/cmd/constants"
	"github.com/agentstation/smtindex/pkg/logging"
)

// Execute runs the smtindex CLI application with the given arguments.
func (a *App) Execute(ctx context.Context, args []string) error {
	rootCmd := a.createRootCommand()
	rootCmd.SetArgs(args)
	return rootCmd.ExecuteContext(ctx)
}

// createRootCommand creates the root cobra command with all subcommands.
func (a *App) createRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "smtindex",
		Short:   "Submodel Template index builder and query server",
		Version: a.version,
		Long: `smtindex builds a canonical index of Asset Administration Shell Submodel
Templates by reconciling the IDTA registry with the admin-shell-io
submodel-templates repository, validates it, and serves it over HTTP.`,
		PersistentPreRunE: a.setupCommand,
		SilenceUsage:      true,
		SilenceErrors:     true,
	}

	rootCmd.AddGroup(&cobra.Group{
		ID:    "core",
		Title: "Core Commands:",
	})
	rootCmd.AddGroup(&cobra.Group{
		ID:    "query",
		Title: "Query Commands:",
	})

	flags := rootCmd.PersistentFlags()
	flags.String(constants.KeyConfigFile, "", "config file (default is $HOME/.smtindex.yaml)")
	flags.BoolP(constants.KeyVerbose, "v", false, "verbose output (shortcut for --log-level=debug)")
	flags.BoolP(constants.KeyQuiet, "q", false, "minimal output (shortcut for --log-level=warn)")
	flags.Bool(constants.KeyNoColor, false, "disable colored output")
	flags.StringP(constants.KeyFormat, "o", "", "output format: table, json, yaml, wide")
	flags.String(constants.KeyLogLevel, "", "log level: trace, debug, info, warn, error (overrides -v/-q)")
	flags.String(constants.KeyLogFormat, "auto", "log format: auto, json, console")
	flags.String(constants.KeyLogOutput, "stderr", "log output: stderr, stdout, discard or a file path")
	flags.String(constants.KeyIndex, a.config.IndexPath, "index file read by validate, list, show and serve")

	rootCmd.SetVersionTemplate("smtindex {{.Version}}\n")
	rootCmd.SetOut(a.out)

	a.registerCommands(rootCmd)

	return rootCmd
}

// setupCommand is called before any command runs. It reads the config file
// named by --config, binds the parsed flags and rebuilds config and logger.
func (a *App) setupCommand(cmd *cobra.Command, _ []string) error {
	if file := mustGetString(cmd, constants.KeyConfigFile); file != "" {
		v, err := NewViper(file)
		if err != nil {
			return err
		}
		a.viper = v
	}

	if err := BindFlags(a.viper, cmd.Flags()); err != nil {
		return err
	}
	config, err := LoadConfig(a.viper)
	if err != nil {
		return err
	}
	a.config = config

	logger := NewLogger(config)
	a.logger = &logger
	logging.SetDefault(logger)

	if config.ConfigFile != "" {
		a.logger.Debug().Str("file", config.ConfigFile).Msg("Using config file")
	}
	return nil
}

// ExitOnError prints an error and exits with status 1.
func ExitOnError(err error) {
	if err != nil {
		_, _ = os.Stderr.WriteString("Error: " + err.Error() + "\n")
		os.Exit(1)
	}
}

// mustGetString retrieves a string flag value or panics if the flag doesn't exist.
// This should only be used for flags defined in this package.
func mustGetString(cmd *cobra.Command, name string) string {
	val, err := cmd.Flags().GetString(name)
	if err != nil {
		panic("programming error: failed to get flag " + name + ": " + err.Error())
	}
	return val
}

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/teranos/dossier/cmd/dossier/commands"
	"github.com/teranos/dossier/errors"
	"github.com/teranos/dossier/logger"
)

var rootCmd = &cobra.Command{
	Use:   "dossier",
	Short: "dossier - plugin toolchain for the command-bar launcher",
	Long: `dossier builds, deploys and exercises launcher plugins.

Plugins are native shared libraries compiled from the projects under a plugin root.
dossier compiles them, copies the libraries into the host's plugin directory,
rebuilds them as their sources change, and drives queries through the same
routing the launcher uses.

Available commands:
  build   - Build every plugin project once
  watch   - Build, then rebuild projects as their sources change
  plugins - List the host's plugin catalog
  query   - Run a query through the launcher's search routing
  serve   - Expose the in-process host over websocket
  config  - Show or initialize configuration
  version - Show build information

Examples:
  dossier build ./plugins        # Build all projects under ./plugins
  dossier watch                  # Rebuild on change
  dossier query f readme         # Scoped search in the plugin with prefix "f"
  dossier query hello --exec     # Run the first result's primary action`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		verbosity, _ := cmd.Flags().GetCount("verbose")
		jsonLog, _ := cmd.Flags().GetBool("log-json")
		if err := logger.Initialize(jsonLog || commands.ConfigWantsJSONLog(cmd), verbosity); err != nil {
			return errors.Wrap(err, "failed to initialize logger")
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().CountP("verbose", "v", "Increase output verbosity (repeat for more detail: -v, -vv)")
	rootCmd.PersistentFlags().Bool("log-json", false, "Write logs as JSON")
	rootCmd.PersistentFlags().String("config", "", "Read configuration from this file instead of the default locations")

	rootCmd.AddCommand(commands.BuildCmd)
	rootCmd.AddCommand(commands.WatchCmd)
	rootCmd.AddCommand(commands.PluginsCmd)
	rootCmd.AddCommand(commands.QueryCmd)
	rootCmd.AddCommand(commands.ServeCmd)
	rootCmd.AddCommand(commands.ConfigCmd)
	rootCmd.AddCommand(commands.VersionCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	err := rootCmd.ExecuteContext(ctx)
	stop()
	logger.Cleanup()

	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		for _, hint := range errors.GetAllHints(err) {
			fmt.Fprintln(os.Stderr, "Hint:", hint)
		}
		os.Exit(1)
	}
}

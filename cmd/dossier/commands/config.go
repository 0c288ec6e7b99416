package commands

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/teranos/dossier/am"
	"github.com/teranos/dossier/errors"
)

// ConfigCmd shows and initializes configuration
var ConfigCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or initialize dossier configuration",
	Long: `Show or initialize dossier configuration.

Configuration sources (in order of precedence):
1. Environment variables (DOSSIER_* prefix, e.g. DOSSIER_BUILD_DEBOUNCE_MS)
2. Project config (./dossier.toml, searched upwards from the working directory)
3. User config (~/.config/dossier/dossier.toml)
4. System config (/etc/dossier/dossier.toml)
5. Default values`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	RunE:  runConfigShow,
}

var configInitCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Write the default configuration to a file",
	Long:  "Write the default configuration to [path] (default: the user config file). An existing file is backed up to <path>.back1.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runConfigInit,
}

var (
	configFormat string
	configForce  bool
)

func init() {
	configShowCmd.Flags().StringVar(&configFormat, "format", "toml", "Output format: toml, json, yaml")
	configInitCmd.Flags().BoolVar(&configForce, "force", false, "Overwrite an existing config file")

	ConfigCmd.AddCommand(configShowCmd)
	ConfigCmd.AddCommand(configInitCmd)
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	switch configFormat {
	case "json":
		data, err := json.MarshalIndent(cfg, "", "  ")
		if err != nil {
			return errors.Wrap(err, "failed to marshal config to JSON")
		}
		fmt.Fprintln(out, string(data))

	case "yaml":
		data, err := yaml.Marshal(cfg)
		if err != nil {
			return errors.Wrap(err, "failed to marshal config to YAML")
		}
		fmt.Fprintf(out, "# dossier configuration\n%s", data)

	case "toml":
		data, err := am.Marshal(cfg)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "# dossier configuration\n%s", data)

	default:
		return errors.WithHint(
			errors.Newf("unsupported format: %s", configFormat),
			"supported formats: toml, json, yaml",
		)
	}
	return nil
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	path := am.UserConfigPath()
	if len(args) == 1 {
		path = args[0]
	}

	if _, err := os.Stat(path); err == nil && !configForce {
		return errors.WithHint(
			errors.Newf("%s already exists", path),
			"pass --force to overwrite it (the current file is kept as .back1)",
		)
	}

	cfg, err := am.Defaults()
	if err != nil {
		return err
	}
	if err := am.Save(path, cfg); err != nil {
		return err
	}

	pterm.Success.Printfln("Wrote default configuration to %s", path)
	return nil
}

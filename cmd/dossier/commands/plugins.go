package commands

import (
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/teranos/dossier/errors"
)

// PluginsCmd lists the host's plugin catalog
var PluginsCmd = &cobra.Command{
	Use:   "plugins",
	Short: "List the host's plugins and their enabled state",
	RunE:  runPluginsList,
}

var pluginsEnableCmd = &cobra.Command{
	Use:   "enable <id>",
	Short: "Enable a plugin in the in-process host's settings",
	Args:  cobra.ExactArgs(1),
	RunE:  func(cmd *cobra.Command, args []string) error { return setPluginEnabled(cmd, args[0], true) },
}

var pluginsDisableCmd = &cobra.Command{
	Use:   "disable <id>",
	Short: "Disable a plugin in the in-process host's settings",
	Args:  cobra.ExactArgs(1),
	RunE:  func(cmd *cobra.Command, args []string) error { return setPluginEnabled(cmd, args[0], false) },
}

func init() {
	PluginsCmd.AddCommand(pluginsEnableCmd)
	PluginsCmd.AddCommand(pluginsDisableCmd)
}

func runPluginsList(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	bridge, closeFn, _, err := openBridge(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeFn()

	catalog, err := bridge.ListPlugins(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to list plugins")
	}
	current, err := bridge.GetSettings(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to read settings")
	}

	if len(catalog) == 0 {
		pterm.Warning.Println("The host reports no plugins")
		return nil
	}

	rows := pterm.TableData{{"ID", "Prefix", "Name", "Enabled", "Description"}}
	for _, info := range catalog {
		enabled := "yes"
		if !current.IsEnabled(info.ID) {
			enabled = "no"
		}
		rows = append(rows, []string{info.ID, info.Prefix, info.Icon + " " + info.Name, enabled, info.Description})
	}
	return pterm.DefaultTable.WithHasHeader().WithData(rows).Render()
}

func setPluginEnabled(cmd *cobra.Command, id string, enabled bool) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cfg.Host.Address != "" {
		return errors.WithHint(
			errors.New("plugin settings of a remote host are managed by that host"),
			"clear host.address to edit the in-process host's settings.json",
		)
	}

	_, store, err := newLocalHost(cfg)
	if err != nil {
		return err
	}
	if err := store.SetEnabled(id, enabled); err != nil {
		return err
	}

	state := "enabled"
	if !enabled {
		state = "disabled"
	}
	pterm.Success.Printfln("Plugin %s %s (%s)", id, state, store.Path())
	return nil
}

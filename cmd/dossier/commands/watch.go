package commands

import (
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/teranos/dossier/build"
	"github.com/teranos/dossier/logger"
)

// WatchCmd builds every project, then rebuilds projects as their sources change
var WatchCmd = &cobra.Command{
	Use:   "watch [root]",
	Short: "Rebuild plugin projects whenever their sources change",
	Long: `Build every plugin project under [root], then watch their source files.

Changes are debounced per project (build.debounce_ms): a burst of saves results in
exactly one rebuild once the project has been quiet for the debounce period.
Press Ctrl+C to stop.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runWatch,
}

var (
	watchSkipInitial bool
	watchStream      bool
)

func init() {
	WatchCmd.Flags().BoolVar(&watchSkipInitial, "skip-initial", false, "Do not build everything before watching")
	WatchCmd.Flags().BoolVar(&watchStream, "stream", false, "Stream toolchain output to stderr")
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	root, err := resolveRoot(cfg, args)
	if err != nil {
		return err
	}
	pipeline, err := newPipeline(cfg, watchStream)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if !watchSkipInitial {
		report, err := pipeline.BuildAll(ctx, root)
		if err != nil {
			return err
		}
		printReport(report)
	}

	targets, err := pipeline.Discover(root)
	if err != nil {
		return err
	}
	if len(targets) == 0 {
		pterm.Warning.Printfln("No plugin projects to watch under %s", root)
		return nil
	}

	watcher, err := build.NewWatcher(pipeline, targets, logger.ComponentLogger("watch"))
	if err != nil {
		return err
	}
	watcher.OnOutcome = printOutcome

	pterm.Info.Printfln("Watching %d project(s) under %s (Ctrl+C to stop)", watcher.Watched(), root)
	return watcher.Run(ctx)
}

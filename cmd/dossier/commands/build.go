package commands

import (
	"os"
	"path/filepath"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/teranos/dossier/am"
	"github.com/teranos/dossier/build"
	"github.com/teranos/dossier/errors"
	"github.com/teranos/dossier/logger"
)

// BuildCmd builds every plugin project once
var BuildCmd = &cobra.Command{
	Use:   "build [root]",
	Short: "Build every plugin project and deploy its libraries",
	Long: `Build every plugin project under [root] and copy the resulting shared
libraries into the deploy directory.

A plugin project is an immediate subdirectory of the root that contains the build
manifest (Cargo.toml by default). Projects build concurrently; one failing project
does not stop the others. The command exits non-zero when any project failed.

The root defaults to build.root, then to the directory holding the dossier binary.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runBuild,
}

var buildStream bool

func init() {
	BuildCmd.Flags().BoolVar(&buildStream, "stream", false, "Stream toolchain output to stderr")
}

func runBuild(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	root, err := resolveRoot(cfg, args)
	if err != nil {
		return err
	}
	pipeline, err := newPipeline(cfg, buildStream)
	if err != nil {
		return err
	}

	report, err := pipeline.BuildAll(cmd.Context(), root)
	if err != nil {
		return err
	}
	printReport(report)

	if failed := len(report.Failed()); failed > 0 {
		return errors.Mark(errors.Newf("%d of %d plugin(s) failed to build", failed, len(report.Outcomes)), errors.ErrBuildFailed)
	}
	return nil
}

func newPipeline(cfg *am.Config, stream bool) (*build.Pipeline, error) {
	buildCfg, err := build.ConfigFrom(cfg.Build)
	if err != nil {
		return nil, err
	}

	log := logger.ComponentLogger("build")
	runner := &build.ExecRunner{Logger: log}
	if stream {
		runner.Output = os.Stderr
	}
	return build.NewPipeline(buildCfg, runner, log), nil
}

func printReport(report build.Report) {
	pterm.DefaultSection.Printfln("Plugin build: %s", report.Root)

	if len(report.Outcomes) == 0 {
		pterm.Warning.Printfln("No plugin projects found under %s", report.Root)
		return
	}

	for _, o := range report.Outcomes {
		printOutcome(o)
	}

	pterm.Println()
	pterm.Info.Printfln("Deploy directory: %s", report.DeployDir)
	pterm.Printfln("  Built: %d  Failed: %d  Without library: %d  (%s)",
		len(report.Built()), len(report.Failed()),
		len(report.Outcomes)-len(report.Built())-len(report.Failed()),
		report.Duration.Round(time.Millisecond))
}

func printOutcome(o build.Outcome) {
	took := o.Duration.Round(time.Millisecond)
	switch o.Status {
	case build.StatusBuilt:
		pterm.Success.Printfln("%s (%s)", o.Target.Name, took)
		for _, a := range o.Artifacts {
			pterm.Printfln("    → %s", filepath.Base(a))
		}
	case build.StatusNoArtifact:
		pterm.Warning.Printfln("%s built but produced no library (%s)", o.Target.Name, took)
	case build.StatusFailed:
		pterm.Error.Printfln("%s: %v", o.Target.Name, o.Err)
		for _, detail := range errors.GetAllDetails(o.Err) {
			pterm.Printfln("    %s", detail)
		}
	}
	for _, w := range o.Warnings {
		pterm.Printfln("    warning: %s", w)
	}
}

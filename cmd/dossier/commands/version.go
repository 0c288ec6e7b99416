package commands

import (
	"encoding/json"
	"fmt"
	"runtime"
	"strings"

	"github.com/spf13/cobra"

	"github.com/teranos/dossier/build"
	"github.com/teranos/dossier/version"
)

// versionReport is version.Info plus the library extensions the build pipeline
// deploys on goos
type versionReport struct {
	version.Info
	LibraryExtensions []string `json:"library_extensions"`
}

func newVersionReport(goos string) versionReport {
	return versionReport{Info: version.Get(), LibraryExtensions: build.LibraryExtensions(goos)}
}

// VersionCmd represents the version command
var VersionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show dossier version information",
	Long:  `Display version, build time, commit hash, platform and deployed plugin library extensions for the dossier binary.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		jsonOutput, _ := cmd.Flags().GetBool("json")
		info := newVersionReport(runtime.GOOS)
		out := cmd.OutOrStdout()

		if jsonOutput {
			data, err := json.MarshalIndent(info, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(out, string(data))
			return nil
		}

		fmt.Fprintln(out, info.String())
		fmt.Fprintf(out, "Platform: %s\n", info.Platform)
		fmt.Fprintf(out, "Go: %s\n", info.GoVersion)
		fmt.Fprintf(out, "Plugin libraries: %s\n", strings.Join(info.LibraryExtensions, ", "))
		return nil
	},
}

func init() {
	VersionCmd.Flags().BoolP("json", "j", false, "Output version info as JSON")
}

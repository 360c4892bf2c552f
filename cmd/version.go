package cmd

import (
	"fmt"
	"runtime"
	"runtime/debug"

	"github.com/spf13/cobra"
)

// Actual version can be specified in build command.
var version = "unknown"

type buildInfo struct {
	App       string `json:"app"`
	Version   string `json:"version"`
	GoVersion string `json:"go_version"`
	Revision  string `json:"revision,omitempty"`
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the matcher version and build details",
	RunE: func(cmd *cobra.Command, _ []string) error {
		info := currentBuild()

		if asJSON, _ := cmd.Flags().GetBool("output-json"); asJSON {
			return printJSON(info)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "%s version: %s (%s)\n", info.App, info.Version, info.GoVersion)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)

	versionCmd.Flags().Bool("output-json", false, "print build details as JSON")
}

func currentBuild() buildInfo {
	info := buildInfo{App: app, Version: version, GoVersion: runtime.Version()}

	if bi, ok := debug.ReadBuildInfo(); ok {
		for _, s := range bi.Settings {
			if s.Key == "vcs.revision" {
				info.Revision = s.Value
			}
		}
	}

	return info
}

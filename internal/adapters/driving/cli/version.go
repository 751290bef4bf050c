package cli

import (
	"runtime"
	"runtime/debug"

	"github.com/spf13/cobra"
)

// BuildInfo describes the running binary.
type BuildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit,omitempty"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	RunE: func(cmd *cobra.Command, _ []string) error {
		info := buildInfo()
		if jsonOutput {
			return printJSON(cmd, info)
		}
		cmd.Printf("doclens version %s\n", info.Version)
		if info.Commit != "" {
			cmd.Printf("  commit:   %s\n", info.Commit)
		}
		cmd.Printf("  go:       %s\n", info.GoVersion)
		cmd.Printf("  platform: %s\n", info.Platform)
		return nil
	},
}

func init() {
	versionCmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	rootCmd.AddCommand(versionCmd)
}

// buildInfo combines the ldflags version with VCS data stamped by the Go toolchain.
func buildInfo() BuildInfo {
	info := BuildInfo{
		Version:   version,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return info
	}
	for _, s := range bi.Settings {
		if s.Key == "vcs.revision" {
			info.Commit = s.Value
			if len(info.Commit) > 12 {
				info.Commit = info.Commit[:12]
			}
		}
	}
	return info
}

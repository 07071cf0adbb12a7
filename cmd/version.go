package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/conneroisu/lectern/internal/version"
)

var (
	versionFormat = newEnumValue("text", "text", "json")
	versionShort  bool
)

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Long: `Display version information for lectern: the version, git commit, build
time, Go version and target platform.

Examples:
  lectern version                # Show version information
  lectern version --short        # Show the version only
  lectern version --format json  # Output as JSON`,
	Args: cobra.NoArgs,
	RunE: runVersionCommand,
}

func init() {
	rootCmd.AddCommand(versionCmd)

	versionCmd.Flags().VarP(versionFormat, "format", "f", "output format (text, json)")
	versionCmd.Flags().BoolVar(&versionShort, "short", false, "show the version only")
}

func runVersionCommand(cmd *cobra.Command, _ []string) error {
	info := version.Get()
	out := cmd.OutOrStdout()

	if versionFormat.String() == "json" {
		encoder := json.NewEncoder(out)
		encoder.SetIndent("", "  ")
		return encoder.Encode(info)
	}
	if versionShort {
		fmt.Fprintln(out, info.Short())
		return nil
	}
	fmt.Fprintln(out, info.String())
	return nil
}

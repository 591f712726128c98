package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/conneroisu/thinkgo/internal/kernel"
	"github.com/conneroisu/thinkgo/internal/version"
)

var (
	versionFormat string
	versionShort  bool
)

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Long: `Display the binary version, the embedded framework version, the git
commit, build time, Go version and target platform.

Examples:
  thinkgo version
  thinkgo version --short
  thinkgo version --format json`,
	Args: cobra.NoArgs,
	RunE: runVersionCommand,
}

func init() {
	rootCmd.AddCommand(versionCmd)

	addFormatFlag(versionCmd, &versionFormat)
	versionCmd.Flags().BoolVar(&versionShort, "short", false, "Show short version only")
}

func runVersionCommand(cmd *cobra.Command, args []string) error {
	if err := validateFormat(versionFormat); err != nil {
		return err
	}

	info := version.Get(kernel.Version)
	out := cmd.OutOrStdout()

	switch {
	case versionFormat == formatJSON:
		return writeJSON(out, info)
	case versionShort:
		_, err := fmt.Fprintln(out, info.Short())
		return err
	default:
		_, err := fmt.Fprintln(out, info.String())
		return err
	}
}

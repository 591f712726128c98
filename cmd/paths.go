package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/conneroisu/thinkgo/internal/kernel"
	"github.com/conneroisu/thinkgo/internal/request"
)

var pathsFormat string

var pathsCmd = &cobra.Command{
	Use:   "paths [request-path]",
	Short: "Show how the kernel resolves an application",
	Long: `Resolve the application name, namespace and directories the kernel would
use, without loading configuration or manifests.

With --auto the optional request path picks the application:

Examples:
  thinkgo paths                          # Single application
  thinkgo paths --multi --app admin      # Named application
  thinkgo paths --auto blog/post/1       # Resolve from a request path
  thinkgo paths --format json`,
	Args: cobra.MaximumNArgs(1),
	RunE: runPaths,
}

func init() {
	rootCmd.AddCommand(pathsCmd)
	addFormatFlag(pathsCmd, &pathsFormat)
}

func runPaths(cmd *cobra.Command, args []string) error {
	if err := validateFormat(pathsFormat); err != nil {
		return err
	}

	boot, err := loadBootstrap()
	if err != nil {
		return err
	}

	path := ""
	if len(args) > 0 {
		path = args[0]
	}

	opts := boot.options()
	opts.CLI = true
	opts.KeepProcessTimezone = true
	opts.Request = request.NewStatic(path)

	app := kernel.New(opts)
	if err := app.Parse(cmd.Context()); err != nil {
		return err
	}

	report := newAppReport(app)
	if pathsFormat == formatJSON {
		return writeJSON(cmd.OutOrStdout(), report)
	}
	_, err = fmt.Fprint(cmd.OutOrStdout(), report.text())
	return err
}

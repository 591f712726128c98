package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/conneroisu/thinkgo/internal/kernel"
	"github.com/conneroisu/thinkgo/internal/middleware"
)

var optimizeCmd = &cobra.Command{
	Use:   "optimize",
	Short: "Write the init cache",
	Long: `Bootstrap the application and write everything the load phase discovered
(events, hooks, middleware, providers and configuration) to
<runtime>/init.yaml. Later bootstraps read that file instead of scanning
the project. Run "thinkgo clear" after changing configuration.`,
	Args: cobra.NoArgs,
	RunE: runOptimize,
}

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove the init cache",
	Long: `Remove the init cache. With --multi or --auto the init cache of every
application under <root>/runtime is removed.`,
	Args:  cobra.NoArgs,
	RunE:  runClear,
}

func init() {
	rootCmd.AddCommand(optimizeCmd)
	rootCmd.AddCommand(clearCmd)
}

func runOptimize(cmd *cobra.Command, args []string) (err error) {
	boot, err := loadBootstrap()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	opts := boot.options()
	opts.CLI = true
	opts.KeepProcessTimezone = true
	opts.Events = boot.events()
	opts.Middleware = middleware.NewChain()
	middleware.Defaults(opts.Middleware, boot.logger)

	app := kernel.New(opts)
	defer func() {
		if cerr := app.Close(ctx); cerr != nil && err == nil {
			err = cerr
		}
	}()
	if err := app.Parse(ctx); err != nil {
		return err
	}
	// A stale cache would be read back instead of the project files.
	if _, err := app.ClearCache(ctx); err != nil {
		return err
	}
	if _, err := app.Initialize(ctx); err != nil {
		return err
	}

	file, err := app.Optimize(ctx)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "Init cache written to %s\n", file)
	return err
}

func runClear(cmd *cobra.Command, args []string) error {
	boot, err := loadBootstrap()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	opts := boot.options()
	opts.CLI = true
	opts.KeepProcessTimezone = true

	app := kernel.New(opts)
	if err := app.Parse(ctx); err != nil {
		return err
	}

	removed, err := app.ClearCaches(ctx)
	if err != nil {
		return err
	}
	if len(removed) == 0 {
		_, err = fmt.Fprintln(cmd.OutOrStdout(), "No init cache to remove")
		return err
	}
	for _, file := range removed {
		if _, err := fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", file); err != nil {
			return err
		}
	}
	return nil
}

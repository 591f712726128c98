// Package cmd provides the thinkgo command-line interface.
//
// Configuration System:
//
//	Kernel settings are read from several sources, highest priority first:
//	1. Command-line flags (--root, --app, --multi, ...)
//	2. THINKGO_ environment variables (THINKGO_ROOT_PATH, THINKGO_SERVER_ADDR, ...)
//	3. The configuration file: --config, else THINKGO_CONFIG_FILE, else .thinkgo.yml
//	4. Built-in defaults
//
// Application configuration (config/*.yaml, .env, manifests) is not read
// here; the kernel loads it while bootstrapping.
package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "thinkgo",
	Short: "Bootstrap kernel for multi-application web projects",
	Long: `thinkgo bootstraps applications laid out the ThinkPHP way: a project root
with config/, route/ and runtime/ directories and one or more applications
under app/.

Commands:
  thinkgo paths [request-path]    Show how a request path resolves
  thinkgo optimize                Write the init cache
  thinkgo clear                   Remove the init cache
  thinkgo serve                   Serve diagnostics, one bootstrap per request
  thinkgo version                 Show version information`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default is .thinkgo.yml, can also use THINKGO_CONFIG_FILE env var)")
	pf.StringP("log-level", "l", "info", "log level (debug, info, warn, error)")
	pf.String("root", "", "project root directory (default is the working directory)")
	pf.String("app", "", "application name")
	pf.Bool("multi", false, "host several applications under app/")
	pf.Bool("auto", false, "pick the application from the first request path segment")
	pf.Bool("debug", false, "enable debug mode")

	bindFlags(pf, map[string]string{
		"log.level": "log-level",
		"root_path": "root",
		"name":      "app",
		"multi":     "multi",
		"auto":      "auto",
		"debug":     "debug",
	})
}

// initConfig points viper at the configuration file and the THINKGO_
// environment. A missing file is not an error.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else if envConfigFile := os.Getenv("THINKGO_CONFIG_FILE"); envConfigFile != "" {
		viper.SetConfigFile(envConfigFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".thinkgo")
	}

	viper.SetEnvPrefix("THINKGO")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

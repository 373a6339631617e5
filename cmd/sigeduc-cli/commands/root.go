package commands

import (
	"context"
	"fmt"
	"os"
	"sigeduc-scraper/internal/config"
	"sigeduc-scraper/lib/telemetry"

	"github.com/spf13/cobra"
)

var (
	configPath string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "sigeduc-cli",
	Short: "sigeduc-cli crawls the SIGEduc portal and stores unit summaries in a database.",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		telemetry.InitSlog(verbose)
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to the config file, defaults to the nearest config.json5.")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log debug messages.")
}

func readConfig() (config.Config, error) {
	return config.Read(configPath)
}

func loadConfig() (config.Config, error) {
	return config.Load(configPath)
}

// ExecuteContext runs the command line and returns the process exit code.
func ExecuteContext(ctx context.Context) int {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

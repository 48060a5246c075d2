// Package main provides the studio_agent CLI: the HTTP service, single runs,
// folder batches and record validation.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	_ "go.uber.org/automaxprocs"

	"github.com/jonathan/luxury-studio/internal/config"
	"github.com/jonathan/luxury-studio/internal/logging"
)

var (
	configPath string
	logLevel   string
	logFormat  string

	// appConfig is loaded once before any subcommand runs
	appConfig *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "studio_agent",
	Short: "Luxury jewelry studio compositing pipeline",
	Long: `studio_agent turns product photos of jewelry into studio-quality composites.

Each image runs through four agents (analyst, director, producer, judge) with a
bounded retry loop driven by the judge's feedback.`,
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to a JSON config file (overrides environment values)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error); defaults to LOG_LEVEL")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "Log format (console, json); defaults to LOG_FORMAT")
}

func loadConfig(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("log-level") {
		cfg.LogLevel = logLevel
	}
	if cmd.Flags().Changed("log-format") {
		cfg.LogFormat = logFormat
	}
	logging.Init(cfg.LogLevel, cfg.LogFormat)
	appConfig = cfg
	return nil
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

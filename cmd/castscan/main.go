// Castscan discovers Google Cast receivers on the local network.
//
// It browses for _googlecast._tcp services over mDNS, turns each
// announcement into a receiver record, and prints, watches, or serves the
// receivers found during a bounded discovery session.
//
// Usage:
//
//	castscan [command] [flags]
//
// Running without arguments performs a single scan.
// See 'castscan --help' for available commands.
package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/muurk/castscan/internal/config"
	"github.com/muurk/castscan/internal/logging"
	"github.com/muurk/castscan/internal/version"
)

// Global flags
var (
	configPath string
	logLevel   string
)

func main() {
	err := rootCmd.Execute()
	logging.Sync()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "castscan",
	Short: "Google Cast receiver discovery",
	Long: `Discover Google Cast receivers (Chromecast and compatible devices) on the
local network using mDNS/DNS-SD.

Each discovery session browses for a bounded time and reports every receiver
that announced a friendly name. Logging is silent unless --log-level or
CASTSCAN_LOG_LEVEL is set.

If no command is specified, a single scan is run.`,
	Version:           version.Version,
	SilenceUsage:      true,
	PersistentPreRunE: setupLogging,
	RunE:              runScan,
}

func init() {
	// Disable automatic completion command generation
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file path (default: platform config dir)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error); overrides "+logging.LogLevelEnvVar)

	versionCmd.Flags().StringVar(&versionFormat, "format", "text", "Output format (text, json, yaml)")
	rootCmd.AddCommand(versionCmd)
}

// setupLogging applies --log-level, then CASTSCAN_LOG_LEVEL, then the
// config file's log_level.
func setupLogging(cmd *cobra.Command, args []string) error {
	level := logLevel
	if level == "" && os.Getenv(logging.LogLevelEnvVar) == "" {
		if cfg, err := config.Load(configPath); err == nil {
			level = cfg.Preferences.LogLevel
		}
	}
	return logging.Initialize(level)
}

var versionFormat string

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	RunE: func(cmd *cobra.Command, args []string) error {
		info := version.Get()
		switch versionFormat {
		case "text":
			fmt.Printf("castscan %s (commit: %s, %s, %s)\n", info.Version, info.Commit, info.GoVersion, info.Platform)
			return nil
		case "json":
			data, err := json.MarshalIndent(info, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(data))
			return nil
		case "yaml":
			return writeYAML(info)
		default:
			return fmt.Errorf("unknown format %q (expected text, json, or yaml)", versionFormat)
		}
	},
}

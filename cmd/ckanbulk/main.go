// Command ckanbulk compiles filter-builder submissions into CKAN search
// queries and fetches every matching entity.
//
// The base logger is built once in PersistentPreRunE from the log config and
// handed to every component. Nothing calls slog.SetDefault.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/rpattn/ckanbulk/internal/config"
	"github.com/rpattn/ckanbulk/internal/logging"
)

var version = "dev"

// app carries what every subcommand needs once flags are parsed.
type app struct {
	cfg    config.Config
	logger *slog.Logger
}

func main() {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:           "ckanbulk",
		Short:         "Bulk search over a CKAN catalogue",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			configPath, _ := cmd.Flags().GetString("config")
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if url, _ := cmd.Flags().GetString("ckan-url"); url != "" {
				cfg.CKAN.URL = url
			}
			if level, _ := cmd.Flags().GetString("log-level"); level != "" {
				cfg.Log.Level = level
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}

			logger, err := logging.New(os.Stderr, cfg.Log.Level, cfg.Log.Format)
			if err != nil {
				return err
			}
			if cfg.File != "" {
				logger.Debug("loaded config", "file", cfg.File)
			} else {
				logger.Debug("no config.yaml found, using defaults and env vars")
			}

			a.cfg = cfg
			a.logger = logger
			return nil
		},
	}

	rootCmd.PersistentFlags().String("config", ".", "directory containing config.yaml")
	rootCmd.PersistentFlags().String("ckan-url", "", "CKAN site URL (overrides ckan.url)")
	rootCmd.PersistentFlags().String("log-level", "", "log level: debug, info, warn, error")

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		// Skip config loading.
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version)
		},
	}

	rootCmd.AddCommand(
		newServeCmd(a),
		newSearchCmd(a),
		newFieldsCmd(a),
		newExportCmd(a),
		newMigrateCmd(a),
		versionCmd,
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

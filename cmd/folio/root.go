package main

import (
	"fmt"
	"os"

	"github.com/aretw0/folio/internal/cli"
	"github.com/aretw0/folio/internal/config"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "folio",
	Short: "Folio is a versioned rich-text document engine",
	Long: `Folio keeps rich-text documents as immutable snapshots of a node tree and
applies edits through transactional updates. The commands here convert,
inspect and serve documents.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "Path to a folio.yaml configuration file")
	rootCmd.PersistentFlags().String("log-level", "", "Override the configured log level")
}

// loadConfig reads --config when given and applies FOLIO_* overrides.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	var cfg config.Config
	if path != "" {
		var err error
		if cfg, err = config.Load(path); err != nil {
			return cfg, err
		}
	} else {
		cfg = config.Default()
		if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
			return cfg, err
		}
	}
	if level, _ := cmd.Flags().GetString("log-level"); level != "" {
		cfg.Log.Level = level
	}
	return cfg, cfg.Validate()
}

// openRuntime builds the store-backed runtime for the command.
func openRuntime(cmd *cobra.Command) (*cli.Runtime, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	return cli.Open(cmd.Context(), cfg)
}

// standalone builds a runtime for commands that only touch local files.
func standalone(cmd *cobra.Command) (*cli.Runtime, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	return cli.Standalone(cfg)
}

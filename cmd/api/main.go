package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/melih/requirement-validator/internal/config"
	"github.com/melih/requirement-validator/internal/logging"
)

var cfgFile string

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "reqval",
		Short:         "Requirement validator service and image builder",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&cfgFile, "config", "", "path to YAML config file")

	root.AddCommand(
		newServeCmd(),
		newBuildCmd(),
		newDockerfileCmd(),
		newValidateCmd(),
	)
	return root
}

// loadConfig applies defaults, then the config file, then REQVAL_* variables.
// Command flags are applied by each command afterwards.
func loadConfig() (*config.Config, error) {
	cfg := config.DefaultConfig()
	if cfgFile != "" {
		c, err := config.LoadConfigFromFile(cfgFile)
		if err != nil {
			return nil, err
		}
		cfg = c
	}
	if err := config.ApplyEnvOverrides(cfg); err != nil {
		return nil, fmt.Errorf("invalid environment configuration: %w", err)
	}
	return cfg, nil
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		logging.Get().Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}

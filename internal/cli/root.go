// Package cli wires the recipe-app sub-commands.
package cli

import (
	"os"
	"path/filepath"

	"github.com/jo-hoe/recipe-app/internal/core"
	"github.com/jo-hoe/recipe-app/internal/logging"
	"github.com/spf13/cobra"
)

func Execute() {
	cmd := newRootCmd()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

type rootOptions struct {
	configPath string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:          "recipe-app",
		Short:        "Recipe API server and management commands",
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&opts.configPath, "config", defaultConfigPath(), "path to the YAML config file (env CONFIG_PATH)")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "override the configured log level")

	cmd.AddCommand(
		serveCmd(opts),
		waitForDBCmd(opts),
		migrateCmd(opts),
		createSuperuserCmd(opts),
		checkComposeCmd(),
	)
	return cmd
}

func defaultConfigPath() string {
	// First check if config path is provided via environment variable
	if configPath := os.Getenv("CONFIG_PATH"); configPath != "" {
		return configPath
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "config.yaml"
	}
	return filepath.Join(cwd, "config.yaml")
}

// loadConfig reads the configuration and installs the logger it describes.
func (opts *rootOptions) loadConfig() (*core.ServiceConfig, error) {
	config, err := core.LoadConfig(opts.configPath)
	if err != nil {
		return nil, err
	}
	if opts.logLevel != "" {
		config.Log.Level = opts.logLevel
	}
	if err := logging.Setup(config.Log.Level, config.Log.Format); err != nil {
		return nil, err
	}
	return config, nil
}

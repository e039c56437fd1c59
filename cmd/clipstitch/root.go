package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/mpalmer/clipstitch/internal/config"
)

// commandContext carries shared flag state and lazily-loaded configuration
// across subcommands.
type commandContext struct {
	configFlag *string
	cfg        *config.Config
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

// ensureConfig loads configuration once: environment first, then the
// optional --config TOML file on top.
func (c *commandContext) ensureConfig() (*config.Config, error) {
	if c.cfg != nil {
		return c.cfg, nil
	}
	cfg, err := config.LoadWithFile(*c.configFlag)
	if err != nil {
		return nil, err
	}
	c.cfg = cfg
	return cfg, nil
}

// newLogger builds the CLI logger. Command output goes to stdout; logs go
// to stderr so pipelines stay clean.
func (c *commandContext) newLogger() *slog.Logger {
	level := slog.LevelWarn
	if c.cfg != nil && c.cfg.LogLevel == "debug" {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func newRootCommand() *cobra.Command {
	var configFlag string

	ctx := newCommandContext(&configFlag)

	rootCmd := &cobra.Command{
		Use:           "clipstitch",
		Short:         "Merge videos and convert audio files to video",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			_, err := ctx.ensureConfig()
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVar(&configFlag, "config", "", "Configuration file path (TOML)")

	rootCmd.AddCommand(newMergeCommand(ctx))
	rootCmd.AddCommand(newConvertCommand(ctx))
	rootCmd.AddCommand(newSweepCommand(ctx))
	rootCmd.AddCommand(newServeCommand(ctx))

	return rootCmd
}

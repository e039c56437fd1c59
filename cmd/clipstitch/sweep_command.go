package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/mpalmer/clipstitch/internal/artifact"
)

func newSweepCommand(ctx *commandContext) *cobra.Command {
	var (
		dirs      []string
		retention time.Duration
	)

	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Delete expired output artifacts and orphaned uploads",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			if len(dirs) == 0 {
				dirs = []string{cfg.OutputDir, cfg.UploadDir}
			}
			if retention == 0 {
				retention = cfg.Retention()
			}

			sweeper := artifact.NewSweeper(retention, ctx.newLogger(), dirs...)
			removed := sweeper.SweepOnce(cmd.Context())

			for _, path := range removed {
				fmt.Fprintf(cmd.OutOrStdout(), "removed %s\n", path)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "swept %d file(s) older than %s\n", len(removed), retention)
			return nil
		},
	}

	cmd.Flags().StringSliceVarP(&dirs, "dir", "d", nil, "Directories to sweep (default: configured output and upload dirs)")
	cmd.Flags().DurationVar(&retention, "retention", 0, "Retention window (default: configured RETENTION_MINUTES)")

	return cmd
}

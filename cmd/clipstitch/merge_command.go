package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mpalmer/clipstitch/internal/job"
	"github.com/mpalmer/clipstitch/internal/media"
	"github.com/mpalmer/clipstitch/internal/upload"
)

func newMergeCommand(ctx *commandContext) *cobra.Command {
	var (
		output      string
		method      string
		outputDir   string
		listFormats bool
	)

	cmd := &cobra.Command{
		Use:   "merge <videos...>",
		Short: "Merge multiple videos into a single video file",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if listFormats {
				fmt.Fprintln(cmd.OutOrStdout(), printFormats(upload.KindMerge))
				return nil
			}
			if len(args) < 2 {
				return errors.New("at least 2 video files are required")
			}

			m := media.MergeMethod(method)
			if !m.IsValid() {
				return fmt.Errorf("invalid method %q, expected concatenate or overlay", method)
			}

			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			metas, err := statFiles(args)
			if err != nil {
				return err
			}

			deps, err := newLocalDeps(cfg, outputDir, ctx.newLogger())
			if err != nil {
				return err
			}

			if err := deps.validator.Validate(upload.KindMerge, metas); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Merging %d videos using %s method...\n", len(args), method)

			result, err := deps.service.Merge(cmd.Context(), job.MergeInput{
				Inputs:     args,
				Method:     m,
				OutputName: output,
			})
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Merge completed: %s\n", result.OutputPath)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "merged_video.mp4", "Output video filename")
	cmd.Flags().StringVarP(&method, "method", "m", "concatenate", "Merging method: concatenate or overlay")
	cmd.Flags().StringVarP(&outputDir, "output-dir", "d", "", "Output directory (default: configured OUTPUT_DIR)")
	cmd.Flags().BoolVar(&listFormats, "list-formats", false, "List supported video formats and exit")

	return cmd
}

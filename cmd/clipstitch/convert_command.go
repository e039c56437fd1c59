package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mpalmer/clipstitch/internal/job"
	"github.com/mpalmer/clipstitch/internal/upload"
)

func newConvertCommand(ctx *commandContext) *cobra.Command {
	var (
		output      string
		outputDir   string
		resolution  string
		fps         int
		color       string
		batch       bool
		listFormats bool
	)

	cmd := &cobra.Command{
		Use:   "convert <audio...>",
		Short: "Convert audio files to videos with a solid-color background",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if listFormats {
				fmt.Fprintln(cmd.OutOrStdout(), printFormats(upload.KindConvert))
				return nil
			}
			if len(args) == 0 {
				return errors.New("no audio files provided")
			}
			if len(args) > 1 && !batch {
				return errors.New("multiple inputs require --batch")
			}

			width, height, err := parseResolution(resolution)
			if err != nil {
				return err
			}
			r, g, b, err := parseColor(color)
			if err != nil {
				return err
			}
			if fps <= 0 {
				return fmt.Errorf("invalid fps %d, must be positive", fps)
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

			if err := deps.validator.Validate(upload.KindConvert, metas); err != nil {
				return err
			}

			rows := make([][]string, 0, len(args))
			var failed int
			for _, input := range args {
				name := output
				if batch {
					// Each batch output derives its name from its input.
					name = ""
				}

				result, err := deps.service.Convert(cmd.Context(), job.ConvertInput{
					Input:      input,
					Width:      width,
					Height:     height,
					FPS:        fps,
					ColorR:     r,
					ColorG:     g,
					ColorB:     b,
					OutputName: name,
				})
				if err != nil {
					failed++
					rows = append(rows, []string{input, "failed", err.Error()})
					continue
				}
				rows = append(rows, []string{input, "done", result.OutputPath})
			}

			if batch {
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"Input", "Status", "Output"},
					rows,
				))
			} else if failed == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "Conversion completed: %s\n", rows[0][2])
			}

			if failed > 0 {
				return fmt.Errorf("%d of %d conversions failed", failed, len(args))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Output video filename (default: derived from input)")
	cmd.Flags().StringVarP(&outputDir, "output-dir", "d", "", "Output directory (default: configured OUTPUT_DIR)")
	cmd.Flags().StringVarP(&resolution, "resolution", "r", "1920x1080", "Video resolution as WxH")
	cmd.Flags().IntVarP(&fps, "fps", "f", 30, "Frames per second")
	cmd.Flags().StringVarP(&color, "color", "c", "0,0,0", "Background color as R,G,B")
	cmd.Flags().BoolVar(&batch, "batch", false, "Convert multiple audio files in one run")
	cmd.Flags().BoolVar(&listFormats, "list-formats", false, "List supported audio formats and exit")

	return cmd
}

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"hlsladder/internal/metrics"
	"hlsladder/internal/pipeline"
	"hlsladder/internal/preflight"
	"hlsladder/internal/progress"
	"hlsladder/internal/rendition"
	"hlsladder/internal/services"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var lesson lessonFlags
	var input string
	var skipPublish bool
	var noProgress bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Transcode a lesson into every rendition, write the manifest, and publish",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.logger(cmd)
			if err != nil {
				return err
			}
			if failed := preflight.Failed(preflight.RunAll(cmd.Context(), cfg)); len(failed) > 0 {
				for _, r := range failed {
					fmt.Fprintln(cmd.ErrOrStderr(), renderStatusLine(r.Name, statusError, r.Detail, shouldColorize(cmd.ErrOrStderr())))
				}
				return services.Wrap(services.ErrConfiguration, "prepare", "preflight",
					fmt.Sprintf("%d required check(s) failed; run `hlsladder check`", len(failed)), nil)
			}
			store, err := ctx.openLedger()
			if err != nil {
				return err
			}
			defer store.Close()

			opts := []pipeline.Option{
				pipeline.WithLogger(logger),
				pipeline.WithLedger(store),
				pipeline.WithMetrics(metrics.New()),
			}
			stderr := cmd.ErrOrStderr()
			if !noProgress && cfg.Logging.Format == "console" && shouldColorize(stderr) {
				opts = append(opts, pipeline.WithDisplay(func(ladder rendition.Ladder) progress.Display {
					labels := make(map[string]string, len(ladder))
					for _, spec := range ladder {
						labels[spec.Name] = spec.Label()
					}
					return progress.NewTrackerDisplay(stderr, ladder.Names(), labels)
				}))
			}

			summary, runErr := pipeline.New(cfg, opts...).Run(cmd.Context(), pipeline.Request{
				Course:      lesson.course,
				Lesson:      lesson.lesson,
				Input:       input,
				SkipPublish: skipPublish,
			})
			printRunSummary(cmd.OutOrStdout(), summary, runErr, shouldColorize(cmd.OutOrStdout()))
			return runErr
		},
	}

	lesson.register(cmd)
	cmd.Flags().StringVarP(&input, "input", "i", "", "Source video (defaults to <video_dir>/<course>/<lesson><extension>)")
	cmd.Flags().BoolVar(&skipPublish, "skip-publish", false, "Stop after writing the manifest")
	cmd.Flags().BoolVar(&noProgress, "no-progress", false, "Disable progress bars even on a terminal")
	return cmd
}

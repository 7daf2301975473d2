package main

import (
	"github.com/spf13/cobra"

	"hlsladder/internal/metrics"
	"hlsladder/internal/pipeline"
)

func newPublishCommand(ctx *commandContext) *cobra.Command {
	var lesson lessonFlags
	var onlyFailed, force bool

	cmd := &cobra.Command{
		Use:   "publish",
		Short: "Publish an existing lesson output tree",
		Long: "Publish uploads the manifest, playlists, and segments of a lesson that was\n" +
			"already transcoded. With --only-failed, only the keys the lesson's last run\n" +
			"failed to upload are retried. A lesson whose last recorded transcode\n" +
			"did not complete every rendition is never published.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.logger(cmd)
			if err != nil {
				return err
			}
			store, err := ctx.openLedger()
			if err != nil {
				return err
			}
			defer store.Close()

			p := pipeline.New(cfg,
				pipeline.WithLogger(logger),
				pipeline.WithLedger(store),
				pipeline.WithMetrics(metrics.New()),
			)
			summary, runErr := p.PublishExisting(cmd.Context(), pipeline.PublishRequest{
				Course:     lesson.course,
				Lesson:     lesson.lesson,
				OnlyFailed: onlyFailed,
				Force:      force,
			})
			printRunSummary(cmd.OutOrStdout(), summary, runErr, shouldColorize(cmd.OutOrStdout()))
			return runErr
		},
	}

	lesson.register(cmd)
	cmd.Flags().BoolVar(&onlyFailed, "only-failed", false, "Retry only keys that failed in the lesson's last run")
	cmd.Flags().BoolVar(&force, "force", false, "Publish a tree with no recorded transcode and no manifest")
	return cmd
}

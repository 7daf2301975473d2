package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"hlsladder/internal/manifest"
	"hlsladder/internal/pipeline"
	"hlsladder/internal/rendition"
)

func newManifestCommand(ctx *commandContext) *cobra.Command {
	var lesson lessonFlags
	var write bool

	cmd := &cobra.Command{
		Use:   "manifest",
		Short: "Print the top-level manifest for the configured ladder",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if err := pipeline.ValidateIDs(lesson.course, lesson.lesson); err != nil {
				return err
			}
			ladder, err := rendition.FromConfig(cfg, lesson.course, lesson.lesson)
			if err != nil {
				return err
			}
			if write {
				if err := manifest.CheckRenditions(ladder, cfg.Transcode.PlaylistName); err != nil {
					return err
				}
				path, err := manifest.WriteMaster(cfg.LessonOutputDir(lesson.course, lesson.lesson), ladder)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %s\n", path)
			}
			_, err = fmt.Fprint(cmd.OutOrStdout(), manifest.BuildMaster(ladder))
			return err
		},
	}

	lesson.register(cmd)
	cmd.Flags().BoolVar(&write, "write", false, "Also write the manifest into the lesson output tree")
	return cmd
}

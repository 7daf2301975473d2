package main

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"hlsladder/internal/ledger"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var course, lessonID string
	var prune time.Duration

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show recorded runs, or one lesson's last run in detail",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openLedger()
			if err != nil {
				return err
			}
			defer store.Close()

			out := cmd.OutOrStdout()
			if prune > 0 {
				removed, err := store.PruneBefore(cmd.Context(), time.Now().Add(-prune))
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Pruned %d run(s) older than %s\n", removed, prune)
			}
			if course != "" || lessonID != "" {
				return showLastRun(cmd, store, course, lessonID)
			}
			runs, err := store.ListRuns(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				fmt.Fprintln(out, "No runs recorded")
				return nil
			}
			printRunsTable(out, runs)
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of runs to list (0 for all)")
	cmd.Flags().StringVar(&course, "course", "", "Show the last run of this course's lesson")
	cmd.Flags().StringVar(&lessonID, "lesson", "", "Lesson identifier (with --course)")
	cmd.Flags().DurationVar(&prune, "prune", 0, "Delete finished runs older than this age before listing (e.g. 720h)")
	cmd.MarkFlagsRequiredTogether("course", "lesson")
	return cmd
}

func printRunsTable(out io.Writer, runs []ledger.Run) {
	rows := make([][]string, 0, len(runs))
	for _, run := range runs {
		rows = append(rows, []string{
			shortID(run.ID),
			run.Course + "/" + run.Lesson,
			string(run.Status),
			fmt.Sprintf("%d/%d", run.RenditionsTotal-run.RenditionsFailed, run.RenditionsTotal),
			fmt.Sprintf("%d/%d", run.UploadsAttempted-run.UploadsFailed, run.UploadsAttempted),
			run.StartedAt.Local().Format("2006-01-02 15:04:05"),
			formatElapsed(run.Duration()),
		})
	}
	fmt.Fprintln(out, renderTable([]column{
		{header: "Run"},
		{header: "Lesson"},
		{header: "Status"},
		{header: "Renditions", alignRight: true},
		{header: "Uploads", alignRight: true},
		{header: "Started"},
		{header: "Duration", alignRight: true},
	}, rows))
}

func showLastRun(cmd *cobra.Command, store *ledger.Store, course, lessonID string) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()
	colorize := shouldColorize(out)

	run, err := store.LastRun(ctx, course, lessonID)
	if err != nil {
		return err
	}
	if run == nil {
		fmt.Fprintf(out, "No runs recorded for %s/%s\n", course, lessonID)
		return nil
	}
	for _, line := range renderSectionHeader(fmt.Sprintf("%s/%s", course, lessonID), colorize) {
		fmt.Fprintln(out, line)
	}
	fmt.Fprintln(out, renderStatusLine("Run", statusInfo, run.ID, colorize))
	fmt.Fprintln(out, renderStatusLine("Status", runStatusKind(run.Status), string(run.Status), colorize))
	if run.ErrorMessage != "" {
		fmt.Fprintln(out, renderStatusLine("Error", statusError, run.ErrorMessage, colorize))
	}

	outcomes, err := store.Renditions(ctx, run.ID)
	if err != nil {
		return err
	}
	if len(outcomes) > 0 {
		rows := make([][]string, 0, len(outcomes))
		for _, o := range outcomes {
			rows = append(rows, []string{o.Rendition, o.Status, formatElapsed(o.Elapsed), o.Cause})
		}
		fmt.Fprintln(out, renderTable([]column{
			{header: "Rendition"}, {header: "Status"}, {header: "Elapsed", alignRight: true}, {header: "Cause"},
		}, rows))
	}

	artifacts, err := store.Artifacts(ctx, run.ID)
	if err != nil {
		return err
	}
	var failed [][]string
	var uploaded int
	var bytes int64
	for _, a := range artifacts {
		if a.Status == ledger.ArtifactFailed {
			failed = append(failed, []string{a.Key, a.ErrorMessage})
			continue
		}
		uploaded++
		bytes += a.Bytes
	}
	if len(artifacts) > 0 {
		msg := strconv.Itoa(uploaded) + "/" + strconv.Itoa(len(artifacts)) + " uploaded (" + formatBytes(bytes) + ")"
		kind := statusOK
		if len(failed) > 0 {
			kind = statusWarn
		}
		fmt.Fprintln(out, renderStatusLine("Artifacts", kind, msg, colorize))
	}
	if len(failed) > 0 {
		fmt.Fprintln(out, renderTable([]column{{header: "Failed key"}, {header: "Error"}}, failed))
	}
	return nil
}

func runStatusKind(status ledger.RunStatus) statusKind {
	switch status {
	case ledger.RunCompleted:
		return statusOK
	case ledger.RunPartial, ledger.RunRunning:
		return statusWarn
	default:
		return statusError
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

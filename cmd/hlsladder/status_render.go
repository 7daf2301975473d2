package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"

	"hlsladder/internal/pipeline"
	"hlsladder/internal/transcode"
)

type statusKind int

const (
	statusInfo statusKind = iota
	statusOK
	statusWarn
	statusError
)

const (
	ansiReset  = "\x1b[0m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
	ansiBlue   = "\x1b[34m"
)

const (
	statusLabelWidth = 18
	statusIndent     = "  "
)

func renderStatusLine(label string, kind statusKind, message string, colorize bool) string {
	statusText := fmt.Sprintf("[%s]", statusKindLabel(kind))
	if message != "" {
		statusText += " " + message
	}
	line := fmt.Sprintf("%s%-*s %s", statusIndent, statusLabelWidth, label+":", statusText)
	if colorize {
		if color := statusKindColor(kind); color != "" {
			return color + line + ansiReset
		}
	}
	return line
}

func statusKindLabel(kind statusKind) string {
	switch kind {
	case statusOK:
		return "OK"
	case statusWarn:
		return "WARN"
	case statusError:
		return "ERROR"
	default:
		return "INFO"
	}
}

func statusKindColor(kind statusKind) string {
	switch kind {
	case statusOK:
		return ansiGreen
	case statusWarn:
		return ansiYellow
	case statusError:
		return ansiRed
	case statusInfo:
		return ansiBlue
	default:
		return ""
	}
}

func renderSectionHeader(title string, colorize bool) []string {
	line := fmt.Sprintf("== %s ==", strings.TrimSpace(title))
	rule := strings.Repeat("-", len(line))
	if colorize {
		line = ansiBlue + line + ansiReset
		rule = ansiBlue + rule + ansiReset
	}
	return []string{line, rule}
}

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// printRunSummary writes the per-rendition and publish outcome of a run.
func printRunSummary(out io.Writer, summary pipeline.Summary, runErr error, colorize bool) {
	for _, line := range renderSectionHeader(fmt.Sprintf("%s/%s", summary.Course, summary.Lesson), colorize) {
		fmt.Fprintln(out, line)
	}
	if summary.RunID != "" {
		fmt.Fprintln(out, renderStatusLine("Run", statusInfo, summary.RunID, colorize))
	}
	for _, o := range summary.Batch.Outcomes {
		if o.Completed() {
			fmt.Fprintln(out, renderStatusLine(o.Rendition, statusOK, formatElapsed(o.Elapsed), colorize))
			continue
		}
		fmt.Fprintln(out, renderStatusLine(o.Rendition, statusError, causeSummary(o.Cause), colorize))
	}
	if summary.ManifestPath != "" {
		fmt.Fprintln(out, renderStatusLine("Manifest", statusOK, summary.ManifestPath, colorize))
	}
	if summary.Published {
		report := summary.Report
		kind := statusOK
		if len(report.Failed()) > 0 {
			kind = statusWarn
		}
		msg := fmt.Sprintf("%d/%d uploaded (%s)", report.Succeeded(), report.Attempted(), formatBytes(report.Bytes()))
		fmt.Fprintln(out, renderStatusLine("Publish", kind, msg, colorize))
		for _, key := range report.FailedKeys() {
			fmt.Fprintln(out, renderStatusLine("Failed key", statusWarn, key, colorize))
		}
	}

	var batchErr *transcode.BatchError
	switch {
	case runErr == nil:
	case errors.As(runErr, &batchErr):
		fmt.Fprintln(out, renderStatusLine("Result", statusError, "nothing published", colorize))
	default:
		fmt.Fprintln(out, renderStatusLine("Result", statusError, runErr.Error(), colorize))
	}
}

func causeSummary(err error) string {
	if err == nil {
		return "failed"
	}
	msg := err.Error()
	if idx := strings.IndexByte(msg, '\n'); idx >= 0 {
		msg = msg[:idx]
	}
	return msg
}

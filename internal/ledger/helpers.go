package ledger

import (
	"database/sql"
	"time"
)

const runColumns = "id, course, lesson, input_path, status, error_message, renditions_total, renditions_failed, uploads_attempted, uploads_failed, started_at, finished_at"

func scanRun(scanner interface{ Scan(dest ...any) error }) (*Run, error) {
	var (
		run          Run
		inputPath    sql.NullString
		status       string
		errorMessage sql.NullString
		startedRaw   string
		finishedRaw  sql.NullString
	)
	if err := scanner.Scan(
		&run.ID,
		&run.Course,
		&run.Lesson,
		&inputPath,
		&status,
		&errorMessage,
		&run.RenditionsTotal,
		&run.RenditionsFailed,
		&run.UploadsAttempted,
		&run.UploadsFailed,
		&startedRaw,
		&finishedRaw,
	); err != nil {
		return nil, err
	}
	run.InputPath = inputPath.String
	run.Status = RunStatus(status)
	run.ErrorMessage = errorMessage.String
	run.StartedAt = parseTime(startedRaw)
	if finishedRaw.Valid {
		run.FinishedAt = parseTime(finishedRaw.String)
	}
	return &run, nil
}

// timeLayout is fixed width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(raw string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}
	}
	return t
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

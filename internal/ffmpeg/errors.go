package ffmpeg

import (
	"fmt"
	"strings"

	"hlsladder/internal/services"
)

// ExitError reports an encoder process that terminated abnormally.
type ExitError struct {
	Args []string
	// ExitCode is -1 when the process was killed or never reported a status.
	ExitCode int
	// Stderr holds the tail of the encoder's diagnostic output.
	Stderr string
}

func (e *ExitError) Error() string {
	msg := fmt.Sprintf("ffmpeg exited with status %d", e.ExitCode)
	if line := lastLine(e.Stderr); line != "" {
		msg += ": " + line
	}
	return msg
}

// Unwrap classifies every encoder exit as an external tool failure.
func (e *ExitError) Unwrap() error {
	return services.ErrExternalTool
}

// Command returns the invocation as a single shell-like string.
func (e *ExitError) Command() string {
	return strings.Join(e.Args, " ")
}

package ffmpeg

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"hlsladder/internal/logging"
	"hlsladder/internal/services"
)

var commandContext = exec.CommandContext

// waitDelay bounds how long Wait lingers on output pipes after a cancelled
// encoder is killed.
const waitDelay = 5 * time.Second

// Engine encodes one rendition. Implementations call progress zero or more
// times and return nil only when the encode finished cleanly.
type Engine interface {
	Transcode(ctx context.Context, req Request, progress func(Progress)) error
}

// Option configures the CLI engine.
type Option func(*CLI)

// WithBinary overrides the ffmpeg binary.
func WithBinary(binary string) Option {
	return func(c *CLI) {
		if binary != "" {
			c.binary = binary
		}
	}
}

// WithProbeBinary overrides the ffprobe binary.
func WithProbeBinary(binary string) Option {
	return func(c *CLI) {
		if binary != "" {
			c.probe = binary
		}
	}
}

// WithLogger routes engine logs to logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *CLI) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// CLI runs the ffmpeg command-line encoder.
type CLI struct {
	binary string
	probe  string
	logger *slog.Logger
}

// NewCLI constructs a CLI engine using defaults.
func NewCLI(opts ...Option) *CLI {
	cli := &CLI{binary: "ffmpeg", probe: "ffprobe", logger: logging.NewNop()}
	for _, opt := range opts {
		opt(cli)
	}
	return cli
}

// Transcode launches ffmpeg for req and blocks until it exits.
func (c *CLI) Transcode(ctx context.Context, req Request, progress func(Progress)) error {
	if err := req.Validate(); err != nil {
		return services.Wrap(services.ErrValidation, "transcode", "build request", err.Error(), nil)
	}
	logger := logging.WithContext(ctx, c.logger)

	duration, err := c.ProbeDuration(ctx, req.Input)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		logger.Debug("duration probe failed; progress percent unavailable", logging.Error(err))
	}

	args := BuildArgs(req)
	cmd := commandContext(ctx, c.binary, args...) //nolint:gosec
	cmd.WaitDelay = waitDelay
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("stdout pipe: %w", err)
	}
	stderr := newTailBuffer(stderrTailLimit)
	cmd.Stderr = stderr

	command := c.binary + " " + strings.Join(args, " ")
	logger.Info("encoder start", logging.String("command", command))
	if err := cmd.Start(); err != nil {
		return services.Wrap(services.ErrExternalTool, "transcode", "start ffmpeg", c.binary, err)
	}

	parser := newProgressParser(duration)
	scanner := bufio.NewScanner(stdout)
	for scanner.Scan() {
		sample, ok := parser.Feed(scanner.Text())
		if ok && progress != nil {
			progress(sample)
		}
	}
	scanErr := scanner.Err()

	if err := cmd.Wait(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("ffmpeg interrupted: %w", ctxErr)
		}
		exitErr := &ExitError{Args: append([]string{c.binary}, args...), ExitCode: -1, Stderr: stderr.String()}
		var procErr *exec.ExitError
		if errors.As(err, &procErr) {
			exitErr.ExitCode = procErr.ExitCode()
		}
		return exitErr
	}
	if scanErr != nil {
		return fmt.Errorf("read ffmpeg progress: %w", scanErr)
	}
	return nil
}

// ProbeDuration asks ffprobe for the container duration of input.
func (c *CLI) ProbeDuration(ctx context.Context, input string) (time.Duration, error) {
	cmd := commandContext(ctx, c.probe, //nolint:gosec
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		input,
	)
	out, err := cmd.Output()
	if err != nil {
		return 0, fmt.Errorf("ffprobe %s: %w", input, err)
	}
	return parseDuration(string(out))
}

func parseDuration(raw string) (time.Duration, error) {
	value := strings.TrimSpace(raw)
	if idx := strings.IndexByte(value, '\n'); idx >= 0 {
		value = strings.TrimSpace(value[:idx])
	}
	if value == "" || value == "N/A" {
		return 0, errors.New("duration unavailable")
	}
	var seconds float64
	if _, err := fmt.Sscanf(value, "%g", &seconds); err != nil {
		return 0, fmt.Errorf("parse duration %q: %w", value, err)
	}
	if seconds <= 0 {
		return 0, fmt.Errorf("non-positive duration %q", value)
	}
	return time.Duration(seconds * float64(time.Second)), nil
}

var _ Engine = (*CLI)(nil)

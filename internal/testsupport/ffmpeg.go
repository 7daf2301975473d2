package testsupport

import (
	"fmt"
	"path/filepath"
	"strings"
	"testing"
)

// FFmpegStub describes the behaviour of a scripted ffmpeg used in tests.
// The script writes Segments files plus the playlist named by its last
// argument and reports progress against a DurationSeconds input.
type FFmpegStub struct {
	Segments        int
	DurationSeconds int
	// FailWidths lists scale widths whose encode fails after reporting
	// FailPercent progress.
	FailWidths  []int
	FailPercent int
	// FailMessage is written to stderr before a failing exit.
	FailMessage string
	// ArgsLog, when set, receives one line of arguments per invocation.
	ArgsLog string
}

// Install writes ffmpeg and ffprobe scripts into dir.
func (s FFmpegStub) Install(t testing.TB, dir string) {
	t.Helper()

	duration := s.DurationSeconds
	if duration <= 0 {
		duration = 10
	}
	WriteScript(t, filepath.Join(dir, "ffprobe"), fmt.Sprintf("echo %d.000000\n", duration))
	WriteScript(t, filepath.Join(dir, "ffmpeg"), s.script(duration))
}

func (s FFmpegStub) script(duration int) string {
	segments := s.Segments
	if segments <= 0 {
		segments = 2
	}
	failMessage := s.FailMessage
	if failMessage == "" {
		failMessage = "Conversion failed!"
	}
	failAt := int64(duration) * int64(s.FailPercent) * 10000

	var b strings.Builder
	b.WriteString("last=\"\"\nfor arg in \"$@\"; do last=\"$arg\"; done\n")
	b.WriteString("dir=$(dirname \"$last\")\n")
	if s.ArgsLog != "" {
		fmt.Fprintf(&b, "echo \"$*\" >> %q\n", s.ArgsLog)
	}
	b.WriteString("fail=\"\"\ncase \"$*\" in\n")
	for _, w := range s.FailWidths {
		fmt.Fprintf(&b, "  *\"scale=w=%d:\"*) fail=1 ;;\n", w)
	}
	b.WriteString("esac\n")
	b.WriteString("printf 'frame=1\\nfps=0.0\\nout_time_us=0\\nout_time=00:00:00.000000\\nprogress=continue\\n'\n")
	b.WriteString("if [ -n \"$fail\" ]; then\n")
	fmt.Fprintf(&b, "  printf 'frame=100\\nfps=25.0\\nout_time_us=%d\\nout_time=00:00:04.000000\\nprogress=continue\\n'\n", failAt)
	fmt.Fprintf(&b, "  echo %q >&2\n  exit 1\nfi\n", failMessage)
	fmt.Fprintf(&b, "i=0\nwhile [ $i -lt %d ]; do\n  printf 'seg' > \"$dir/$(printf '%%03d' $i).ts\"\n  i=$((i+1))\ndone\n", segments)
	b.WriteString("printf '#EXTM3U\\n#EXT-X-ENDLIST\\n' > \"$last\"\n")
	fmt.Fprintf(&b, "printf 'frame=250\\nfps=25.0\\nout_time_us=%d\\nout_time=00:00:%02d.000000\\nprogress=end\\n'\n", int64(duration)*1000000, duration%60)
	b.WriteString("exit 0\n")
	return b.String()
}

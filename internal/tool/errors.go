package tool

import (
	"os/exec"
	"regexp"
	"strings"

	"github.com/cockroachdb/errors"
)

// tailLines is how much captured stderr a failure message keeps.
const tailLines = 20

// Pre-compiled regexes for classifying tool stderr into failure classes.
// Checked in order by [Hint]; the first match wins.
var (
	reNoSpace = regexp.MustCompile(`(?i)no space left on device|disk quota exceeded`)

	reOutOfMemory = regexp.MustCompile(
		`(?i)cannot allocate memory|out of memory|MemoryError|std::bad_alloc|oom-kill`)

	reMissingFile = regexp.MustCompile(
		`(?i)no such file or directory|FileNotFoundError|does not exist|failed to open`)

	reCommandNotFound = regexp.MustCompile(`(?i)command not found|not found in PATH`)

	rePermission = regexp.MustCompile(`(?i)permission denied`)

	reTruncatedInput = regexp.MustCompile(
		`(?i)unexpected end of file|igzip: Error|invalid compressed data|truncated`)
)

var hints = []struct {
	re   *regexp.Regexp
	hint string
}{
	{reNoSpace, "no space left on device"},
	{reOutOfMemory, "out of memory; lower --threads or --sample-threads"},
	{reCommandNotFound, "command not found; run `umipipe check`"},
	{reTruncatedInput, "input looks truncated or corrupt"},
	{rePermission, "permission denied"},
	{reMissingFile, "missing input or output path"},
}

// Hint returns a short explanation for stderr, or "" when nothing matches.
func Hint(stderr string) string {
	for _, h := range hints {
		if h.re.MatchString(stderr) {
			return h.hint
		}
	}
	return ""
}

// Tail returns the last n non-empty lines of s.
func Tail(s string, n int) []string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	out := lines[:0]
	for _, l := range lines {
		if strings.TrimSpace(l) != "" {
			out = append(out, strings.TrimRight(l, "\r"))
		}
	}
	if len(out) > n {
		out = out[len(out)-n:]
	}
	return out
}

// Diagnose composes the failure message of a stage from the run error and
// the captured stderr.
func Diagnose(name, stderr string, runErr error) string {
	var b strings.Builder
	switch {
	case errors.Is(runErr, exec.ErrNotFound):
		b.WriteString(name + ": executable not found on PATH")
	case runErr != nil:
		b.WriteString(runErr.Error())
	}
	if h := Hint(stderr); h != "" {
		b.WriteString(" (" + h + ")")
	}
	if tail := Tail(stderr, tailLines); len(tail) > 0 {
		b.WriteString("\n")
		b.WriteString(strings.Join(tail, "\n"))
	}
	return b.String()
}

// ExitCode extracts the process exit status, or -1 when the process never
// ran or was killed by a signal.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var ee *exec.ExitError
	if errors.As(err, &ee) {
		return ee.ExitCode()
	}
	return -1
}

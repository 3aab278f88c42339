package tool

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/sfilges/umiPipeline/internal/display"
	"github.com/sfilges/umiPipeline/internal/logging"
)

// maxCapture bounds the stderr kept in memory per process.
const maxCapture = 256 << 10

// waitDelay bounds how long Wait blocks on inherited pipes after the
// process is killed (child processes can outlive their parent).
const waitDelay = 5 * time.Second

// ExecRunner runs invocations as child processes.
type ExecRunner struct {
	// Timeout kills a stage that runs longer; 0 disables.
	Timeout time.Duration
	// Verbose tees the tool's stdout and stderr to Stdout/Stderr in real time.
	Verbose bool
	Stdout  io.Writer // Defaults to os.Stdout.
	Stderr  io.Writer // Defaults to os.Stderr.
}

// Run executes inv and reports its outcome. It never panics on launch
// errors: a missing binary is a failure result like any other.
func (r *ExecRunner) Run(ctx context.Context, inv Invocation) StageResult {
	res := StageResult{Stage: inv.Stage, Sample: inv.Sample, Command: inv.CommandLine()}
	if err := ctx.Err(); err != nil {
		res.Status = StatusCancelled
		res.ExitCode = -1
		res.Message = "not started: " + err.Error()
		return res
	}

	runCtx := ctx
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(runCtx, inv.Name, inv.Args...)
	cmd.Dir = inv.Dir
	cmd.WaitDelay = waitDelay
	killProcessGroup(cmd)

	stderrBuf := &tailBuffer{max: maxCapture}
	if r.Verbose {
		cmd.Stdout = orDefault(r.Stdout, os.Stdout)
		cmd.Stderr = io.MultiWriter(stderrBuf, orDefault(r.Stderr, os.Stderr))
	} else {
		cmd.Stderr = stderrBuf
	}

	start := time.Now()
	err := cmd.Run()
	res.Duration = time.Since(start)
	res.ExitCode = ExitCode(err)

	switch {
	case err == nil:
		res.Status = StatusSuccess
	case ctx.Err() != nil:
		res.Status = StatusCancelled
		res.Message = "interrupted: " + ctx.Err().Error()
	case errors.Is(runCtx.Err(), context.DeadlineExceeded):
		res.Status = StatusFailure
		res.Message = fmt.Sprintf("timed out after %s", display.FormatDuration(r.Timeout))
		if tail := Tail(stderrBuf.String(), tailLines); len(tail) > 0 {
			res.Message += "\n" + strings.Join(tail, "\n")
		}
	default:
		res.Status = StatusFailure
		res.Message = Diagnose(inv.Name, stderrBuf.String(), err)
	}
	return res
}

// DryRunner logs each command line instead of running it.
type DryRunner struct {
	Log *logging.Logger
}

// Run logs inv and reports success without spawning anything.
func (r *DryRunner) Run(ctx context.Context, inv Invocation) StageResult {
	res := StageResult{Stage: inv.Stage, Sample: inv.Sample, Command: inv.CommandLine()}
	if err := ctx.Err(); err != nil {
		res.Status = StatusCancelled
		res.ExitCode = -1
		res.Message = "not started: " + err.Error()
		return res
	}
	r.Log.Info("[DRY] %s", res.Command)
	res.Status = StatusSuccess
	return res
}

// tailBuffer keeps at most max bytes, discarding the oldest output.
type tailBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
	max int
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := len(p)
	if n >= t.max {
		t.buf.Reset()
		t.buf.Write(p[n-t.max:])
		return n, nil
	}
	if over := t.buf.Len() + n - t.max; over > 0 {
		t.buf.Next(over)
	}
	t.buf.Write(p)
	return n, nil
}

func (t *tailBuffer) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.buf.String()
}

func orDefault(w io.Writer, def io.Writer) io.Writer {
	if w == nil {
		return def
	}
	return w
}

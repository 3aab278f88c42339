//go:build unix

package tool

import (
	"os"
	"os/exec"
	"syscall"

	"github.com/cockroachdb/errors"
)

// killProcessGroup starts the tool in its own process group so that
// cancellation also reaches helpers it spawns (e.g. bwa under the
// error-correction driver).
func killProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		if cmd.Process == nil {
			return nil
		}
		err := syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
		if errors.Is(err, syscall.ESRCH) {
			return os.ErrProcessDone
		}
		return err
	}
}

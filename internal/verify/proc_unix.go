//go:build unix

package verify

import (
	"os/exec"
	"syscall"
)

// setProcessGroup places the child in its own process group and installs a
// cancel function that signals the whole group. Killing only the direct
// child would orphan anything it spawned; smoke entry points routinely go
// through a shell or interpreter.
func setProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		if cmd.Process == nil {
			return nil
		}
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}
}

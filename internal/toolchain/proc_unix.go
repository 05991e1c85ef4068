//go:build unix

package toolchain

import (
	"os/exec"
	"syscall"
)

// Starts the command in its own process group and kills the whole group
// on cancellation, so compilers spawned by build drivers die too.
func setProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}
}

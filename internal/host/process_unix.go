//go:build unix

package host

import (
	"os/exec"
	"syscall"

	"golang.org/x/sys/unix"
)

// isolate puts the worker in its own process group so that Kill also takes
// down anything it started.
func isolate(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

func killGroup(cmd *exec.Cmd) error {
	if cmd.Process == nil {
		return nil
	}
	err := unix.Kill(-cmd.Process.Pid, unix.SIGKILL)
	if err == unix.ESRCH {
		return nil
	}
	return err
}

//go:build !windows

package daemon

import (
	"os/exec"
	"syscall"
)

// detach starts cmd in its own session
func detach(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setsid: true,
	}
}

//go:build !windows

package modules

import (
	"os/exec"
	"syscall"
)

// detach puts the launched application in its own process group so it
// survives the agent exiting.
func detach(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

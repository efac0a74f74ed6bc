//go:build windows

package modules

import (
	"os/exec"
	"syscall"
)

const createNewProcessGroup = 0x00000200

// detach puts the launched application in its own process group so it
// survives the agent exiting.
func detach(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{CreationFlags: createNewProcessGroup}
}

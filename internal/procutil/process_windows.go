//go:build windows

package procutil

import (
	"fmt"
	"os/exec"
	"strconv"
	"syscall"
)

func ConfigureProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		CreationFlags: syscall.CREATE_NEW_PROCESS_GROUP,
	}
}

// KillProcessTree terminates pid and its children with taskkill.
func KillProcessTree(pid int) error {
	out, err := exec.Command("taskkill", "/T", "/F", "/PID", strconv.Itoa(pid)).CombinedOutput()
	if err != nil {
		return fmt.Errorf("taskkill of process %d: %w: %s", pid, err, out)
	}
	return nil
}

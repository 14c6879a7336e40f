//go:build !windows

package procutil

import (
	"fmt"
	"os/exec"
	"syscall"
)

// ConfigureProcessGroup starts cmd as the leader of a new process group so
// the whole tree can be killed later.
func ConfigureProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

// KillProcessTree kills the process group led by pid, falling back to the
// single process.
func KillProcessTree(pid int) error {
	if err := syscall.Kill(-pid, syscall.SIGKILL); err != nil {
		if err2 := syscall.Kill(pid, syscall.SIGKILL); err2 != nil {
			return fmt.Errorf("killing process group -%d: %v, also failed to kill process %d: %w", pid, err, pid, err2)
		}
	}
	return nil
}

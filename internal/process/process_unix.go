//go:build !windows

package process

import (
	"errors"
	"fmt"
	"os/exec"
	"syscall"
)

// configureProcAttr configures the process attributes for creating a new process group
func configureProcAttr(cmd *exec.Cmd) {
	// Signals sent to the group reach every process the child spawns. A
	// Ctrl-C in the terminal reaches the orchestrator only.
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setpgid: true, // Create new process group with this process as leader
	}
}

// signalGroup sends a signal to an entire process group to reach parent and all children
func signalGroup(pid int, sig syscall.Signal) error {
	// Negative PID addresses the entire process group
	err := syscall.Kill(-pid, sig)
	if err == nil || errors.Is(err, syscall.ESRCH) {
		return nil
	}
	// If process group kill fails, try the individual process
	if err2 := syscall.Kill(pid, sig); err2 != nil && !errors.Is(err2, syscall.ESRCH) {
		return fmt.Errorf("failed to signal process group -%d: %v, also failed to signal process %d: %v", pid, err, pid, err2)
	}
	return nil
}

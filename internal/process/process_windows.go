//go:build windows

package process

import (
	"fmt"
	"os/exec"
	"syscall"
)

// Windows API constants
const (
	processTerminate        = 0x0001
	processQueryInformation = 0x0400
)

// Windows API functions
var (
	kernel32             = syscall.NewLazyDLL("kernel32.dll")
	procOpenProcess      = kernel32.NewProc("OpenProcess")
	procTerminateProcess = kernel32.NewProc("TerminateProcess")
	procCloseHandle      = kernel32.NewProc("CloseHandle")
)

// configureProcAttr configures the process attributes for Windows
func configureProcAttr(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		CreationFlags: syscall.CREATE_NEW_PROCESS_GROUP,
	}
}

// signalGroup terminates the process. Windows has no SIGTERM, so every
// signal ends the process immediately.
func signalGroup(pid int, sig syscall.Signal) error {
	handle, _, _ := procOpenProcess.Call(
		uintptr(processTerminate|processQueryInformation),
		uintptr(0), // bInheritHandle = FALSE
		uintptr(pid),
	)
	if handle == 0 {
		// Already gone.
		return nil
	}
	defer procCloseHandle.Call(handle)

	success, _, err := procTerminateProcess.Call(handle, uintptr(1))
	if success == 0 {
		return fmt.Errorf("failed to terminate process %d: %v", pid, err)
	}
	return nil
}

//go:build !windows

package orchestrator

import "syscall"

var zeroSignal = syscall.Signal(0)

package process

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"sync"
	"syscall"
	"time"
)

// DefaultTailLines is how many output lines are kept when Options.TailLines
// is zero.
const DefaultTailLines = 20

// waitDelay bounds how long Wait keeps reading output after the child exits,
// in case a grandchild still holds the pipes.
const waitDelay = 2 * time.Second

// Options describes a child process.
type Options struct {
	Name string
	Args []string
	Dir  string
	// Env is the complete environment of the child.
	Env []string
	// Output receives stdout and stderr. It is closed after the child exits
	// if it implements io.Closer.
	Output    io.Writer
	TailLines int
}

// Process is a running (or exited) child.
type Process struct {
	name string
	cmd  *exec.Cmd
	tail *Tail

	done    chan struct{}
	waitErr error

	reapOnce sync.Once
}

// Start launches the child. A non-nil error means no process was created.
func Start(opts Options) (*Process, error) {
	if len(opts.Args) == 0 {
		return nil, errors.New("empty command")
	}

	lines := opts.TailLines
	if lines <= 0 {
		lines = DefaultTailLines
	}
	tail := NewTail(lines)

	var out io.Writer = tail
	if opts.Output != nil {
		out = io.MultiWriter(tail, opts.Output)
	}

	cmd := exec.Command(opts.Args[0], opts.Args[1:]...)
	cmd.Dir = opts.Dir
	cmd.Env = opts.Env
	cmd.Stdout = out
	cmd.Stderr = out
	cmd.WaitDelay = waitDelay
	configureProcAttr(cmd)

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("starting %s: %w", opts.Name, err)
	}

	p := &Process{
		name: opts.Name,
		cmd:  cmd,
		tail: tail,
		done: make(chan struct{}),
	}

	go func() {
		p.waitErr = cmd.Wait()
		if c, ok := opts.Output.(io.Closer); ok {
			c.Close()
		}
		close(p.done)
	}()

	return p, nil
}

// PID returns the process ID.
func (p *Process) PID() int {
	return p.cmd.Process.Pid
}

// Done is closed once the child has exited and been reaped.
func (p *Process) Done() <-chan struct{} {
	return p.done
}

// Exited reports whether the child has been reaped.
func (p *Process) Exited() bool {
	select {
	case <-p.done:
		return true
	default:
		return false
	}
}

// ExitError returns the result of Wait. It is only meaningful once Done is
// closed.
func (p *Process) ExitError() error {
	select {
	case <-p.done:
		return p.waitErr
	default:
		return nil
	}
}

// ExitCode returns the exit code of the child, or -1 while it is running or
// when it was killed by a signal.
func (p *Process) ExitCode() int {
	if !p.Exited() {
		return -1
	}
	return p.cmd.ProcessState.ExitCode()
}

// Tail returns the last lines the child printed.
func (p *Process) Tail() []string {
	return p.tail.Lines()
}

// Signal sends sig to the process group of the child.
func (p *Process) Signal(sig syscall.Signal) error {
	if p.Exited() {
		return nil
	}
	return signalGroup(p.PID(), sig)
}

// StopResult describes how Terminate ended.
type StopResult struct {
	// Escalated is true when SIGKILL had to be sent.
	Escalated bool
	// Reaped is false only when the child was still not reaped killTimeout
	// after SIGKILL.
	Reaped bool
}

// Terminate sends SIGTERM to the process group, waits up to grace for the
// child to exit, then sends SIGKILL and waits up to killTimeout. Cancelling
// ctx ends the grace period early. Leftover members of the group are killed
// once the leader is gone.
func (p *Process) Terminate(ctx context.Context, grace, killTimeout time.Duration) StopResult {
	if p.Exited() {
		p.reapGroup()
		return StopResult{Reaped: true}
	}

	_ = signalGroup(p.PID(), syscall.SIGTERM)

	graceTimer := time.NewTimer(grace)
	defer graceTimer.Stop()

	select {
	case <-p.done:
		p.reapGroup()
		return StopResult{Reaped: true}
	case <-graceTimer.C:
	case <-ctx.Done():
	}

	_ = signalGroup(p.PID(), syscall.SIGKILL)

	killTimer := time.NewTimer(killTimeout)
	defer killTimer.Stop()

	select {
	case <-p.done:
		return StopResult{Escalated: true, Reaped: true}
	case <-killTimer.C:
		return StopResult{Escalated: true, Reaped: false}
	}
}

// reapGroup kills what is left of the process group after the leader was
// reaped. The group ID stays reserved while any member lives, so the signal
// reaches leftovers or nobody. It is sent once: after the group has emptied
// the ID may be handed to an unrelated process.
func (p *Process) reapGroup() {
	p.reapOnce.Do(func() {
		_ = signalGroup(p.PID(), syscall.SIGKILL)
	})
}

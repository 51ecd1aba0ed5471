//go:build !windows

package runner

import (
	"errors"
	"os/exec"
	"syscall"
)

// setProcessGroup places the child in its own process group so the whole
// tree can be signalled together.
func setProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setpgid: true,
	}
}

// processGroup resolves the process group ID for pid, or 0 when unknown.
func processGroup(pid int) int {
	if pid <= 0 {
		return 0
	}

	pgid, err := syscall.Getpgid(pid)
	if err != nil {
		return 0
	}

	return pgid
}

// signalGroup sends sig to the process group when known, falling back to the
// single process.
func signalGroup(pid, pgid int, sig syscall.Signal) error {
	if pgid > 0 {
		return syscall.Kill(-pgid, sig)
	}

	if pid <= 0 {
		return nil
	}

	return syscall.Kill(pid, sig)
}

// exitSignaled reports whether err is a process exit caused by a signal,
// which is the expected outcome of a terminated run.
func exitSignaled(err error) bool {
	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		return false
	}

	status, ok := exitErr.Sys().(syscall.WaitStatus)
	if !ok {
		return false
	}

	return status.Signaled()
}

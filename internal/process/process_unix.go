//go:build !windows

package process

import (
	"context"
	"errors"
	"syscall"
	"time"
)

// GroupID returns the process group of pid, or 0 when it cannot be read.
func GroupID(pid int) int {
	if pid <= 0 {
		return 0
	}
	pgid, err := syscall.Getpgid(pid)
	if err != nil {
		return 0
	}
	return pgid
}

func stopProcess(ctx context.Context, pid, pgid int, grace time.Duration, wait func(context.Context) error) error {
	if pid <= 0 {
		return nil
	}
	if !isProcessAlive(pid) {
		return ErrProcessNotFound
	}
	hupErr := signalProcessGroup(pid, pgid, syscall.SIGHUP)
	if errors.Is(hupErr, syscall.ESRCH) {
		hupErr = nil
	}

	graceCtx, cancel := context.WithTimeout(ctx, grace)
	waitErr := wait(graceCtx)
	cancel()
	if waitErr == nil || isExpectedExit(waitErr) {
		return hupErr
	}

	killErr := signalProcessGroup(pid, pgid, syscall.SIGKILL)
	if errors.Is(killErr, syscall.ESRCH) {
		killErr = nil
	}
	finalErr := wait(ctx)
	if finalErr == nil || isExpectedExit(finalErr) {
		return errors.Join(hupErr, killErr)
	}
	return errors.Join(hupErr, killErr, finalErr)
}

func signalProcessGroup(pid, pgid int, sig syscall.Signal) error {
	target := pid
	if pgid > 0 {
		target = -pgid
	}
	return syscall.Kill(target, sig)
}

func isProcessAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	err := syscall.Kill(pid, 0)
	if err == nil {
		return true
	}
	return errors.Is(err, syscall.EPERM)
}

//go:build windows

package process

import (
	"context"
	"errors"
	"os"
	"time"
)

func GroupID(pid int) int {
	return 0
}

// Windows has no hangup signal, so the grace period is skipped.
func stopProcess(ctx context.Context, pid, _ int, _ time.Duration, wait func(context.Context) error) error {
	if pid <= 0 {
		return nil
	}
	process, err := os.FindProcess(pid)
	if err != nil {
		return ErrProcessNotFound
	}
	killErr := process.Kill()
	if errors.Is(killErr, os.ErrProcessDone) {
		killErr = nil
	}
	waitErr := wait(ctx)
	if waitErr == nil || isExpectedExit(waitErr) {
		return killErr
	}
	return errors.Join(killErr, waitErr)
}

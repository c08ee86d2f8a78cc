package process

import (
	"context"
	"errors"
	"os/exec"
	"time"
)

// ErrProcessNotFound is returned when the process has already been reaped.
var ErrProcessNotFound = errors.New("process not running")

// DefaultGrace bounds how long Stop waits after the hangup before killing.
const DefaultGrace = 2 * time.Second

// Stop hangs up cmd's process group and reaps it. Processes still alive
// after grace are killed. A non-zero exit caused by the hangup is not an error.
func Stop(ctx context.Context, cmd *exec.Cmd, grace time.Duration) error {
	if cmd == nil || cmd.Process == nil {
		return nil
	}
	if cmd.ProcessState != nil {
		return ErrProcessNotFound
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if grace <= 0 {
		grace = DefaultGrace
	}

	done := make(chan struct{})
	var waitErr error
	go func() {
		waitErr = cmd.Wait()
		close(done)
	}()
	wait := func(ctx context.Context) error {
		select {
		case <-done:
			return waitErr
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	pid := cmd.Process.Pid
	return stopProcess(ctx, pid, GroupID(pid), grace, wait)
}

func isExpectedExit(err error) bool {
	var exitErr *exec.ExitError
	return errors.As(err, &exitErr)
}

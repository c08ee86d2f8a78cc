package terminal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"sync/atomic"

	"ariaterm/internal/logging"
	"ariaterm/internal/process"
)

var ErrSessionClosed = errors.New("terminal session closed")

type SessionState uint32

const (
	sessionStateRunning SessionState = iota
	sessionStateClosing
	sessionStateClosed
)

func (s SessionState) String() string {
	switch s {
	case sessionStateClosing:
		return "closing"
	case sessionStateClosed:
		return "closed"
	default:
		return "running"
	}
}

type SessionOptions struct {
	// Shell is a command line such as "bash -l". Empty means DefaultShell.
	Shell string
	// Args, when set, are passed as-is and Shell is not split.
	Args    []string
	Size    Size
	Factory PtyFactory
	// Tee receives raw output before it is filtered for speech.
	Tee    io.Writer
	Logger *logging.Logger
}

// Session runs a shell under a pty and feeds its output to an Announcer.
type Session struct {
	pty    Pty
	cmd    *exec.Cmd
	feeder *Feeder
	logger *logging.Logger

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	closing  sync.Once
	closeErr error
	runErr   error
	state    uint32
}

func StartSession(ctx context.Context, announcer Announcer, options SessionOptions) (*Session, error) {
	command, args, err := resolveCommand(options.Shell, options.Args)
	if err != nil {
		return nil, err
	}
	factory := options.Factory
	if factory == nil {
		factory = DefaultPtyFactory()
	}
	size := options.Size
	if size.Cols == 0 || size.Rows == 0 {
		size = Size{Cols: 80, Rows: 24}
	}

	pty, cmd, err := factory.Start(size, command, args...)
	if err != nil {
		return nil, fmt.Errorf("start %s: %w", command, err)
	}

	if ctx == nil {
		ctx = context.Background()
	}
	sessionCtx, cancel := context.WithCancel(ctx)
	logger := options.Logger.Component("terminal")
	session := &Session{
		pty:    pty,
		cmd:    cmd,
		feeder: NewFeeder(announcer, options.Tee),
		logger: logger,
		ctx:    sessionCtx,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	logger.Info("terminal session started", map[string]string{
		"command": command,
		"cols":    fmt.Sprint(size.Cols),
		"rows":    fmt.Sprint(size.Rows),
	})

	go session.readLoop()
	go func() {
		<-sessionCtx.Done()
		_ = session.Close()
	}()
	return session, nil
}

func resolveCommand(shell string, args []string) (string, []string, error) {
	shell = strings.TrimSpace(shell)
	if shell == "" {
		shell = DefaultShell()
	}
	if len(args) > 0 {
		return shell, args, nil
	}
	return splitCommandLine(shell)
}

// Write forwards keyboard input to the shell.
func (s *Session) Write(data []byte) error {
	if s.State() != sessionStateRunning {
		return ErrSessionClosed
	}
	if _, err := s.pty.Write(data); err != nil {
		return fmt.Errorf("write pty: %w", err)
	}
	return nil
}

func (s *Session) Resize(cols, rows uint16) error {
	if s.State() != sessionStateRunning {
		return ErrSessionClosed
	}
	if cols == 0 || rows == 0 {
		return fmt.Errorf("invalid size %dx%d", cols, rows)
	}
	return s.pty.Resize(cols, rows)
}

// Done is closed once the output has been fully read.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Err reports why reading stopped. It is nil after a clean exit.
func (s *Session) Err() error {
	<-s.done
	return s.runErr
}

func (s *Session) Close() error {
	s.closing.Do(func() {
		s.setState(sessionStateClosing)
		s.cancel()
		s.closeErr = s.closeResources()
		s.setState(sessionStateClosed)
	})
	return s.closeErr
}

func (s *Session) State() SessionState {
	return SessionState(atomic.LoadUint32(&s.state))
}

func (s *Session) setState(state SessionState) {
	atomic.StoreUint32(&s.state, uint32(state))
}

func (s *Session) closeResources() error {
	var errs []error
	if s.pty != nil {
		if err := s.pty.Close(); err != nil && !errors.Is(err, os.ErrClosed) {
			errs = append(errs, fmt.Errorf("close pty: %w", err))
		}
	}
	if err := process.Stop(context.Background(), s.cmd, process.DefaultGrace); err != nil && !errors.Is(err, process.ErrProcessNotFound) {
		errs = append(errs, fmt.Errorf("stop shell: %w", err))
	}
	return errors.Join(errs...)
}

func (s *Session) readLoop() {
	defer close(s.done)
	err := s.feeder.Run(s.ctx, s.pty)
	// Reads fail once Close has torn the pty down; that is not a failure.
	if err != nil && s.State() == sessionStateRunning && !errors.Is(err, context.Canceled) {
		s.runErr = err
		s.logger.Warn("terminal read failed", map[string]string{"error": err.Error()})
	} else {
		s.logger.Info("terminal session ended", nil)
	}
	_ = s.Close()
}

package terminal

import "os/exec"

// Pty is the controlling side of a pseudo-terminal.
type Pty interface {
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
	Close() error
	Resize(cols, rows uint16) error
}

// PtyFactory starts a command attached to a new pseudo-terminal.
type PtyFactory interface {
	Start(size Size, command string, args ...string) (Pty, *exec.Cmd, error)
}

type Size struct {
	Cols uint16
	Rows uint16
}

type defaultPtyFactory struct{}

func (defaultPtyFactory) Start(size Size, command string, args ...string) (Pty, *exec.Cmd, error) {
	return startPty(size, command, args...)
}

func DefaultPtyFactory() PtyFactory {
	return defaultPtyFactory{}
}

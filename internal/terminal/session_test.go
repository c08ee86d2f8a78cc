package terminal

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os/exec"
	"sync"
	"testing"
	"time"
)

type fakePty struct {
	reader *io.PipeReader
	writer *io.PipeWriter

	mu      sync.Mutex
	input   bytes.Buffer
	resizes []Size
	closed  bool
}

func newFakePty() *fakePty {
	reader, writer := io.Pipe()
	return &fakePty{reader: reader, writer: writer}
}

func (p *fakePty) Read(data []byte) (int, error) {
	return p.reader.Read(data)
}

func (p *fakePty) Write(data []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.input.Write(data)
}

func (p *fakePty) Close() error {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
	_ = p.writer.Close()
	return p.reader.Close()
}

func (p *fakePty) Resize(cols, rows uint16) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.resizes = append(p.resizes, Size{Cols: cols, Rows: rows})
	return nil
}

func (p *fakePty) emit(t *testing.T, text string) {
	t.Helper()
	if _, err := p.writer.Write([]byte(text)); err != nil {
		t.Fatalf("emit: %v", err)
	}
}

type fakeFactory struct {
	pty     *fakePty
	err     error
	command string
	args    []string
	size    Size
}

func (f *fakeFactory) Start(size Size, command string, args ...string) (Pty, *exec.Cmd, error) {
	f.command = command
	f.args = args
	f.size = size
	if f.err != nil {
		return nil, nil, f.err
	}
	return f.pty, nil, nil
}

func waitDone(t *testing.T, session *Session) {
	t.Helper()
	select {
	case <-session.Done():
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for session to end")
	}
}

func TestStartSessionFeedsAnnouncer(t *testing.T) {
	pty := newFakePty()
	factory := &fakeFactory{pty: pty}
	announcer := &recordingAnnouncer{}

	session, err := StartSession(context.Background(), announcer, SessionOptions{
		Shell:   "bash -l",
		Size:    Size{Cols: 100, Rows: 30},
		Factory: factory,
	})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if factory.command != "bash" || len(factory.args) != 1 || factory.args[0] != "-l" {
		t.Fatalf("unexpected command %q %v", factory.command, factory.args)
	}
	if factory.size != (Size{Cols: 100, Rows: 30}) {
		t.Fatalf("unexpected size %+v", factory.size)
	}

	pty.emit(t, "\x1b[1mhello\x1b[0m\r\n")
	if err := pty.writer.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	waitDone(t, session)

	if got := announcer.joined(); got != "hello\n" {
		t.Fatalf("unexpected announced text %q", got)
	}
	if err := session.Err(); err != nil {
		t.Fatalf("expected clean exit, got %v", err)
	}
	if session.State() != sessionStateClosed {
		t.Fatalf("expected closed state, got %s", session.State())
	}
}

func TestSessionWriteAndResize(t *testing.T) {
	pty := newFakePty()
	session, err := StartSession(context.Background(), &recordingAnnouncer{}, SessionOptions{
		Shell:   "/bin/sh",
		Factory: &fakeFactory{pty: pty},
	})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	defer session.Close()

	if err := session.Write([]byte("ls\n")); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := session.Resize(120, 40); err != nil {
		t.Fatalf("resize: %v", err)
	}
	if err := session.Resize(0, 40); err == nil {
		t.Fatalf("expected zero size to be rejected")
	}

	pty.mu.Lock()
	input := pty.input.String()
	resizes := append([]Size(nil), pty.resizes...)
	pty.mu.Unlock()
	if input != "ls\n" {
		t.Fatalf("unexpected input %q", input)
	}
	if len(resizes) != 1 || resizes[0] != (Size{Cols: 120, Rows: 40}) {
		t.Fatalf("unexpected resizes %v", resizes)
	}
}

func TestSessionCloseStopsWrites(t *testing.T) {
	pty := newFakePty()
	session, err := StartSession(context.Background(), &recordingAnnouncer{}, SessionOptions{
		Shell:   "/bin/sh",
		Factory: &fakeFactory{pty: pty},
	})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := session.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	waitDone(t, session)
	if err := session.Write([]byte("x")); !errors.Is(err, ErrSessionClosed) {
		t.Fatalf("expected ErrSessionClosed, got %v", err)
	}
	if err := session.Close(); err != nil {
		t.Fatalf("expected second close to be a no-op, got %v", err)
	}
}

func TestSessionEndsWhenContextCancelled(t *testing.T) {
	pty := newFakePty()
	ctx, cancel := context.WithCancel(context.Background())
	session, err := StartSession(ctx, &recordingAnnouncer{}, SessionOptions{
		Shell:   "/bin/sh",
		Factory: &fakeFactory{pty: pty},
	})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	cancel()
	waitDone(t, session)
	pty.mu.Lock()
	closed := pty.closed
	pty.mu.Unlock()
	if !closed {
		t.Fatalf("expected pty closed after cancel")
	}
}

func TestStartSessionErrors(t *testing.T) {
	boom := errors.New("no pty")
	_, err := StartSession(context.Background(), &recordingAnnouncer{}, SessionOptions{
		Shell:   "/bin/sh",
		Factory: &fakeFactory{err: boom},
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected factory error, got %v", err)
	}

	_, err = StartSession(context.Background(), &recordingAnnouncer{}, SessionOptions{
		Shell:   "sh -c 'unterminated",
		Factory: &fakeFactory{pty: newFakePty()},
	})
	if err == nil {
		t.Fatalf("expected command line error")
	}
}

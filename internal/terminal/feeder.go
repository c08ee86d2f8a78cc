package terminal

import (
	"context"
	"errors"
	"io"
	"os"
	"syscall"
)

const readBufferSize = 4096

// Announcer receives speakable terminal text. *announce.Reader satisfies it;
// text arriving mid-line continues the previous chunk.
type Announcer interface {
	AnnounceText(text string) bool
}

// Feeder turns raw terminal output into announcements.
type Feeder struct {
	announcer Announcer
	filter    *FilterChain
	tee       io.Writer
}

// NewFeeder creates a feeder. When tee is non-nil the raw output is copied to
// it before filtering, so a local user still sees the terminal.
func NewFeeder(announcer Announcer, tee io.Writer) *Feeder {
	return &Feeder{
		announcer: announcer,
		filter:    NewSpeechFilter(),
		tee:       tee,
	}
}

// Write filters one chunk of output and announces what is left.
func (f *Feeder) Write(chunk []byte) (int, error) {
	if f.tee != nil {
		if _, err := f.tee.Write(chunk); err != nil {
			return 0, err
		}
	}
	f.announce(f.filter.Write(chunk))
	return len(chunk), nil
}

// Flush announces anything the filters were holding back.
func (f *Feeder) Flush() {
	f.announce(f.filter.Flush())
}

// Run copies source into the feeder until EOF, an error or ctx is done. EOF
// and the EIO a pty returns once its child exits are not errors.
func (f *Feeder) Run(ctx context.Context, source io.Reader) error {
	defer f.Flush()
	buf := make([]byte, readBufferSize)
	for {
		if ctx != nil && ctx.Err() != nil {
			return ctx.Err()
		}
		n, err := source.Read(buf)
		if n > 0 {
			if _, writeErr := f.Write(buf[:n]); writeErr != nil {
				return writeErr
			}
		}
		if err != nil {
			if isEndOfOutput(err) {
				return nil
			}
			return err
		}
	}
}

func (f *Feeder) announce(text []byte) {
	if len(text) == 0 || f.announcer == nil {
		return
	}
	_ = f.announcer.AnnounceText(string(text))
}

func isEndOfOutput(err error) bool {
	return errors.Is(err, io.EOF) || errors.Is(err, os.ErrClosed) || errors.Is(err, syscall.EIO)
}

package terminal

import "unicode/utf8"

// NewUTF8GuardFilter holds back a rune split across two reads and replaces
// invalid bytes with U+FFFD.
func NewUTF8GuardFilter() OutputFilter {
	return &utf8GuardFilter{}
}

type utf8GuardFilter struct {
	pending []byte
}

func (f *utf8GuardFilter) Write(data []byte) []byte {
	buf := append(f.pending, data...)
	f.pending = nil
	if len(buf) == 0 {
		return nil
	}

	out := make([]byte, 0, len(buf))
	for i := 0; i < len(buf); {
		if !utf8.FullRune(buf[i:]) {
			f.pending = append(f.pending, buf[i:]...)
			break
		}
		r, size := utf8.DecodeRune(buf[i:])
		if r == utf8.RuneError && size == 1 {
			out = utf8.AppendRune(out, utf8.RuneError)
		} else {
			out = append(out, buf[i:i+size]...)
		}
		i += size
	}
	return out
}

func (f *utf8GuardFilter) Flush() []byte {
	if len(f.pending) == 0 {
		return nil
	}
	f.pending = nil
	return utf8.AppendRune(nil, utf8.RuneError)
}

func (f *utf8GuardFilter) Reset() {
	f.pending = nil
}

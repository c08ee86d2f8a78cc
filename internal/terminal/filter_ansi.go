package terminal

// NewANSIStripFilter removes escape sequences and control bytes so only
// speakable text and line feeds remain. Tabs become spaces and carriage
// returns are dropped. Parser state carries across writes, so a sequence
// split between two reads is still removed. Input is UTF-8, so bytes at or
// above 0x80 are text, never 8-bit C1 controls.
func NewANSIStripFilter() OutputFilter {
	return &ansiStripFilter{}
}

type ansiState int

const (
	ansiText ansiState = iota
	ansiEsc
	// ansiEscIntermediate follows ESC plus 0x20-0x2f, as in the charset
	// designation ESC ( B, and runs through the final byte.
	ansiEscIntermediate
	ansiCSI
	// ansiString covers OSC, DCS, PM and APC bodies, all ended by ST.
	ansiString
	ansiStringEsc
)

type ansiStripFilter struct {
	state ansiState
	// osc is set while inside an OSC body, which BEL may also end.
	osc bool
}

func (f *ansiStripFilter) Write(data []byte) []byte {
	out := make([]byte, 0, len(data))
	for _, b := range data {
		switch f.state {
		case ansiText:
			out = f.text(out, b)
		case ansiEsc:
			f.escape(b)
		case ansiEscIntermediate:
			f.intermediate(b)
		case ansiCSI:
			if b >= 0x40 && b <= 0x7e {
				f.state = ansiText
			}
		case ansiString:
			if b == 0x1b {
				f.state = ansiStringEsc
			} else if b == 0x07 && f.osc {
				f.state = ansiText
			}
		case ansiStringEsc:
			if b == '\\' {
				f.state = ansiText
			} else {
				f.state = ansiString
			}
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func (f *ansiStripFilter) text(out []byte, b byte) []byte {
	switch {
	case b == 0x1b:
		f.state = ansiEsc
	case b == '\n':
		out = append(out, b)
	case b == '\t':
		out = append(out, ' ')
	case b < 0x20 || b == 0x7f:
	default:
		out = append(out, b)
	}
	return out
}

func (f *ansiStripFilter) escape(b byte) {
	switch b {
	case '[':
		f.state = ansiCSI
	case ']':
		f.enterString(true)
	case 'P', '^', '_':
		f.enterString(false)
	default:
		if b >= 0x20 && b <= 0x2f {
			f.state = ansiEscIntermediate
			return
		}
		f.state = ansiText
	}
}

func (f *ansiStripFilter) intermediate(b byte) {
	switch {
	case b >= 0x20 && b <= 0x2f:
	case b == 0x1b:
		f.state = ansiEsc
	default:
		// A final byte ends the sequence; a stray control cancels it.
		f.state = ansiText
	}
}

func (f *ansiStripFilter) enterString(osc bool) {
	f.state = ansiString
	f.osc = osc
}

func (f *ansiStripFilter) Flush() []byte {
	return nil
}

func (f *ansiStripFilter) Reset() {
	f.state = ansiText
	f.osc = false
}

package announce

import "strings"

// lineBuffer holds polite text waiting for the next flush. It always has at
// least one line, so a break before any text simply opens another line.
type lineBuffer struct {
	lines [][]string
	// open means the current line ends in streamed text that the next
	// streamed chunk continues without a separator.
	open bool
}

func newLineBuffer() *lineBuffer {
	return &lineBuffer{lines: make([][]string, 1)}
}

func (b *lineBuffer) appendText(fragment string) {
	last := len(b.lines) - 1
	b.lines[last] = append(b.lines[last], fragment)
	b.open = false
}

// extendText continues the streamed fragment at the end of the current line,
// or starts one.
func (b *lineBuffer) extendText(fragment string) {
	last := len(b.lines) - 1
	line := b.lines[last]
	if b.open && len(line) > 0 {
		line[len(line)-1] += fragment
		return
	}
	b.lines[last] = append(line, fragment)
	b.open = true
}

func (b *lineBuffer) appendBreak() {
	b.lines = append(b.lines, nil)
	b.open = false
}

// render joins fragments within a line with a space and lines with "\n".
func (b *lineBuffer) render() string {
	builder := strings.Builder{}
	for i, line := range b.lines {
		if i > 0 {
			builder.WriteByte('\n')
		}
		builder.WriteString(strings.Join(line, " "))
	}
	return builder.String()
}

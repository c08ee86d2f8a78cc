package terminal

import (
	"bytes"
	"testing"
)

const replacement = "\uFFFD"

func TestUTF8GuardFilterJoinsSplitRunes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		text  string
		split int
	}{
		{name: "two bytes", text: "café", split: 4},
		{name: "three bytes", text: "€ 5", split: 2},
		{name: "four bytes", text: "\U0001F600!", split: 3},
		{name: "four bytes after one", text: "\U0001F600", split: 1},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			filter := NewUTF8GuardFilter()
			input := []byte(test.text)
			first := filter.Write(input[:test.split])
			second := filter.Write(input[test.split:])
			if !bytes.Equal(append(first, second...), input) {
				t.Fatalf("expected %q, got %q then %q", test.text, first, second)
			}
			if tail := filter.Flush(); len(tail) != 0 {
				t.Fatalf("expected nothing held back, got %q", tail)
			}
		})
	}
}

func TestUTF8GuardFilterFlushesReplacementRune(t *testing.T) {
	t.Parallel()

	filter := NewUTF8GuardFilter()
	input := []byte("ok \U0001F600")
	if out := filter.Write(input[:5]); string(out) != "ok " {
		t.Fatalf("expected complete text only, got %q", out)
	}
	if flushed := filter.Flush(); string(flushed) != replacement {
		t.Fatalf("expected replacement rune, got %q", flushed)
	}
	if flushed := filter.Flush(); len(flushed) != 0 {
		t.Fatalf("expected empty second flush, got %q", flushed)
	}
}

func TestUTF8GuardFilterReplacesInvalidBytes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input []byte
		want  string
	}{
		{name: "stray continuation", input: []byte("a\x80b"), want: "a" + replacement + "b"},
		{name: "truncated lead", input: []byte("\xe2Ax"), want: replacement + "Ax"},
		{name: "latin-1 byte", input: []byte("caf\xe9 "), want: "caf" + replacement + " "},
		{name: "invalid lead", input: []byte("\xff\xfe"), want: replacement + replacement},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			out := NewUTF8GuardFilter().Write(test.input)
			if string(out) != test.want {
				t.Fatalf("expected %q, got %q", test.want, out)
			}
		})
	}
}

func TestUTF8GuardFilterReset(t *testing.T) {
	t.Parallel()

	filter := NewUTF8GuardFilter()
	_ = filter.Write([]byte("\xf0\x9f"))
	filter.Reset()
	if out := filter.Write([]byte("x")); string(out) != "x" {
		t.Fatalf("expected reset to drop held bytes, got %q", out)
	}
}

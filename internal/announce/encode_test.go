package announce

import "testing"

func TestEncodeDistinct(t *testing.T) {
	tests := []struct {
		name      string
		candidate string
		current   string
		want      string
	}{
		{name: "different", candidate: "ls", current: "pwd", want: "ls"},
		{name: "equal", candidate: "ls", current: "ls", want: "\nls"},
		{name: "equal to encoded", candidate: "\nls", current: "\nls", want: "\n\nls"},
		{name: "empty equal", candidate: "", current: "", want: "\n"},
		{name: "empty over text", candidate: "", current: "ls", want: ""},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got := EncodeDistinct(test.candidate, test.current)
			if got != test.want {
				t.Fatalf("EncodeDistinct(%q, %q) = %q, want %q", test.candidate, test.current, got, test.want)
			}
			if got == test.current {
				t.Fatalf("encoded value %q must differ from current", got)
			}
		})
	}
}

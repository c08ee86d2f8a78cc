package terminal

import (
	"errors"
	"testing"
)

func TestDefaultShellFor(t *testing.T) {
	env := func(pairs ...string) func(string) string {
		values := map[string]string{}
		for i := 0; i+1 < len(pairs); i += 2 {
			values[pairs[i]] = pairs[i+1]
		}
		return func(key string) string { return values[key] }
	}

	cases := map[string]struct {
		goos   string
		getenv func(string) string
		want   string
	}{
		"comspec":                  {"windows", env("ComSpec", `C:\Windows\System32\cmd.exe`), `C:\Windows\System32\cmd.exe`},
		"comspec upper":            {"windows", env("COMSPEC", `D:\cmd.exe`), `D:\cmd.exe`},
		"windows fallback":         {"windows", env(), "cmd.exe"},
		"login shell":              {"darwin", env("SHELL", "/bin/zsh"), "/bin/zsh"},
		"unix fallback":            {"linux", env(), "/bin/bash"},
		"shell ignored on windows": {"windows", env("SHELL", "/bin/zsh"), "cmd.exe"},
	}
	for name, tc := range cases {
		if got := defaultShellFor(tc.goos, tc.getenv); got != tc.want {
			t.Fatalf("%s: expected %q, got %q", name, tc.want, got)
		}
	}
}

func TestSplitCommandLine(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantCmd   string
		wantArgs  []string
		wantError bool
	}{
		{
			name:    "single-command",
			input:   "/bin/bash",
			wantCmd: "/bin/bash",
		},
		{
			name:     "command-with-args",
			input:    "bash --noprofile --norc",
			wantCmd:  "bash",
			wantArgs: []string{"--noprofile", "--norc"},
		},
		{
			name:     "single-quoted-arg",
			input:    "sh -c 'echo ready'",
			wantCmd:  "sh",
			wantArgs: []string{"-c", "echo ready"},
		},
		{
			name:     "double-quoted-arg",
			input:    "sh -c \"echo \\\"hi\\\"\"",
			wantCmd:  "sh",
			wantArgs: []string{"-c", "echo \"hi\""},
		},
		{
			name:     "extra-whitespace",
			input:    "  /bin/bash   -l ",
			wantCmd:  "/bin/bash",
			wantArgs: []string{"-l"},
		},
		{
			name:     "backslash-escape",
			input:    "cmd path\\ with\\ spaces",
			wantCmd:  "cmd",
			wantArgs: []string{"path with spaces"},
		},
		{
			name:     "empty-quoted-arg",
			input:    "cmd ''",
			wantCmd:  "cmd",
			wantArgs: []string{""},
		},
		{
			name:      "unterminated",
			input:     "sh -c 'oops",
			wantError: true,
		},
		{
			name:      "empty",
			input:     "   ",
			wantError: true,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			cmd, args, err := splitCommandLine(test.input)
			if test.wantError {
				if err == nil {
					t.Fatalf("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if cmd != test.wantCmd {
				t.Fatalf("expected command %q, got %q", test.wantCmd, cmd)
			}
			if len(args) != len(test.wantArgs) {
				t.Fatalf("expected args %v, got %v", test.wantArgs, args)
			}
			for i := range args {
				if args[i] != test.wantArgs[i] {
					t.Fatalf("expected args %v, got %v", test.wantArgs, args)
				}
			}
		})
	}
}

func TestSplitCommandLineEmptyIsNoCommand(t *testing.T) {
	if _, _, err := splitCommandLine(""); !errors.Is(err, ErrNoCommand) {
		t.Fatalf("expected ErrNoCommand, got %v", err)
	}
}

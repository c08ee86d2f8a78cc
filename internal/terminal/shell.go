package terminal

import (
	"errors"
	"os"
	"runtime"
	"strings"
)

var ErrNoCommand = errors.New("no command to run")

// DefaultShell picks the user's shell for the current platform.
func DefaultShell() string {
	return defaultShellFor(runtime.GOOS, os.Getenv)
}

func defaultShellFor(goos string, getenv func(string) string) string {
	if goos == "windows" {
		if shell := getenv("ComSpec"); shell != "" {
			return shell
		}
		if shell := getenv("COMSPEC"); shell != "" {
			return shell
		}
		return "cmd.exe"
	}
	if shell := getenv("SHELL"); shell != "" {
		return shell
	}
	return "/bin/bash"
}

// splitCommandLine splits a POSIX-style command line into the command and
// its arguments. Single quotes, double quotes and backslash escapes work the
// way a shell treats them.
func splitCommandLine(line string) (string, []string, error) {
	var (
		words   []string
		current strings.Builder
		inWord  bool
		quote   rune
		escaped bool
	)
	for _, r := range line {
		switch {
		case escaped:
			current.WriteRune(r)
			escaped = false
		case quote == '\'':
			if r == '\'' {
				quote = 0
			} else {
				current.WriteRune(r)
			}
		case quote == '"':
			switch r {
			case '"':
				quote = 0
			case '\\':
				escaped = true
			default:
				current.WriteRune(r)
			}
		case r == '\\':
			escaped = true
			inWord = true
		case r == '\'' || r == '"':
			quote = r
			inWord = true
		case r == ' ' || r == '\t' || r == '\n':
			if inWord {
				words = append(words, current.String())
				current.Reset()
				inWord = false
			}
		default:
			current.WriteRune(r)
			inWord = true
		}
	}
	if quote != 0 {
		return "", nil, errors.New("unterminated quote in command line")
	}
	if escaped {
		return "", nil, errors.New("trailing backslash in command line")
	}
	if inWord {
		words = append(words, current.String())
	}
	if len(words) == 0 {
		return "", nil, ErrNoCommand
	}
	return words[0], words[1:], nil
}

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	return e.err.Error()
}

func (e *exitError) Unwrap() error {
	return e.err
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	signals := make(chan os.Signal, 2)
	signal.Notify(signals, os.Interrupt, syscall.SIGTERM)
	stopWatching := watchShutdownSignals(nil, cancel, signals)

	code := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stopWatching()
	signal.Stop(signals)
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	root := newRootCommand(stdin, stdout, stderr)
	root.SetArgs(args)
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(stderr, "ariaterm:", err)
		var exitErr *exitError
		if errors.As(err, &exitErr) && exitErr.code != 0 {
			return exitErr.code
		}
		return 1
	}
	return 0
}

func newRootCommand(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:   "ariaterm",
		Short: "Screen reader announcements for terminal output",
		Long: `ariaterm runs a shell under a pseudo-terminal and turns its output into
screen reader announcements. Text is written to a polite live region at a
steady pace and urgent messages go to an assertive region right away. Remote
hosts follow both regions over a websocket.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetIn(stdin)
	root.SetOut(stdout)
	root.SetErr(stderr)

	root.AddCommand(newServeCommand())
	root.AddCommand(newSendCommand())
	root.AddCommand(newAccessibilityCommand())
	root.AddCommand(newClearCommand())
	root.AddCommand(newVersionCommand())
	return root
}

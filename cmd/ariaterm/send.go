package main

import (
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"ariaterm/internal/client"
	"ariaterm/internal/config"

	"github.com/spf13/cobra"
)

var httpClient = &http.Client{Timeout: 10 * time.Second}

type remoteFlags struct {
	configPath string
	server     string
	token      string
}

func (f *remoteFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.configPath, "config", "", "config file to read the server address and token from")
	cmd.Flags().StringVar(&f.server, "server", "", "server base URL (default from server.listen)")
	cmd.Flags().StringVar(&f.token, "token", "", "auth token (default from server.auth-token)")
}

// resolve fills in the server and token from config when not given.
func (f *remoteFlags) resolve() (string, string, error) {
	server := strings.TrimSpace(f.server)
	token := f.token
	if server == "" || token == "" {
		settings, err := config.Load(config.LoadOptions{Path: f.configPath})
		if err != nil {
			return "", "", err
		}
		if server == "" {
			server = baseURLFromListen(settings.Server.Listen)
		}
		if token == "" {
			token = settings.Server.AuthToken
		}
	}
	if !strings.Contains(server, "://") {
		server = "http://" + server
	}
	return server, token, nil
}

// baseURLFromListen turns a listen address into a URL a local client can
// dial; a wildcard host becomes loopback.
func baseURLFromListen(listen string) string {
	host, port, err := net.SplitHostPort(listen)
	if err != nil {
		return "http://" + listen
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "127.0.0.1"
	}
	return "http://" + net.JoinHostPort(host, port)
}

func remoteError(err error) error {
	var httpErr *client.HTTPError
	if errors.As(err, &httpErr) {
		return &exitError{code: 3, err: fmt.Errorf("server returned %d: %s", httpErr.StatusCode, httpErr.Message)}
	}
	return &exitError{code: 3, err: err}
}

func newSendCommand() *cobra.Command {
	var flags remoteFlags
	var priority string
	cmd := &cobra.Command{
		Use:   "send [text...]",
		Short: "Announce text through a running server",
		Long: `Announce text through a running server. Without arguments the text is
read from standard input. Polite text waits for the next paced write;
assertive text is spoken at once and interrupts polite text.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			priority = strings.ToLower(strings.TrimSpace(priority))
			if priority != "polite" && priority != "assertive" {
				return &exitError{code: 2, err: fmt.Errorf("priority must be polite or assertive, got %q", priority)}
			}
			text := strings.Join(args, " ")
			if len(args) == 0 {
				data, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("read stdin: %w", err)
				}
				text = strings.TrimRight(string(data), "\n")
			}
			if text == "" {
				return &exitError{code: 2, err: fmt.Errorf("nothing to announce")}
			}

			server, token, err := flags.resolve()
			if err != nil {
				return err
			}
			result, err := client.Announce(httpClient, server, token, text, priority)
			if err != nil {
				return remoteError(err)
			}
			if !result.Accepted {
				fmt.Fprintln(cmd.ErrOrStderr(), "accessibility is disabled; polite text was dropped")
			}
			return nil
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVarP(&priority, "priority", "p", "polite", "polite or assertive")
	return cmd
}

func newAccessibilityCommand() *cobra.Command {
	var flags remoteFlags
	cmd := &cobra.Command{
		Use:       "accessibility on|off",
		Short:     "Turn polite announcements on or off on a running server",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"on", "off"},
		RunE: func(cmd *cobra.Command, args []string) error {
			var enabled bool
			switch strings.ToLower(args[0]) {
			case "on", "true", "enable":
				enabled = true
			case "off", "false", "disable":
				enabled = false
			default:
				return &exitError{code: 2, err: fmt.Errorf("expected on or off, got %q", args[0])}
			}
			server, token, err := flags.resolve()
			if err != nil {
				return err
			}
			state, err := client.SetAccessibility(httpClient, server, token, enabled)
			if err != nil {
				return remoteError(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "accessibility %s\n", onOff(state))
			return nil
		},
	}
	flags.register(cmd)
	return cmd
}

func newClearCommand() *cobra.Command {
	var flags remoteFlags
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Empty the assertive region on a running server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			server, token, err := flags.resolve()
			if err != nil {
				return err
			}
			if err := client.Clear(httpClient, server, token); err != nil {
				return remoteError(err)
			}
			return nil
		},
	}
	flags.register(cmd)
	return cmd
}

func onOff(enabled bool) string {
	if enabled {
		return "on"
	}
	return "off"
}

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"ariaterm/internal/announce"
	"ariaterm/internal/api"
	"ariaterm/internal/config"
	"ariaterm/internal/event"
	"ariaterm/internal/logging"
	"ariaterm/internal/metrics"
	"ariaterm/internal/region"
	"ariaterm/internal/terminal"
	"ariaterm/internal/watcher"

	"github.com/spf13/cobra"
)

const httpServerShutdownTimeout = 5 * time.Second

type serveOptions struct {
	configPath string
	listen     string
	shell      string
	interval   time.Duration
	logLevel   string
	disabled   bool
	stdinFeed  bool
	watch      bool
}

func newServeCommand() *cobra.Command {
	var options serveOptions
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run a shell and serve its announcements",
		Long: `Run a shell under a pseudo-terminal, announce its output, and serve the
live regions over HTTP and websocket. With --stdin, standard input is
announced instead of a shell's output.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			overrides := map[string]any{}
			flags := cmd.Flags()
			if flags.Changed("listen") {
				overrides["server.listen"] = options.listen
			}
			if flags.Changed("shell") {
				overrides["terminal.shell"] = options.shell
			}
			if flags.Changed("interval") {
				overrides["reader.interval"] = options.interval
			}
			if flags.Changed("log-level") {
				overrides["log.level"] = options.logLevel
			}
			if flags.Changed("disabled") {
				overrides["reader.enabled"] = !options.disabled
			}
			settings, err := config.Load(config.LoadOptions{Path: options.configPath, Overrides: overrides})
			if err != nil {
				return &exitError{code: 2, err: err}
			}
			return runServe(cmd.Context(), settings, options, cmd.InOrStdin(), cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&options.configPath, "config", "", "config file (.toml, .yaml or .yml)")
	flags.StringVar(&options.listen, "listen", "", "HTTP listen address")
	flags.StringVar(&options.shell, "shell", "", "shell command line to run")
	flags.DurationVar(&options.interval, "interval", announce.DefaultInterval, "minimum time between polite writes")
	flags.StringVar(&options.logLevel, "log-level", "", "debug, info, warning or error")
	flags.BoolVar(&options.disabled, "disabled", false, "start with polite announcements turned off")
	flags.BoolVar(&options.stdinFeed, "stdin", false, "announce standard input instead of running a shell")
	flags.BoolVar(&options.watch, "watch", true, "reload the config file when it changes")
	return cmd
}

func runServe(ctx context.Context, settings config.Settings, options serveOptions, stdin io.Reader, stdout, stderr io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	logger := logging.NewLoggerWithOutput(logging.NewLogBuffer(logging.DefaultBufferSize), settings.Log.Level, stderr)
	registry := metrics.Default
	shutdown := newShutdownCoordinator(logger)

	bus := event.NewBus[event.RegionEvent](ctx, event.BusOptions{
		Name:        "regions",
		HistorySize: settings.Reader.HistorySize,
		Registry:    registry,
		Logger:      logger,
	})
	polite, assertive := region.NewPair(bus, settings.Reader.HistorySize)
	reader := announce.New(polite, assertive, announce.Options{
		Interval:      settings.Reader.Interval,
		StartDisabled: !settings.Reader.Enabled,
		Logger:        logger.Component("reader"),
		Metrics:       registry,
	})

	listener, err := net.Listen("tcp", settings.Server.Listen)
	if err != nil {
		return fmt.Errorf("listen %s: %w", settings.Server.Listen, err)
	}
	mux := http.NewServeMux()
	api.RegisterRoutes(mux, api.Options{
		Reader:         reader,
		Bus:            bus,
		Regions:        []*region.Region{polite, assertive},
		Logger:         logger,
		Metrics:        registry,
		AuthToken:      settings.Server.AuthToken,
		AllowedOrigins: settings.Server.AllowedOrigins,
		AnnounceRate:   settings.Server.AnnounceRate,
		AnnounceBurst:  settings.Server.AnnounceBurst,
	})
	server := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.Serve(listener)
	}()
	logger.Info("ariaterm listening", map[string]string{"addr": listener.Addr().String()})
	shutdown.Add("http", server.Shutdown)

	if options.watch && options.configPath != "" {
		if reloader, err := startConfigWatch(options.configPath, settings, reader, logger); err != nil {
			logger.Warn("config watch unavailable", map[string]string{"error": err.Error()})
		} else {
			shutdown.Add("config watch", reloader)
		}
	}

	feedDone, err := startFeed(ctx, settings, options, reader, stdin, stdout, logger, shutdown)
	if err != nil {
		_ = shutdown.Run(context.Background())
		return err
	}
	shutdown.Add("reader", func(context.Context) error {
		reader.Close()
		bus.Close()
		return nil
	})

	var runErr error
	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			runErr = fmt.Errorf("http server: %w", err)
		}
	case err := <-feedDone:
		if err != nil {
			runErr = err
		} else {
			logger.Info("terminal output ended", nil)
		}
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), httpServerShutdownTimeout)
	defer cancelShutdown()
	if err := shutdown.Run(shutdownCtx); err != nil && runErr == nil {
		runErr = err
	}
	return runErr
}

func startConfigWatch(path string, settings config.Settings, reader *announce.Reader, logger *logging.Logger) (func(context.Context) error, error) {
	fileWatcher, err := watcher.NewWithOptions(watcher.Options{Logger: logger})
	if err != nil {
		return nil, err
	}
	load := func() (config.Settings, error) {
		return config.Load(config.LoadOptions{Path: path})
	}
	reloader, err := watcher.WatchConfig(fileWatcher, path, settings, load, reader, logger)
	if err != nil {
		_ = fileWatcher.Close()
		return nil, err
	}
	return func(context.Context) error {
		return errors.Join(reloader.Close(), fileWatcher.Close())
	}, nil
}

// startFeed begins announcing either stdin or a shell session. The returned
// channel yields once the source is exhausted.
func startFeed(ctx context.Context, settings config.Settings, options serveOptions, reader *announce.Reader, stdin io.Reader, stdout io.Writer, logger *logging.Logger, shutdown *shutdownCoordinator) (<-chan error, error) {
	done := make(chan error, 1)
	if options.stdinFeed {
		feeder := terminal.NewFeeder(reader, nil)
		go func() {
			done <- feeder.Run(ctx, stdin)
		}()
		return done, nil
	}

	session, err := terminal.StartSession(ctx, reader, terminal.SessionOptions{
		Shell:  settings.Terminal.Shell,
		Args:   settings.Terminal.Args,
		Size:   terminal.Size{Cols: settings.Terminal.Cols, Rows: settings.Terminal.Rows},
		Tee:    stdout,
		Logger: logger,
	})
	if err != nil {
		return nil, err
	}
	shutdown.Add("terminal", func(context.Context) error {
		return session.Close()
	})
	go forwardInput(ctx, stdin, session, logger)
	go func() {
		done <- session.Err()
	}()
	return done, nil
}

type sessionInput struct {
	session *terminal.Session
}

func (in sessionInput) Write(data []byte) (int, error) {
	if err := in.session.Write(data); err != nil {
		return 0, err
	}
	return len(data), nil
}

func forwardInput(ctx context.Context, stdin io.Reader, session *terminal.Session, logger *logging.Logger) {
	if stdin == nil {
		return
	}
	_, err := io.Copy(sessionInput{session: session}, stdin)
	if err != nil && ctx.Err() == nil && !errors.Is(err, terminal.ErrSessionClosed) {
		logger.Warn("terminal input stopped", map[string]string{"error": err.Error()})
	}
}

package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"ariaterm/internal/logging"
)

const defaultsTOML = `
[reader]
interval = "50ms"
enabled = true
history-size = 32

[server]
listen = "127.0.0.1:8765"
auth-token = ""
allowed-origins = []
announce-rate = 20.0
announce-burst = 40

[terminal]
shell = ""
args = []
cols = 80
rows = 24

[log]
level = "info"
`

// envKeys maps environment variables onto setting keys.
var envKeys = map[string]string{
	"ARIATERM_INTERVAL":        "reader.interval",
	"ARIATERM_ENABLED":         "reader.enabled",
	"ARIATERM_LISTEN":          "server.listen",
	"ARIATERM_AUTH_TOKEN":      "server.auth-token",
	"ARIATERM_ALLOWED_ORIGINS": "server.allowed-origins",
	"ARIATERM_SHELL":           "terminal.shell",
	"ARIATERM_LOG_LEVEL":       "log.level",
}

type Settings struct {
	Reader   ReaderSettings
	Server   ServerSettings
	Terminal TerminalSettings
	Log      LogSettings
}

type ReaderSettings struct {
	Interval    time.Duration
	Enabled     bool
	HistorySize int
}

type ServerSettings struct {
	Listen         string
	AuthToken      string
	AllowedOrigins []string
	AnnounceRate   float64
	AnnounceBurst  int
}

type TerminalSettings struct {
	Shell string
	Args  []string
	Cols  uint16
	Rows  uint16
}

type LogSettings struct {
	Level logging.Level
}

type LoadOptions struct {
	// Path is a .toml, .yaml or .yml file. A missing file is not an error.
	Path string
	// Overrides win over the file and the environment, keyed like "reader.interval".
	Overrides map[string]any
	// Getenv defaults to os.Getenv.
	Getenv func(string) string
}

// Load layers defaults, the config file, ARIATERM_* variables and overrides,
// then validates the result.
func Load(options LoadOptions) (Settings, error) {
	defaults, err := decodeFile("defaults.toml", []byte(defaultsTOML))
	if err != nil {
		return Settings{}, err
	}
	values := make(map[string]any, len(defaults))
	for key, value := range defaults {
		values[key] = value
	}

	if path := strings.TrimSpace(options.Path); path != "" {
		payload, err := os.ReadFile(path)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return Settings{}, fmt.Errorf("read config: %w", err)
		}
		if err == nil {
			fileValues, err := decodeFile(path, payload)
			if err != nil {
				return Settings{}, err
			}
			for key, value := range fileValues {
				values[key] = value
			}
		}
	}

	getenv := options.Getenv
	if getenv == nil {
		getenv = os.Getenv
	}
	for name, key := range envKeys {
		if raw := getenv(name); raw != "" {
			values[key] = raw
		}
	}

	for key, value := range options.Overrides {
		if normalized := normalizeKey(key); normalized != "" {
			values[normalized] = value
		}
	}

	settings, err := fromValues(values)
	if err != nil {
		return Settings{}, err
	}
	if err := settings.Validate(); err != nil {
		return Settings{}, err
	}
	return settings, nil
}

func fromValues(values map[string]any) (Settings, error) {
	interval, err := durationSetting(values, "reader.interval", 0)
	if err != nil {
		return Settings{}, err
	}
	settings := Settings{
		Reader: ReaderSettings{
			Interval:    interval,
			Enabled:     boolSetting(values, "reader.enabled", true),
			HistorySize: int(intSetting(values, "reader.history-size", 0)),
		},
		Server: ServerSettings{
			Listen:         stringSetting(values, "server.listen", ""),
			AuthToken:      stringSetting(values, "server.auth-token", ""),
			AllowedOrigins: stringListSetting(values, "server.allowed-origins"),
			AnnounceRate:   floatSetting(values, "server.announce-rate", 0),
			AnnounceBurst:  int(intSetting(values, "server.announce-burst", 0)),
		},
		Terminal: TerminalSettings{
			Shell: stringSetting(values, "terminal.shell", ""),
			Args:  stringListSetting(values, "terminal.args"),
			Cols:  uint16(intSetting(values, "terminal.cols", 0)),
			Rows:  uint16(intSetting(values, "terminal.rows", 0)),
		},
	}

	rawLevel := stringSetting(values, "log.level", "")
	level, ok := logging.ParseLevel(rawLevel)
	if !ok {
		return Settings{}, fmt.Errorf("log.level: unknown level %q", rawLevel)
	}
	settings.Log.Level = level
	return settings, nil
}

func (s Settings) Validate() error {
	var problems []string
	if s.Reader.Interval <= 0 {
		problems = append(problems, "reader.interval must be positive")
	}
	if s.Reader.HistorySize <= 0 {
		problems = append(problems, "reader.history-size must be positive")
	}
	if strings.TrimSpace(s.Server.Listen) == "" {
		problems = append(problems, "server.listen is required")
	}
	if s.Server.AnnounceRate <= 0 {
		problems = append(problems, "server.announce-rate must be positive")
	}
	if s.Server.AnnounceBurst <= 0 {
		problems = append(problems, "server.announce-burst must be positive")
	}
	if s.Terminal.Cols == 0 || s.Terminal.Rows == 0 {
		problems = append(problems, "terminal.cols and terminal.rows must be positive")
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid config: %s", strings.Join(problems, "; "))
	}
	return nil
}

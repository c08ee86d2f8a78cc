package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

var ErrUnsupportedFormat = errors.New("unsupported config format")

// decodeFile parses a TOML or YAML document into a flat map keyed by dotted,
// normalized paths such as "reader.interval".
func decodeFile(path string, data []byte) (map[string]any, error) {
	raw := map[string]any{}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if _, err := toml.Decode(string(data), &raw); err != nil {
			var parseErr toml.ParseError
			if errors.As(err, &parseErr) {
				return nil, fmt.Errorf("parse %s: %s", path, parseErr.ErrorWithPosition())
			}
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(path))
	}
	return flatten(raw), nil
}

func flatten(raw map[string]any) map[string]any {
	flat := make(map[string]any)
	flattenInto("", raw, flat)
	return flat
}

func flattenInto(prefix string, raw map[string]any, out map[string]any) {
	keys := make([]string, 0, len(raw))
	for key := range raw {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		path := normalizeKey(key)
		if prefix != "" {
			path = prefix + "." + path
		}
		if nested, ok := raw[key].(map[string]any); ok {
			flattenInto(path, nested, out)
			continue
		}
		if _, exists := out[path]; !exists {
			out[path] = raw[key]
		}
	}
}

func normalizeKey(key string) string {
	key = strings.ToLower(strings.TrimSpace(key))
	return strings.ReplaceAll(key, "_", "-")
}

func stringSetting(values map[string]any, key string, fallback string) string {
	value, ok := values[key]
	if !ok {
		return fallback
	}
	if parsed, ok := value.(string); ok {
		return strings.TrimSpace(parsed)
	}
	return fallback
}

func boolSetting(values map[string]any, key string, fallback bool) bool {
	switch typed := values[key].(type) {
	case bool:
		return typed
	case string:
		if parsed, err := strconv.ParseBool(strings.TrimSpace(typed)); err == nil {
			return parsed
		}
	}
	return fallback
}

func intSetting(values map[string]any, key string, fallback int64) int64 {
	switch typed := values[key].(type) {
	case int64:
		return typed
	case int:
		return int64(typed)
	case uint16:
		return int64(typed)
	case float64:
		if typed == float64(int64(typed)) {
			return int64(typed)
		}
	case string:
		if parsed, err := strconv.ParseInt(strings.TrimSpace(typed), 10, 64); err == nil {
			return parsed
		}
	}
	return fallback
}

func floatSetting(values map[string]any, key string, fallback float64) float64 {
	switch typed := values[key].(type) {
	case float64:
		return typed
	case int64:
		return float64(typed)
	case int:
		return float64(typed)
	case string:
		if parsed, err := strconv.ParseFloat(strings.TrimSpace(typed), 64); err == nil {
			return parsed
		}
	}
	return fallback
}

// durationSetting accepts Go duration strings or integer milliseconds.
func durationSetting(values map[string]any, key string, fallback time.Duration) (time.Duration, error) {
	switch typed := values[key].(type) {
	case nil:
		return fallback, nil
	case time.Duration:
		return typed, nil
	case string:
		parsed, err := time.ParseDuration(strings.TrimSpace(typed))
		if err != nil {
			return 0, fmt.Errorf("%s: %w", key, err)
		}
		return parsed, nil
	default:
		if millis := intSetting(values, key, -1); millis >= 0 {
			return time.Duration(millis) * time.Millisecond, nil
		}
		return 0, fmt.Errorf("%s: expected duration, got %T", key, typed)
	}
}

// stringListSetting accepts a list or a comma separated string.
func stringListSetting(values map[string]any, key string) []string {
	var items []string
	switch typed := values[key].(type) {
	case []string:
		items = typed
	case []any:
		for _, item := range typed {
			if text, ok := item.(string); ok {
				items = append(items, text)
			}
		}
	case string:
		items = strings.Split(typed, ",")
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

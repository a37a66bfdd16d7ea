package config

import (
	stderrors "errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/gobwas/glob"

	"github.com/AnriaW/minipar/internal/channel"
	"github.com/AnriaW/minipar/internal/errors"
)

// Default returns the configuration used when no file is present.
func Default() *Config {
	var cfg Config
	applyDefaults(&cfg)
	return &cfg
}

// Load decodes the file at path, fills in defaults and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, configError(err, path, "read config")
	}

	var cfg Config
	md, err := toml.Decode(string(data), &cfg)
	if err != nil {
		return nil, configError(err, path, "decode config")
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, configError(fmt.Errorf("unknown keys: %s", strings.Join(keys, ", ")), path, "decode config")
	}

	applyDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, configError(err, path, "invalid config")
	}
	return &cfg, nil
}

// Resolve loads path when given. Otherwise it loads DefaultFile from the
// working directory if it exists and falls back to Default.
func Resolve(path string) (*Config, error) {
	if path != "" {
		return Load(path)
	}

	if _, err := os.Stat(DefaultFile); err != nil {
		if stderrors.Is(err, fs.ErrNotExist) {
			return Default(), nil
		}
		return nil, configError(err, DefaultFile, "stat config")
	}
	return Load(DefaultFile)
}

func applyDefaults(cfg *Config) {
	if strings.TrimSpace(cfg.Log.Level) == "" {
		cfg.Log.Level = "info"
	}
	if strings.TrimSpace(cfg.Log.Format) == "" {
		cfg.Log.Format = "text"
	}
	cfg.Log.Level = strings.ToLower(strings.TrimSpace(cfg.Log.Level))
	cfg.Log.Format = strings.ToLower(strings.TrimSpace(cfg.Log.Format))

	defaults := channel.DefaultOptions()
	if cfg.Channel.ReadBuffer == 0 {
		cfg.Channel.ReadBuffer = defaults.ReadBuffer
	}
	if cfg.Channel.DialAttempts == 0 {
		cfg.Channel.DialAttempts = defaults.DialAttempts
	}
	if cfg.Channel.DialIntervalMS == 0 {
		cfg.Channel.DialIntervalMS = int(defaults.DialInterval.Milliseconds())
	}
	if cfg.Channel.LocalCapacity == 0 {
		cfg.Channel.LocalCapacity = defaults.LocalCapacity
	}

	if cfg.Watch.Exclude == nil {
		cfg.Watch.Exclude = []string{".#*", "*~", "*.swp"}
	}
	if cfg.Watch.DebounceMS == 0 {
		cfg.Watch.DebounceMS = 200
	}

	if strings.TrimSpace(cfg.REPL.HistoryFile) == "" {
		cfg.REPL.HistoryFile = ".minipar_history"
	}
}

func validate(cfg *Config) error {
	switch cfg.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be one of: debug, info, warn, error; got %q", cfg.Log.Level)
	}
	switch cfg.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("log.format must be text or json, got %q", cfg.Log.Format)
	}

	if cfg.Channel.ReadBuffer < 1 {
		return fmt.Errorf("channel.read_buffer must be positive, got %d", cfg.Channel.ReadBuffer)
	}
	if cfg.Channel.DialAttempts < 1 {
		return fmt.Errorf("channel.dial_attempts must be positive, got %d", cfg.Channel.DialAttempts)
	}
	if cfg.Channel.DialIntervalMS < 1 {
		return fmt.Errorf("channel.dial_interval_ms must be positive, got %d", cfg.Channel.DialIntervalMS)
	}
	if cfg.Channel.LocalCapacity < 0 {
		return fmt.Errorf("channel.local_capacity must be >= 0, got %d", cfg.Channel.LocalCapacity)
	}

	if cfg.Runtime.MaxParallel < 0 {
		return fmt.Errorf("runtime.max_parallel must be >= 0, got %d", cfg.Runtime.MaxParallel)
	}

	if cfg.Watch.DebounceMS < 0 {
		return fmt.Errorf("watch.debounce_ms must be >= 0, got %d", cfg.Watch.DebounceMS)
	}
	for i, pattern := range cfg.Watch.Exclude {
		if strings.TrimSpace(pattern) == "" {
			return fmt.Errorf("watch.exclude[%d] must not be empty", i)
		}
		if _, err := glob.Compile(pattern); err != nil {
			return fmt.Errorf("watch.exclude[%d]: %w", i, err)
		}
	}
	return nil
}

func configError(err error, path, msg string) error {
	de := &errors.DomainError{Code: errors.CodeConfig, Message: msg, Err: err}
	return de.WithContext(errors.CtxPath, path)
}

// Package config loads minipar.toml.
package config

import (
	"time"

	"github.com/AnriaW/minipar/internal/channel"
)

// DefaultFile is looked up in the working directory when no path is given.
const DefaultFile = "minipar.toml"

type Config struct {
	Log     Log     `toml:"log"`
	Channel Channel `toml:"channel"`
	Runtime Runtime `toml:"runtime"`
	Metrics Metrics `toml:"metrics"`
	Watch   Watch   `toml:"watch"`
	REPL    REPL    `toml:"repl"`
}

type Log struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

type Channel struct {
	ReadBuffer     int `toml:"read_buffer"`
	DialAttempts   int `toml:"dial_attempts"`
	DialIntervalMS int `toml:"dial_interval_ms"`
	LocalCapacity  int `toml:"local_capacity"`
}

type Runtime struct {
	MaxParallel int `toml:"max_parallel"`
}

type Metrics struct {
	Addr string `toml:"addr"`
}

type Watch struct {
	Exclude    []string `toml:"exclude"`
	DebounceMS int      `toml:"debounce_ms"`
}

type REPL struct {
	HistoryFile string `toml:"history_file"`
}

// ChannelOptions converts the channel section for the channel package.
func (c *Config) ChannelOptions() channel.Options {
	return channel.Options{
		ReadBuffer:    c.Channel.ReadBuffer,
		DialAttempts:  c.Channel.DialAttempts,
		DialInterval:  time.Duration(c.Channel.DialIntervalMS) * time.Millisecond,
		LocalCapacity: c.Channel.LocalCapacity,
	}
}

// Debounce returns the watcher's coalescing window.
func (c *Config) Debounce() time.Duration {
	return time.Duration(c.Watch.DebounceMS) * time.Millisecond
}

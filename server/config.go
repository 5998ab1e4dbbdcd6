package main

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/vfxecho/Aetlis/server/arena"
)

// ServerConfig is the process section of the config file
type ServerConfig struct {
	Addr           string `yaml:"addr"`
	ClientDir      string `yaml:"client_dir"`
	PublicURL      string `yaml:"public_url"`
	DBPath         string `yaml:"db_path"`
	LogPath        string `yaml:"log_path"`
	Debug          bool   `yaml:"debug"`
	TickLogDir     string `yaml:"tick_log_dir"`
	TickLogEvery   int    `yaml:"tick_log_every"`
	MaxConnsPerIP  int    `yaml:"max_conns_per_ip"`
	MaxTotalConns  int    `yaml:"max_total_conns"`
	MessagesPerSec int    `yaml:"messages_per_sec"`
	Seed           int64  `yaml:"seed"`
}

// Config is the whole config file: process settings plus the arena constants
type Config struct {
	Server ServerConfig   `yaml:"server"`
	Arena  arena.Settings `yaml:"arena"`
}

// DefaultConfig returns the configuration used when no file is given
func DefaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Addr:           ":8080",
			PublicURL:      "http://localhost:8080",
			DBPath:         "aetlis.db",
			TickLogEvery:   25,
			MaxConnsPerIP:  5,
			MaxTotalConns:  1000,
			MessagesPerSec: 120,
		},
		Arena: arena.DefaultSettings(),
	}
}

// LoadConfig reads a YAML file over the defaults. Keys missing from the file
// keep their default value, and so do values of the wrong type: those are
// logged and skipped. Only unreadable or unparsable files are errors.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		var typeErr *yaml.TypeError
		if !errors.As(err, &typeErr) {
			return cfg, fmt.Errorf("%s: %w", path, err)
		}
		for _, msg := range typeErr.Errors {
			Log.Warnw("malformed setting, using default", "file", path, "error", msg)
		}
	}
	cfg.sanitize()
	return cfg, nil
}

func (c *Config) sanitize() {
	d := DefaultConfig().Server
	s := &c.Server
	if s.Addr == "" {
		s.Addr = d.Addr
	}
	if s.TickLogEvery < 1 {
		s.TickLogEvery = d.TickLogEvery
	}
	if s.MaxConnsPerIP < 1 {
		Log.Warnw("malformed setting, using default", "key", "max_conns_per_ip", "value", s.MaxConnsPerIP)
		s.MaxConnsPerIP = d.MaxConnsPerIP
	}
	if s.MaxTotalConns < 1 {
		Log.Warnw("malformed setting, using default", "key", "max_total_conns", "value", s.MaxTotalConns)
		s.MaxTotalConns = d.MaxTotalConns
	}
	if s.MessagesPerSec < 1 {
		Log.Warnw("malformed setting, using default", "key", "messages_per_sec", "value", s.MessagesPerSec)
		s.MessagesPerSec = d.MessagesPerSec
	}
	c.Arena.Sanitize(Log)
}

package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/vfxecho/Aetlis/server/arena"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadConfigOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
server:
  addr: ":9000"
  max_conns_per_ip: 2
arena:
  server_name: "test arena"
  pellet_count: 10
  world_max_count: 4
`)
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Addr != ":9000" || cfg.Server.MaxConnsPerIP != 2 {
		t.Errorf("server section not applied: %+v", cfg.Server)
	}
	if cfg.Arena.ServerName != "test arena" || cfg.Arena.PelletCount != 10 || cfg.Arena.WorldMaxCount != 4 {
		t.Errorf("arena section not applied")
	}

	d := DefaultConfig()
	if cfg.Server.MaxTotalConns != d.Server.MaxTotalConns {
		t.Errorf("missing key lost its default: %d", cfg.Server.MaxTotalConns)
	}
	if cfg.Arena.VirusSize != arena.DefaultSettings().VirusSize {
		t.Errorf("missing arena key lost its default: %f", cfg.Arena.VirusSize)
	}
}

func TestLoadConfigSanitizes(t *testing.T) {
	path := writeConfig(t, `
server:
  max_total_conns: -1
  messages_per_sec: 0
arena:
  server_frequency: 0
`)
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	d := DefaultConfig()
	if cfg.Server.MaxTotalConns != d.Server.MaxTotalConns || cfg.Server.MessagesPerSec != d.Server.MessagesPerSec {
		t.Errorf("server values not sanitized: %+v", cfg.Server)
	}
	if cfg.Arena.ServerFrequency != d.Arena.ServerFrequency {
		t.Errorf("arena frequency not sanitized: %d", cfg.Arena.ServerFrequency)
	}
}

func TestLoadConfigErrors(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("missing file should fail")
	}
	if _, err := LoadConfig(writeConfig(t, "server: [1, 2")); err == nil {
		t.Error("malformed yaml should fail")
	}
}

func TestLoadConfigSkipsMistypedValues(t *testing.T) {
	path := writeConfig(t, `
server:
  max_conns_per_ip: many
arena:
  pellet_count: lots
  virus_size: 120
`)
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("mistyped values should not fail the load: %v", err)
	}
	d := DefaultConfig()
	if cfg.Arena.PelletCount != d.Arena.PelletCount {
		t.Errorf("mistyped pellet_count should keep its default, got %d", cfg.Arena.PelletCount)
	}
	if cfg.Server.MaxConnsPerIP != d.Server.MaxConnsPerIP {
		t.Errorf("mistyped max_conns_per_ip should keep its default, got %d", cfg.Server.MaxConnsPerIP)
	}
	if cfg.Arena.VirusSize != 120 {
		t.Errorf("well-formed keys next to a bad one should still apply, got %f", cfg.Arena.VirusSize)
	}
}

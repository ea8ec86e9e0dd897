package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.Addr != ":9000" {
		t.Fatalf("default addr: %s", cfg.Addr)
	}
	if cfg.TimerInterval() != 10*time.Second {
		t.Fatalf("default timer interval: %v", cfg.TimerInterval())
	}
	if cfg.RecvBufferBytes != 1024 {
		t.Fatalf("default recv buffer: %d", cfg.RecvBufferBytes)
	}
	if cfg.RecordsPerConn != 1 {
		t.Fatalf("default records per conn: %d", cfg.RecordsPerConn)
	}
	if cfg.EchoMode != EchoAtomic {
		t.Fatalf("default echo mode: %s", cfg.EchoMode)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults must validate: %v", err)
	}
}

func TestLoadJSON(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "aesd.json")
	data := []byte(`{"addr":":9100","timerIntervalMs":500,"echoMode":"split"}`)
	if err := os.WriteFile(file, data, 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := Load(file)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != ":9100" || cfg.TimerIntervalMs != 500 || cfg.EchoMode != EchoSplit {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
	if cfg.RecvBufferBytes != 1024 {
		t.Fatalf("unset keys should keep defaults")
	}
}

func TestLoadYAML(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "aesd.yaml")
	data := []byte("addr: \":9200\"\nbackend: pebble\nrecordsPerConn: 0\n")
	if err := os.WriteFile(file, data, 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := Load(file)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != ":9200" || cfg.Backend != BackendPebble || cfg.RecordsPerConn != 0 {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
}

func TestLoadMissing(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.json")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestFromEnv(t *testing.T) {
	cfg := Default()
	t.Setenv("AESD_ADDR", "127.0.0.1:9001")
	t.Setenv("AESD_TIMER_INTERVAL_MS", "250")
	t.Setenv("AESD_RECORDS_PER_CONN", "nope")
	t.Setenv("AESD_ECHO_MODE", "split")
	FromEnv(&cfg)
	if cfg.Addr != "127.0.0.1:9001" {
		t.Fatalf("env override addr")
	}
	if cfg.TimerIntervalMs != 250 {
		t.Fatalf("env override timer")
	}
	if cfg.RecordsPerConn != 1 {
		t.Fatalf("malformed number should be ignored")
	}
	if cfg.EchoMode != EchoSplit {
		t.Fatalf("env override echo mode")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty addr", func(c *Config) { c.Addr = "" }},
		{"empty data file", func(c *Config) { c.DataFile = "" }},
		{"bad backend", func(c *Config) { c.Backend = "s3" }},
		{"bad fsync", func(c *Config) { c.Fsync = "sometimes" }},
		{"bad echo mode", func(c *Config) { c.EchoMode = "lazy" }},
		{"zero timer", func(c *Config) { c.TimerIntervalMs = 0 }},
		{"zero buffer", func(c *Config) { c.RecvBufferBytes = 0 }},
		{"negative records", func(c *Config) { c.RecordsPerConn = -1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
}

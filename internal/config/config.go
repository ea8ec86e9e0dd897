package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/goccy/go-yaml"
)

// Backend names accepted by Config.Backend.
const (
	BackendFile   = "file"
	BackendPebble = "pebble"
)

// Echo modes accepted by Config.EchoMode.
const (
	// EchoAtomic appends the record's final chunk and reads the full log
	// inside one critical section.
	EchoAtomic = "atomic"
	// EchoSplit appends under the lock and reads after releasing it, so an
	// echo may include bytes another connection appended in between.
	EchoSplit = "split"
)

// Config is the top-level configuration loaded from file/env.
type Config struct {
	Addr            string `json:"addr" yaml:"addr"`
	DataFile        string `json:"dataFile" yaml:"dataFile"`
	Backend         string `json:"backend" yaml:"backend"`
	Fsync           string `json:"fsync" yaml:"fsync"`
	FsyncIntervalMs int    `json:"fsyncIntervalMs" yaml:"fsyncIntervalMs"`
	TimerIntervalMs int    `json:"timerIntervalMs" yaml:"timerIntervalMs"`
	RecvBufferBytes int    `json:"recvBufferBytes" yaml:"recvBufferBytes"`
	// RecordsPerConn bounds record/response cycles per connection; 0 means
	// the connection stays open until the peer closes it.
	RecordsPerConn int    `json:"recordsPerConn" yaml:"recordsPerConn"`
	IdleTimeoutMs  int    `json:"idleTimeoutMs" yaml:"idleTimeoutMs"`
	ReapIntervalMs int    `json:"reapIntervalMs" yaml:"reapIntervalMs"`
	EchoMode       string `json:"echoMode" yaml:"echoMode"`

	AdminHTTPAddr string `json:"adminHTTPAddr" yaml:"adminHTTPAddr"`
	AdminGRPCAddr string `json:"adminGRPCAddr" yaml:"adminGRPCAddr"`

	LogLevel  string `json:"logLevel" yaml:"logLevel"`
	LogFormat string `json:"logFormat" yaml:"logFormat"`
	LogOutput string `json:"logOutput" yaml:"logOutput"`
}

// Default returns built-in defaults.
func Default() Config {
	return Config{
		Addr:            ":9000",
		DataFile:        DefaultDataFile(),
		Backend:         BackendFile,
		Fsync:           "never",
		FsyncIntervalMs: 5,
		TimerIntervalMs: 10_000,
		RecvBufferBytes: 1024,
		RecordsPerConn:  1,
		ReapIntervalMs:  1000,
		EchoMode:        EchoAtomic,
		LogLevel:        "info",
		LogFormat:       "text",
		LogOutput:       "console",
	}
}

// Load reads configuration from a JSON or YAML file (by extension) on top of
// Default. If path is empty, returns defaults.
func Load(path string) (Config, error) {
	if path == "" {
		return Default(), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	cfg := Default()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return Config{}, fmt.Errorf("config %s: %w", path, err)
		}
	default:
		if err := json.Unmarshal(b, &cfg); err != nil {
			return Config{}, fmt.Errorf("config %s: %w", path, err)
		}
	}
	return cfg, nil
}

// Validate rejects values the server cannot run with.
func (c Config) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("config: addr is required")
	}
	if c.DataFile == "" {
		return fmt.Errorf("config: dataFile is required")
	}
	switch c.Backend {
	case BackendFile, BackendPebble:
	default:
		return fmt.Errorf("config: unknown backend %q (use file|pebble)", c.Backend)
	}
	switch c.Fsync {
	case "always", "interval", "never":
	default:
		return fmt.Errorf("config: invalid fsync %q (use always|interval|never)", c.Fsync)
	}
	switch c.EchoMode {
	case EchoAtomic, EchoSplit:
	default:
		return fmt.Errorf("config: unknown echoMode %q (use atomic|split)", c.EchoMode)
	}
	if c.TimerIntervalMs <= 0 {
		return fmt.Errorf("config: timerIntervalMs must be positive")
	}
	if c.RecvBufferBytes <= 0 {
		return fmt.Errorf("config: recvBufferBytes must be positive")
	}
	if c.RecordsPerConn < 0 || c.IdleTimeoutMs < 0 || c.ReapIntervalMs < 0 {
		return fmt.Errorf("config: recordsPerConn, idleTimeoutMs and reapIntervalMs must not be negative")
	}
	return nil
}

func (c Config) TimerInterval() time.Duration { return ms(c.TimerIntervalMs) }
func (c Config) IdleTimeout() time.Duration   { return ms(c.IdleTimeoutMs) }
func (c Config) ReapInterval() time.Duration  { return ms(c.ReapIntervalMs) }
func (c Config) FsyncInterval() time.Duration { return ms(c.FsyncIntervalMs) }

func ms(v int) time.Duration { return time.Duration(v) * time.Millisecond }

// Package config provides configuration loading using koanf.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const (
	// EnvPrefix prefixes every environment override, e.g. QUOTEBOOK_SYNC_INTERVAL.
	EnvPrefix = "QUOTEBOOK_"

	// EnvDB is the database path override kept for parity with --db.
	EnvDB = "QUOTEBOOK_DB"

	// DefaultRemoteURL is the mock endpoint the quotes are synchronized against.
	DefaultRemoteURL = "https://jsonplaceholder.typicode.com/posts"

	// DefaultLogFileMaxSizeMB is the default max log file size in megabytes.
	DefaultLogFileMaxSizeMB = 10

	// DefaultLogFileMaxBackups is the default number of old log files to retain.
	DefaultLogFileMaxBackups = 3

	// DefaultLogFileMaxAgeDays is the default max days to retain old log files.
	DefaultLogFileMaxAgeDays = 28
)

// Config is the root configuration structure.
type Config struct {
	DB      DBConfig      `koanf:"db"      validate:"required"`
	Remote  RemoteConfig  `koanf:"remote"  validate:"required"`
	Sync    SyncConfig    `koanf:"sync"    validate:"required"`
	Log     LogConfig     `koanf:"log"     validate:"required"`
	Metrics MetricsConfig `koanf:"metrics"`
	Server  ServerConfig  `koanf:"server"`
}

// DBConfig locates the durable store.
type DBConfig struct {
	Path string `koanf:"path" validate:"required"`
}

// RemoteConfig points at the remote quote source.
type RemoteConfig struct {
	URL     string        `koanf:"url"     validate:"required,url"`
	Timeout time.Duration `koanf:"timeout" validate:"required,min=100ms"`
}

// SyncConfig controls periodic synchronization.
type SyncConfig struct {
	Interval time.Duration `koanf:"interval" validate:"required,min=1s"`
	OnStart  bool          `koanf:"on_start"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	Level  string        `koanf:"level"  validate:"required,oneof=debug info warn error"`
	Format string        `koanf:"format" validate:"required,oneof=json text pretty"`
	File   LogFileConfig `koanf:"file"`
}

// LogFileConfig contains rolling log file settings.
type LogFileConfig struct {
	Enabled    bool   `koanf:"enabled"`
	Path       string `koanf:"path"        validate:"required_if=Enabled true"`
	MaxSizeMB  int    `koanf:"max_size"    validate:"omitempty,min=1,max=1024"`
	MaxBackups int    `koanf:"max_backups" validate:"omitempty,min=0,max=100"`
	MaxAgeDays int    `koanf:"max_age"     validate:"omitempty,min=0,max=365"`
	Compress   bool   `koanf:"compress"`
}

// MetricsConfig enables the Prometheus endpoint in watch mode.
type MetricsConfig struct {
	Addr string `koanf:"addr" validate:"omitempty,hostname_port"`
}

// ServerConfig configures the mock remote server.
type ServerConfig struct {
	Addr string `koanf:"addr" validate:"omitempty,hostname_port"`
}

// HomeDir returns the directory holding the default database and config file.
func HomeDir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".quotebook")
}

// DefaultConfigFile returns the config file read when no path is given.
func DefaultConfigFile() string {
	return filepath.Join(HomeDir(), "config.yaml")
}

func defaults() map[string]any {
	return map[string]any{
		"db.path": filepath.Join(HomeDir(), "quotes.db"),

		"remote.url":     DefaultRemoteURL,
		"remote.timeout": "10s",

		"sync.interval": "60s",
		"sync.on_start": true,

		"log.level":            "info",
		"log.format":           "pretty",
		"log.file.enabled":     false,
		"log.file.path":        filepath.Join(HomeDir(), "quotebook.log"),
		"log.file.max_size":    DefaultLogFileMaxSizeMB,
		"log.file.max_backups": DefaultLogFileMaxBackups,
		"log.file.max_age":     DefaultLogFileMaxAgeDays,
		"log.file.compress":    false,

		"metrics.addr": "",
		"server.addr":  "127.0.0.1:8089",
	}
}

// envKeyFixer restores the underscores in multi-word keys.
var envKeyFixer = strings.NewReplacer(
	"on.start", "on_start",
	"max.size", "max_size",
	"max.backups", "max_backups",
	"max.age", "max_age",
)

// Load loads configuration with the following precedence (highest to lowest):
//  1. Environment variables (QUOTEBOOK_ prefix, "_" separates levels)
//  2. Config file at path (or DefaultConfigFile when path is empty), if it exists
//  3. Default values
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("loading defaults: %w", err)
	}

	explicit := path != ""
	if !explicit {
		path = DefaultConfigFile()
	}
	if err := loadFile(k, path, explicit); err != nil {
		return nil, fmt.Errorf("loading config file %q: %w", path, err)
	}

	err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		if s == EnvDB {
			return "db.path"
		}
		key := strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "_", ".")
		return envKeyFixer.Replace(key)
	}), nil)
	if err != nil {
		return nil, fmt.Errorf("loading env vars: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	return &cfg, nil
}

// loadFile loads a YAML config file. A missing file is an error only when the
// path was given explicitly.
func loadFile(k *koanf.Koanf, path string, explicit bool) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if explicit {
			return err
		}
		return nil
	}

	return k.Load(file.Provider(path), yaml.Parser())
}

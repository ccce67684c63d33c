// Package config loads server settings.
//
// Sources apply in order, later ones winning: built-in defaults, an optional
// TOML or YAML file, environment variables, then command-line flags that
// were set explicitly.
package config

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/stevemurr/todo-sync-server/logging"
	"github.com/stevemurr/todo-sync-server/store"
	"github.com/stevemurr/todo-sync-server/todo"
)

type Config struct {
	Host           string   `toml:"host" yaml:"host"`
	Port           int      `toml:"port" yaml:"port"`
	DataDir        string   `toml:"data_dir" yaml:"data_dir"`
	Backend        string   `toml:"backend" yaml:"backend"`
	AllowedOrigins []string `toml:"allowed_origins" yaml:"allowed_origins"`
	LogLevel       string   `toml:"log_level" yaml:"log_level"`
	LogFormat      string   `toml:"log_format" yaml:"log_format"`
	// Collection holds the to-do items.
	Collection string `toml:"collection" yaml:"collection"`
}

// Default returns the settings used when nothing else is given.
func Default() *Config {
	return &Config{
		Host:           "0.0.0.0",
		Port:           8080,
		DataDir:        "./data",
		Backend:        "json",
		AllowedOrigins: []string{"*"},
		LogLevel:       "info",
		LogFormat:      "json",
		Collection:     todo.CollectionName,
	}
}

// Addr is the listen address.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// Validate reports the first setting that cannot be used.
func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("port %d out of range", c.Port)
	}
	if !slices.Contains(store.Backends, c.Backend) {
		return fmt.Errorf("unknown store backend %q (want one of %s)", c.Backend, strings.Join(store.Backends, ", "))
	}
	if c.Backend != "memory" && c.DataDir == "" {
		return fmt.Errorf("data_dir is required for the %s backend", c.Backend)
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return err
	}
	if !slices.Contains(logging.Formats, c.LogFormat) {
		return fmt.Errorf("invalid log format %q (want one of %s)", c.LogFormat, strings.Join(logging.Formats, ", "))
	}
	if err := store.ValidateCollectionName(c.Collection); err != nil {
		return fmt.Errorf("collection: %w", err)
	}
	return nil
}

// Load builds a Config from defaults, the file at path (skipped when empty),
// the environment and the flags in fs that were changed. fs may be nil.
func Load(path string, fs *pflag.FlagSet) (*Config, error) {
	cfg := Default()
	if path != "" {
		if err := loadFile(cfg, path); err != nil {
			return nil, fmt.Errorf("loading config file %s: %w", path, err)
		}
	}
	if err := loadEnv(cfg); err != nil {
		return nil, err
	}
	if fs != nil {
		if err := loadFlags(cfg, fs); err != nil {
			return nil, fmt.Errorf("parsing flags: %w", err)
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadFile(cfg *Config, path string) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		_, err := toml.DecodeFile(path, cfg)
		return err
	case ".yaml", ".yml":
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		return yaml.Unmarshal(data, cfg)
	default:
		return fmt.Errorf("unsupported config file type %q", filepath.Ext(path))
	}
}

func env(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func loadEnv(cfg *Config) error {
	cfg.Host = env("HOST", cfg.Host)
	if v := os.Getenv("PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("PORT: %w", err)
		}
		cfg.Port = port
	}
	cfg.DataDir = env("DATA_DIR", cfg.DataDir)
	cfg.Backend = env("STORE_BACKEND", cfg.Backend)
	if v := os.Getenv("ALLOWED_ORIGINS"); v != "" {
		cfg.AllowedOrigins = splitList(v)
	}
	cfg.LogLevel = env("LOG_LEVEL", cfg.LogLevel)
	cfg.LogFormat = env("LOG_FORMAT", cfg.LogFormat)
	cfg.Collection = env("TODO_COLLECTION", cfg.Collection)
	return nil
}

func splitList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Flag names registered by RegisterFlags.
const (
	FlagHost       = "host"
	FlagPort       = "port"
	FlagDataDir    = "data-dir"
	FlagBackend    = "backend"
	FlagOrigins    = "allowed-origins"
	FlagLogLevel   = "log-level"
	FlagLogFormat  = "log-format"
	FlagCollection = "collection"
)

// RegisterFlags adds the settings flags to fs. Only flags the user sets
// override the other sources.
func RegisterFlags(fs *pflag.FlagSet) {
	d := Default()
	fs.String(FlagHost, d.Host, "listen host (env HOST)")
	fs.Int(FlagPort, d.Port, "listen port (env PORT)")
	fs.String(FlagDataDir, d.DataDir, "data directory (env DATA_DIR)")
	fs.String(FlagBackend, d.Backend, "store backend: "+strings.Join(store.Backends, ", ")+" (env STORE_BACKEND)")
	fs.StringSlice(FlagOrigins, d.AllowedOrigins, "CORS allowed origins (env ALLOWED_ORIGINS)")
	fs.String(FlagLogLevel, d.LogLevel, "log level: debug, info, warn, error (env LOG_LEVEL)")
	fs.String(FlagLogFormat, d.LogFormat, "log format: json, text (env LOG_FORMAT)")
	fs.String(FlagCollection, d.Collection, "collection holding to-do items (env TODO_COLLECTION)")
}

func loadFlags(cfg *Config, fs *pflag.FlagSet) error {
	var err error
	str := func(name string, dst *string) {
		if err != nil || fs.Lookup(name) == nil || !fs.Changed(name) {
			return
		}
		*dst, err = fs.GetString(name)
	}
	str(FlagHost, &cfg.Host)
	str(FlagDataDir, &cfg.DataDir)
	str(FlagBackend, &cfg.Backend)
	str(FlagLogLevel, &cfg.LogLevel)
	str(FlagLogFormat, &cfg.LogFormat)
	str(FlagCollection, &cfg.Collection)
	if err != nil {
		return err
	}
	if fs.Lookup(FlagPort) != nil && fs.Changed(FlagPort) {
		if cfg.Port, err = fs.GetInt(FlagPort); err != nil {
			return err
		}
	}
	if fs.Lookup(FlagOrigins) != nil && fs.Changed(FlagOrigins) {
		if cfg.AllowedOrigins, err = fs.GetStringSlice(FlagOrigins); err != nil {
			return err
		}
	}
	return nil
}

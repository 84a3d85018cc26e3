// Package config loads the Till server configuration from an optional
// YAML file with environment variable overrides.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the runtime configuration of the server.
type Config struct {
	// ListenAddr is the HTTP listen address, e.g. ":8080".
	ListenAddr string `yaml:"listen_addr"`

	// Database is the SQLite database path.
	Database string `yaml:"database"`

	// CORSOrigins are the allowed browser origins for the API.
	CORSOrigins []string `yaml:"cors_origins"`

	// StaticDir, when set, is served as the web UI at the root path.
	StaticDir string `yaml:"static_dir"`

	// Printing enables best-effort receipt printing on close.
	Printing bool `yaml:"printing"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		ListenAddr:  ":8080",
		Database:    "till.db",
		CORSOrigins: []string{"http://localhost:3000"},
		Printing:    false,
	}
}

// Load reads the YAML file at path (missing file means defaults) and then
// applies environment overrides: TILL_ADDR, TILL_DB, TILL_CORS_ORIGINS
// (comma separated), TILL_STATIC_DIR, TILL_PRINTING.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
			// Fall through to defaults + env.
		case err != nil:
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return Config{}, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}

	applyEnv(&cfg)

	if cfg.ListenAddr == "" {
		return Config{}, fmt.Errorf("listen_addr must not be empty")
	}
	if cfg.Database == "" {
		return Config{}, fmt.Errorf("database must not be empty")
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("TILL_ADDR"); v != "" {
		cfg.ListenAddr = v
	}
	if v := os.Getenv("TILL_DB"); v != "" {
		cfg.Database = v
	}
	if v := os.Getenv("TILL_CORS_ORIGINS"); v != "" {
		origins := []string{}
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
		cfg.CORSOrigins = origins
	}
	if v := os.Getenv("TILL_STATIC_DIR"); v != "" {
		cfg.StaticDir = v
	}
	if v := os.Getenv("TILL_PRINTING"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Printing = b
		}
	}
}

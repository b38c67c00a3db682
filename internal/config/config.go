// Package config handles configuration for couchctl.
//
// Settings come from three places, later ones win: built-in defaults, an
// optional TOML file and COUCH_* environment variables. Command line flags
// are applied on top by the cli package.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Environment variables read by Load.
const (
	EnvURL      = "COUCH_URL"
	EnvUser     = "COUCH_USER"
	EnvPassword = "COUCH_PASSWORD"
	EnvTimeout  = "COUCH_TIMEOUT"
)

// Config holds the connection settings for a CouchDB instance.
type Config struct {
	URL      string
	Username string
	Password string
	Timeout  time.Duration
}

// file is the on-disk layout of the TOML file.
type file struct {
	URL      string `toml:"url"`
	Username string `toml:"username"`
	Password string `toml:"password"`
	Timeout  string `toml:"timeout"`
}

// Default returns a default configuration
func Default() *Config {
	return &Config{
		URL:     "http://127.0.0.1:5984",
		Timeout: 30 * time.Second,
	}
}

// DefaultPath returns ~/.couchctl/config.toml.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".couchctl", "config.toml")
}

// Load builds the configuration from defaults, the TOML file at path and the
// environment. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := cfg.readFile(path); err != nil {
			return nil, err
		}
	}

	if v := os.Getenv(EnvURL); v != "" {
		cfg.URL = v
	}
	if v := os.Getenv(EnvUser); v != "" {
		cfg.Username = v
	}
	if v := os.Getenv(EnvPassword); v != "" {
		cfg.Password = v
	}
	if v := os.Getenv(EnvTimeout); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", EnvTimeout, err)
		}
		cfg.Timeout = d
	}

	return cfg, nil
}

func (c *Config) readFile(path string) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}

	var f file
	if err := toml.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	if f.URL != "" {
		c.URL = f.URL
	}
	if f.Username != "" {
		c.Username = f.Username
	}
	if f.Password != "" {
		c.Password = f.Password
	}
	if f.Timeout != "" {
		d, err := time.ParseDuration(f.Timeout)
		if err != nil {
			return fmt.Errorf("parse %s: timeout: %w", path, err)
		}
		c.Timeout = d
	}
	return nil
}

// Save writes the configuration to path with restricted permissions.
func (c *Config) Save(path string) error {
	data, err := toml.Marshal(file{
		URL:      c.URL,
		Username: c.Username,
		Password: c.Password,
		Timeout:  c.Timeout.String(),
	})
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}

// Validate checks that the configuration can be used to connect.
func (c *Config) Validate() error {
	u, err := url.Parse(c.URL)
	if err != nil {
		return fmt.Errorf("invalid url %q: %w", c.URL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid url %q: scheme must be http or https", c.URL)
	}
	if u.Host == "" {
		return fmt.Errorf("invalid url %q: missing host", c.URL)
	}
	if c.Password != "" && c.Username == "" {
		return errors.New("password given without username")
	}
	if c.Timeout < 0 {
		return fmt.Errorf("invalid timeout %s", c.Timeout)
	}
	return nil
}

// HasCredentials reports whether a login should be attempted.
func (c *Config) HasCredentials() bool {
	return c.Username != ""
}

// Package config persists CLI-level settings: the Fullnode RPC endpoint URL
// and the location of the keystore. Everything lives under one config
// directory ($PCHAIN_CLI_HOME, or ~/.pchain-client when unset).
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const configFile = "config.json"

// EnvHome overrides the config directory when set.
const EnvHome = "PCHAIN_CLI_HOME"

// Config holds the persisted settings.
type Config struct {
	URL string `json:"url"`

	dir string
}

// Load reads config from dir (or creates defaults). dir defaults to
// $PCHAIN_CLI_HOME, then ~/.pchain-client.
func Load(dir string) (*Config, error) {
	if dir == "" {
		dir = os.Getenv(EnvHome)
	}
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("could not determine home dir: %w", err)
		}
		dir = filepath.Join(home, ".pchain-client")
	}

	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("could not create config dir: %w", err)
	}

	cfg := &Config{dir: dir}

	path := filepath.Join(dir, configFile)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	cfg.dir = dir
	return cfg, nil
}

// Save writes the config to disk with temp-file-then-rename, so a crash
// mid-write never leaves a corrupted config behind.
func (c *Config) Save() error {
	if err := os.MkdirAll(c.dir, 0o700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(c.dir, "."+configFile+".*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), filepath.Join(c.dir, configFile))
}

// SetURL normalizes and stores the RPC endpoint URL.
func (c *Config) SetURL(url string) {
	c.URL = strings.TrimRight(strings.TrimSpace(url), "/")
}

// Dir returns the config directory.
func (c *Config) Dir() string {
	return c.dir
}

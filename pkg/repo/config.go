package repo

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// Config is the repository-local settings file, .cryptogot/config.toml.
type Config struct {
	User   UserConfig   `toml:"user"`
	Keys   KeysConfig   `toml:"keys"`
	Remote RemoteConfig `toml:"remote"`
}

type UserConfig struct {
	Name string `toml:"name"`
}

// KeysConfig overrides where keys are read from. Relative paths are
// resolved against the repository root.
type KeysConfig struct {
	Dir        string `toml:"dir"`
	PrivateKey string `toml:"private_key"`
}

// RemoteConfig identifies the repository to whatever transport moves the
// locked pool.
type RemoteConfig struct {
	RepoID string `toml:"repo_id"`
}

func (r *Repo) configPath() string {
	return filepath.Join(r.MetaDir, "config.toml")
}

// ReadConfig reads .cryptogot/config.toml. A missing file yields the zero
// Config.
func (r *Repo) ReadConfig() (*Config, error) {
	var cfg Config
	if _, err := toml.DecodeFile(r.configPath(), &cfg); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	return &cfg, nil
}

// WriteConfig atomically writes .cryptogot/config.toml.
func (r *Repo) WriteConfig(cfg *Config) error {
	if cfg == nil {
		cfg = &Config{}
	}
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("write config: encode: %w", err)
	}

	tmp, err := os.CreateTemp(r.MetaDir, ".config-tmp-*")
	if err != nil {
		return fmt.Errorf("write config: tmpfile: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write config: write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("write config: close: %w", err)
	}
	if err := os.Rename(tmpName, r.configPath()); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("write config: rename: %w", err)
	}
	return nil
}

// Author returns the name recorded in new commits: user.name from the
// config, else $USER, else "unknown".
func (r *Repo) Author() (string, error) {
	cfg, err := r.ReadConfig()
	if err != nil {
		return "", err
	}
	if name := strings.TrimSpace(cfg.User.Name); name != "" {
		return name, nil
	}
	if name := strings.TrimSpace(os.Getenv("USER")); name != "" {
		return name, nil
	}
	return "unknown", nil
}

// applyConfig points the key ring at the configured locations.
func (r *Repo) applyConfig(cfg *Config) {
	if dir := strings.TrimSpace(cfg.Keys.Dir); dir != "" {
		r.Keys.Dir = r.resolve(dir)
	}
	if priv := strings.TrimSpace(cfg.Keys.PrivateKey); priv != "" {
		r.Keys.PrivateKeyPath = r.resolve(priv)
	}
}

func (r *Repo) resolve(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(r.RootDir, p)
}

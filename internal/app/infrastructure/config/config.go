package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v11"
)

// Manager holds the configuration loaded at startup. It is read-only.
type Manager struct {
	cfg     *Config
	environ map[string]string
}

type Option func(*Manager)

// WithEnvironment replaces the process environment used for overrides.
func WithEnvironment(environ map[string]string) Option {
	return func(m *Manager) {
		m.environ = environ
	}
}

// New loads the config at path, writing the defaults there when the file does
// not exist. TMI_* environment variables override the file and are never
// written back.
func New(path string, opts ...Option) (*Manager, error) {
	if path == "" {
		return nil, errors.New("no config path provided")
	}

	m := &Manager{}
	for _, opt := range opts {
		opt(m)
	}

	cfg, err := load(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		cfg = Default()
		if err := writeDefaults(path, cfg); err != nil {
			return nil, fmt.Errorf("write config: %w", err)
		}
	case err != nil:
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := m.overlayEnv(cfg); err != nil {
		return nil, err
	}
	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("validate: %w", err)
	}

	m.cfg = cfg
	return m, nil
}

func (m *Manager) Get() *Config {
	return m.cfg
}

func (m *Manager) overlayEnv(cfg *Config) error {
	var opts env.Options
	if m.environ != nil {
		opts.Environment = m.environ
	}

	if err := env.ParseWithOptions(cfg, opts); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

func load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("parse json: %w", err)
	}
	return &cfg, nil
}

// writeDefaults creates path through a temp file so a crash never leaves a
// half-written config behind.
func writeDefaults(path string, cfg *Config) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), 0600); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"example.com/notepad/internal/autosave"
)

const defaultServer = "http://localhost:8080"

// settings is the CLI config file, by default ~/.notepad.yaml:
//
//	server: http://localhost:8080
//	quiet_period: 500ms
type settings struct {
	Server      string        `yaml:"server"`
	QuietPeriod time.Duration `yaml:"quiet_period"`
}

func defaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".notepad.yaml"
	}
	return filepath.Join(home, ".notepad.yaml")
}

// loadSettings reads path over the defaults. A missing file is not an error.
func loadSettings(path string) (settings, error) {
	s := settings{Server: defaultServer, QuietPeriod: autosave.DefaultQuiet}
	if path == "" {
		return s, nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return s, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &s); err != nil {
		return s, fmt.Errorf("parse config %s: %w", path, err)
	}
	if s.Server == "" {
		s.Server = defaultServer
	}
	if s.QuietPeriod <= 0 {
		s.QuietPeriod = autosave.DefaultQuiet
	}
	return s, nil
}

func (s *settings) setQuiet(v string) error {
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return fmt.Errorf("invalid --quiet %q", v)
	}
	s.QuietPeriod = d
	return nil
}

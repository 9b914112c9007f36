package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/Alijeyrad/gowm/internal/logging"
)

var (
	ErrEmptyKeys = errors.New("keys is empty")
	ErrEmptyExec = errors.New("exec is empty")
)

type Config struct {
	// LogLevel is one of trace, debug, info, warn or error.
	LogLevel string `yaml:"log_level"`

	// Keybinds is the binding table in priority order. The first binding
	// matching a key press wins.
	Keybinds []Keybind `yaml:"keybinds"`
}

// Keybind binds a key sequence such as "M-S-Return" to a command.
type Keybind struct {
	Keys string   `yaml:"keys"`
	Exec []string `yaml:"exec,flow"`
}

func Default() *Config {
	return &Config{
		LogLevel: "info",
		Keybinds: []Keybind{
			{Keys: "M-d", Exec: []string{"rofi", "-show", "run"}},
		},
	}
}

func dir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "gowm")
}

// Path returns the default location of the configuration file.
func Path() string {
	return filepath.Join(dir(), "config.yaml")
}

// LoadFile reads the configuration file at path. A missing or empty file
// yields the defaults. Keys the file omits keep their default values.
func LoadFile(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return cfg, nil
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Validate reports the first malformed entry.
func (c *Config) Validate() error {
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return err
	}
	for i, kb := range c.Keybinds {
		if strings.TrimSpace(kb.Keys) == "" {
			return fmt.Errorf("keybind %d: %w", i+1, ErrEmptyKeys)
		}
		if len(kb.Exec) == 0 || kb.Exec[0] == "" {
			return fmt.Errorf("keybind %d (%s): %w", i+1, kb.Keys, ErrEmptyExec)
		}
	}
	return nil
}

// SaveFile writes c to path, creating its directory.
func (c *Config) SaveFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/creachadair/atomicfile"
	"github.com/spf13/viper"
)

// DefaultConfigFileName is the name of the config file under the root
// directory.
const DefaultConfigFileName = "config.toml"

// LoadConfig reads the config file at path over the defaults and validates
// the result. Keys missing from the file keep their default values.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("toml")
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config %q: %w", path, err)
	}

	cfg := DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decoding config %q: %w", path, err)
	}
	cfg.SetRoot(filepath.Dir(path))

	if err := cfg.ValidateBasic(); err != nil {
		return nil, fmt.Errorf("error in config file: %w", err)
	}
	return cfg, nil
}

// WriteConfigFile renders cfg as TOML and atomically replaces the file at
// path with it.
func WriteConfigFile(path string, cfg *Config) error {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	_, err := atomicfile.WriteAll(path, &buf, 0o644)
	return err
}

// EnsureRoot creates the root directory and writes a default config file
// into it, unless one exists.
func EnsureRoot(rootDir string) (string, error) {
	if err := os.MkdirAll(rootDir, 0o700); err != nil {
		return "", fmt.Errorf("creating root dir: %w", err)
	}
	path := filepath.Join(rootDir, DefaultConfigFileName)
	if _, err := os.Stat(path); err == nil {
		return path, nil
	} else if !os.IsNotExist(err) {
		return "", err
	}
	return path, WriteConfigFile(path, DefaultConfig())
}

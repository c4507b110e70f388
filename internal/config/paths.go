package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// EnvConfig names the environment variable that points at a config file.
const EnvConfig = "PBSETUP_CONFIG"

// DefaultPath returns ~/.config/pbsetup/config.lua.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home directory: %w", err)
	}
	return filepath.Join(home, ".config", "pbsetup", "config.lua"), nil
}

// ResolvePath picks the config location: the flag value, then PBSETUP_CONFIG,
// then the default path. explicit is false only for the default path.
func ResolvePath(flagPath string) (path string, explicit bool, err error) {
	if p := strings.TrimSpace(flagPath); p != "" {
		return p, true, nil
	}
	if p := strings.TrimSpace(os.Getenv(EnvConfig)); p != "" {
		return p, true, nil
	}
	path, err = DefaultPath()
	return path, false, err
}

// Load resolves and parses the user config. A missing default file yields
// (nil, path, nil); a missing explicitly named file is an error.
func (p *Parser) Load(ctx context.Context, flagPath string) (*Config, string, error) {
	path, explicit, err := ResolvePath(flagPath)
	if err != nil {
		return nil, "", err
	}

	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) && !explicit {
			return nil, path, nil
		}
		return nil, path, fmt.Errorf("stat config: %w", err)
	}

	cfg, err := p.ParseFile(ctx, path)
	if err != nil {
		return nil, path, err
	}
	return cfg, path, nil
}

// WriteFile renders cfg with the generator and writes it to path, creating
// parent directories. An existing file is left alone unless force is set.
func WriteFile(path string, cfg *Config, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists: %s", path)
		}
	}

	content, err := NewGenerator().Generate(cfg)
	if err != nil {
		return fmt.Errorf("generate config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

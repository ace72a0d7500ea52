package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// LoadFile reads a YAML document. A missing file yields fallback unchanged and
// no error, so a fresh install starts from defaults.
func LoadFile(path string, fallback Data) (Data, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fallback, nil
		}
		return Data{}, fmt.Errorf("config: read %s: %w", path, err)
	}

	out := fallback.Clone()
	if err := yaml.Unmarshal(raw, &out); err != nil {
		return Data{}, fmt.Errorf("config: decode %s: %w", path, err)
	}
	return out, nil
}

// WriteFile replaces the document atomically.
func WriteFile(path string, data Data) error {
	encoded, err := yaml.Marshal(data)
	if err != nil {
		return fmt.Errorf("config: encode: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("config: creating dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".discordlink-*.yaml")
	if err != nil {
		return fmt.Errorf("config: temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(encoded); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("config: write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("config: close: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("config: replace %s: %w", path, err)
	}
	return nil
}

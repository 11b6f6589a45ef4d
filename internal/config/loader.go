package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"testrig/pkg/logging"
)

// FileName is the configuration file looked up in a config directory.
const FileName = "testrig.yaml"

// LoadConfig loads FileName from configPath over the defaults. A missing
// file yields the defaults. The result is validated.
func LoadConfig(configPath string) (RigConfig, error) {
	configFilePath := filepath.Join(configPath, FileName)
	config := GetDefaultConfig()

	data, err := os.ReadFile(configFilePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logging.Debug("Config", "No %s found at %s, using defaults", FileName, configPath)
			return config, nil
		}
		return RigConfig{}, fmt.Errorf("error reading %s: %w", configFilePath, err)
	}

	config, err = Parse(data)
	if err != nil {
		return RigConfig{}, fmt.Errorf("error loading config from %s: %w", configFilePath, err)
	}
	logging.Info("Config", "Loaded configuration from %s", configFilePath)
	return config, nil
}

// Parse decodes YAML over the defaults and validates the result.
func Parse(data []byte) (RigConfig, error) {
	config := GetDefaultConfig()
	if err := yaml.Unmarshal(data, &config); err != nil {
		return RigConfig{}, err
	}
	if err := config.Validate(); err != nil {
		return RigConfig{}, err
	}
	return config, nil
}

// Marshal encodes c as YAML.
func (c RigConfig) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}

// Save writes c to FileName inside configPath, creating the directory.
func Save(configPath string, c RigConfig) error {
	data, err := c.Marshal()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(configPath, 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", configPath, err)
	}
	return os.WriteFile(filepath.Join(configPath, FileName), data, 0o644)
}

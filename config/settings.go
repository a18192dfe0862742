package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// LoadSystemConfig reads ~/.config/deepchat/settings.toml. On first run the
// commented default template is written and its defaults returned.
func LoadSystemConfig() (*SystemConfig, error) {
	cfg := DefaultSystemConfig()
	settingsPath := GetSettingsFilePath()

	if !FileExists(settingsPath) {
		if err := writeTemplate(settingsPath, GenerateSystemConfigTemplate()); err != nil {
			return nil, fmt.Errorf("failed to create system config: %w", err)
		}
		return cfg, nil
	}

	if _, err := toml.DecodeFile(settingsPath, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse system config: %w", err)
	}
	return cfg, nil
}

// LoadUserConfig reads <data>/config.toml, writing the default template on
// first run.
func LoadUserConfig(dataDir string) (*UserConfig, error) {
	cfg := DefaultUserConfig()
	userConfigPath := filepath.Join(dataDir, "config.toml")

	if !FileExists(userConfigPath) {
		if err := writeTemplate(userConfigPath, GenerateUserConfigTemplate()); err != nil {
			return nil, fmt.Errorf("failed to create user config: %w", err)
		}
		return cfg, nil
	}

	if _, err := toml.DecodeFile(userConfigPath, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse user config: %w", err)
	}
	return cfg, nil
}

// writeTemplate creates a config file and its directory with user-only
// permissions (0700 dir, 0600 file).
func writeTemplate(path, content string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	return nil
}

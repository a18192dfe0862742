package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/miyifan/deepchat/model"
)

// SystemConfig lives at ~/.config/deepchat/settings.toml and only records
// where everything else is stored.
type SystemConfig struct {
	DataDirectory string `toml:"data_directory"`
}

// ChatDefaults are the generation parameters cloned into every new window.
type ChatDefaults struct {
	Temperature  float64 `toml:"temperature"`
	TopP         float64 `toml:"top_p"`
	TopK         int     `toml:"top_k"`
	MaxLength    int     `toml:"max_length"`
	Model        string  `toml:"model"`
	SystemPrompt string  `toml:"system_prompt,omitempty"`
}

// UserConfig lives at <data_directory>/config.toml.
type UserConfig struct {
	BaseURL string       `toml:"base_url"`
	Chat    ChatDefaults `toml:"chat"`
}

// Config is the resolved runtime configuration.
type Config struct {
	DataDirectory string
	BaseURL       string
	Chat          ChatDefaults
}

var Debug = false
var DebugLog *log.Logger

func (c *Config) DataDir() string {
	return ExpandPath(c.DataDirectory)
}

// DefaultChatSettings resolves the configured defaults into a ChatSettings
// value, including the starter function library.
func (c *Config) DefaultChatSettings() model.ChatSettings {
	s := model.DefaultSettings()
	if c.Chat.Temperature > 0 {
		s.Temperature = c.Chat.Temperature
	}
	if c.Chat.TopP > 0 {
		s.TopP = c.Chat.TopP
	}
	if c.Chat.TopK > 0 {
		s.TopK = c.Chat.TopK
	}
	if c.Chat.MaxLength > 0 {
		s.MaxLength = c.Chat.MaxLength
	}
	if alias := model.ModelAlias(c.Chat.Model); alias.Known() {
		s.Model = alias
	}
	s.SystemPrompt = c.Chat.SystemPrompt
	return s
}

func (c *Config) applyEnvOverrides() {
	if dataDir := os.Getenv("DEEPCHAT_DATA_DIR"); dataDir != "" {
		c.DataDirectory = dataDir
	}
	if baseURL := os.Getenv("DEEPCHAT_BASE_URL"); baseURL != "" {
		c.BaseURL = baseURL
	}
}

func CheckDebug() bool {
	debug := os.Getenv("DEEPCHAT_DEBUG")
	return debug == "true" || debug == "1"
}

// InitDebugLog opens <data>/debug.log when DEEPCHAT_DEBUG is set. All
// frame-level skip decisions and tool-step failures log through DebugLog.
func InitDebugLog(dataDir string) {
	if !CheckDebug() {
		return
	}

	Debug = true
	logPath := filepath.Join(dataDir, "debug.log")

	// 0600 - may contain message content
	f, err := os.OpenFile(logPath, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0600)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Could not open debug log at %s: %v\n", logPath, err)
		return
	}

	DebugLog = log.New(f, "", log.Ldate|log.Ltime|log.Lmicroseconds|log.Lshortfile)
	DebugLog.Printf("=== Debug logging started (DEEPCHAT_DEBUG=%s) ===", os.Getenv("DEEPCHAT_DEBUG"))
}

// Load resolves system config, user config and environment overrides, and
// makes sure the data directory exists with user-only permissions.
func Load() (*Config, error) {
	cfg := &Config{
		DataDirectory: "~/.local/share/deepchat",
		BaseURL:       "https://api.deepseek.com",
	}

	systemCfg, err := LoadSystemConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load system config: %w", err)
	}
	if systemCfg.DataDirectory != "" {
		cfg.DataDirectory = systemCfg.DataDirectory
	}

	cfg.applyEnvOverrides()

	dataDir := cfg.DataDir()
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	if err := EnsureDataDirPermissions(dataDir); err != nil {
		return nil, fmt.Errorf("failed to set data directory permissions: %w", err)
	}

	userCfg, err := LoadUserConfig(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load user config: %w", err)
	}
	if userCfg.BaseURL != "" {
		cfg.BaseURL = userCfg.BaseURL
	}
	cfg.Chat = userCfg.Chat

	// Env override beats the user config file.
	if baseURL := os.Getenv("DEEPCHAT_BASE_URL"); baseURL != "" {
		cfg.BaseURL = baseURL
	}

	return cfg, nil
}

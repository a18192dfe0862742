package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadUserConfigFirstRunWritesTemplate(t *testing.T) {
	dir := t.TempDir()

	cfg, err := LoadUserConfig(dir)
	if err != nil {
		t.Fatalf("LoadUserConfig: %v", err)
	}
	if cfg.BaseURL != "https://api.deepseek.com" {
		t.Errorf("BaseURL = %q", cfg.BaseURL)
	}
	if cfg.Chat.Model != "chat" || cfg.Chat.Temperature != 0.7 {
		t.Errorf("chat defaults = %+v", cfg.Chat)
	}

	info, err := os.Stat(filepath.Join(dir, "config.toml"))
	if err != nil {
		t.Fatalf("template not written: %v", err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("config perms = %o, want 0600", info.Mode().Perm())
	}
}

func TestLoadUserConfigReadsExistingFile(t *testing.T) {
	dir := t.TempDir()
	content := `base_url = "http://localhost:8080"

[chat]
temperature = 1.2
model = "reasoner"
`
	if err := os.WriteFile(filepath.Join(dir, "config.toml"), []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadUserConfig(dir)
	if err != nil {
		t.Fatalf("LoadUserConfig: %v", err)
	}
	if cfg.BaseURL != "http://localhost:8080" {
		t.Errorf("BaseURL = %q", cfg.BaseURL)
	}
	if cfg.Chat.Temperature != 1.2 || cfg.Chat.Model != "reasoner" {
		t.Errorf("chat = %+v", cfg.Chat)
	}
}

func TestLoadSystemConfigFirstRun(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	cfg, err := LoadSystemConfig()
	if err != nil {
		t.Fatalf("LoadSystemConfig: %v", err)
	}
	if cfg.DataDirectory != "~/.local/share/deepchat" {
		t.Errorf("DataDirectory = %q", cfg.DataDirectory)
	}
	if !FileExists(GetSettingsFilePath()) {
		t.Error("settings template not written")
	}
}

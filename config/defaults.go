package config

func DefaultSystemConfig() *SystemConfig {
	return &SystemConfig{
		DataDirectory: "~/.local/share/deepchat",
	}
}

func DefaultUserConfig() *UserConfig {
	return &UserConfig{
		BaseURL: "https://api.deepseek.com",
		Chat: ChatDefaults{
			Temperature: 0.7,
			TopP:        0.9,
			TopK:        50,
			MaxLength:   2000,
			Model:       "chat",
		},
	}
}

func GenerateSystemConfigTemplate() string {
	return `# deepchat System Configuration
# Location: ~/.config/deepchat/settings.toml
# This file uses TOML format: https://toml.io

# Directory where conversation windows and user config are stored
data_directory = "~/.local/share/deepchat"
`
}

func GenerateUserConfigTemplate() string {
	return `# deepchat User Configuration
# Location: <data_directory>/config.toml
# This file uses TOML format: https://toml.io

# DeepSeek API base URL
base_url = "https://api.deepseek.com"

[chat]
# Defaults cloned into every new conversation window.
# model is one of: chat, coder, reasoner
temperature = 0.7
top_p = 0.9
top_k = 50
max_length = 2000
model = "chat"

# Default system prompt for new windows (optional)
# system_prompt = "You are a helpful assistant."
`
}

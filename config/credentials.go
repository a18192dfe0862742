package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	credentialsFile          = "credentials"
	credentialsEncryptedFile = "credentials.enc"
)

// LoadAPIKey resolves the DeepSeek API key. Resolution order:
//  1. DEEPSEEK_API_KEY / DEEPCHAT_API_KEY environment variables
//  2. <data>/credentials.enc, decrypted with the passphrase
//  3. <data>/credentials (plain, 0600)
//
// A missing key is not an error here; the exchange driver rejects empty
// credentials before any network call.
func LoadAPIKey(dataDir, passphrase string) (string, error) {
	if key := os.Getenv("DEEPSEEK_API_KEY"); key != "" {
		return key, nil
	}
	if key := os.Getenv("DEEPCHAT_API_KEY"); key != "" {
		return key, nil
	}

	encPath := filepath.Join(dataDir, credentialsEncryptedFile)
	if FileExists(encPath) {
		data, err := os.ReadFile(encPath)
		if err != nil {
			return "", fmt.Errorf("failed to read encrypted credentials: %w", err)
		}
		if passphrase == "" {
			passphrase = os.Getenv("DEEPCHAT_PASSPHRASE")
		}
		if passphrase == "" {
			return "", fmt.Errorf("credentials are encrypted - passphrase required")
		}
		plain, err := DecryptWithPassphrase(data, passphrase)
		if err != nil {
			return "", fmt.Errorf("failed to decrypt credentials: %w", err)
		}
		return strings.TrimSpace(string(plain)), nil
	}

	plainPath := filepath.Join(dataDir, credentialsFile)
	if FileExists(plainPath) {
		data, err := os.ReadFile(plainPath)
		if err != nil {
			return "", fmt.Errorf("failed to read credentials: %w", err)
		}
		return strings.TrimSpace(string(data)), nil
	}

	return "", nil
}

// SaveAPIKey stores the API key under the data directory. With a non-empty
// passphrase the key is encrypted at rest and any plain credentials file is
// removed.
func SaveAPIKey(dataDir, key, passphrase string) error {
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	if passphrase != "" {
		enc, err := EncryptWithPassphrase([]byte(key), passphrase)
		if err != nil {
			return fmt.Errorf("failed to encrypt credentials: %w", err)
		}
		encPath := filepath.Join(dataDir, credentialsEncryptedFile)
		if err := os.WriteFile(encPath, enc, 0600); err != nil {
			return fmt.Errorf("failed to write encrypted credentials: %w", err)
		}
		// Don't leave a stale plaintext copy behind.
		_ = os.Remove(filepath.Join(dataDir, credentialsFile))
		return nil
	}

	plainPath := filepath.Join(dataDir, credentialsFile)
	if err := os.WriteFile(plainPath, []byte(key), 0600); err != nil {
		return fmt.Errorf("failed to write credentials: %w", err)
	}
	return nil
}

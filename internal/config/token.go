package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

const tokenFileName = "api_token"

func tokenFilePath(dataDir string) string {
	return filepath.Join(dataDir, tokenFileName)
}

// EnsureAPIToken returns the bearer token for the management API, generating
// and persisting a fresh one on first start. The token lives in a 0600 file
// under the data dir so client commands on the same machine can read it.
func EnsureAPIToken(dataDir string) (string, error) {
	p := tokenFilePath(dataDir)

	if data, err := os.ReadFile(p); err == nil {
		token := strings.TrimSpace(string(data))
		if token != "" {
			return token, nil
		}
	} else if !os.IsNotExist(err) {
		return "", fmt.Errorf("reading API token file: %w", err)
	}

	token := uuid.New().String()
	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		return "", fmt.Errorf("creating data dir: %w", err)
	}
	if err := os.WriteFile(p, []byte(token+"\n"), 0o600); err != nil {
		return "", fmt.Errorf("writing API token file: %w", err)
	}
	return token, nil
}

// GetAPIToken reads the persisted bearer token without creating one.
// Client commands use this; the server must have run at least once.
func GetAPIToken(dataDir string) (string, error) {
	data, err := os.ReadFile(tokenFilePath(dataDir))
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("no API token found. Start the server once with `stocktrack start` to generate one")
		}
		return "", fmt.Errorf("reading API token file: %w", err)
	}
	token := strings.TrimSpace(string(data))
	if token == "" {
		return "", fmt.Errorf("API token file is empty. Delete %s and restart the server", tokenFilePath(dataDir))
	}
	return token, nil
}

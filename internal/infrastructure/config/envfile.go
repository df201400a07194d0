package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/eshaffer321/buybox-analyzer/internal/adapters/spapi"
)

// DefaultEnvFile is where credentials are saved by default
const DefaultEnvFile = ".env"

// SaveCredentials writes the SP-API secrets and marketplace into an env file,
// keeping any other keys already present. Empty values are not written.
func SaveCredentials(path string, creds spapi.Credentials, marketplaceID string) error {
	values, err := ReadEnvFile(path)
	if err != nil {
		return err
	}

	updates := map[string]string{
		EnvRefreshToken:  creds.RefreshToken,
		EnvClientID:      creds.ClientID,
		EnvClientSecret:  creds.ClientSecret,
		EnvMarketplaceID: marketplaceID,
	}
	for key, val := range updates {
		if val != "" {
			values[key] = val
		}
	}

	if err := godotenv.Write(values, path); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}

	// godotenv.Write keeps the file world readable
	if err := os.Chmod(path, 0o600); err != nil {
		return fmt.Errorf("failed to restrict %s: %w", path, err)
	}
	return nil
}

// ReadEnvFile returns the key/value pairs of an env file.
// A missing file yields an empty map.
func ReadEnvFile(path string) (map[string]string, error) {
	values, err := godotenv.Read(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return values, nil
}

// CredentialsFromEnvFile loads SP-API credentials from an env file
func CredentialsFromEnvFile(path string) (spapi.Credentials, string, error) {
	values, err := ReadEnvFile(path)
	if err != nil {
		return spapi.Credentials{}, "", err
	}

	marketplaceID := values[EnvMarketplaceID]
	if marketplaceID == "" {
		marketplaceID = spapi.DefaultMarketplaceID
	}

	return spapi.Credentials{
		RefreshToken: values[EnvRefreshToken],
		ClientID:     values[EnvClientID],
		ClientSecret: values[EnvClientSecret],
	}, marketplaceID, nil
}

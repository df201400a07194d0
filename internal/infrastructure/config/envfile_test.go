package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eshaffer321/buybox-analyzer/internal/adapters/spapi"
)

func TestSaveCredentials_NewFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	creds := spapi.Credentials{RefreshToken: "Atzr|r", ClientID: "cid", ClientSecret: "csecret"}

	require.NoError(t, SaveCredentials(path, creds, "ATVPDKIKX0DER"))

	got, marketplace, err := CredentialsFromEnvFile(path)
	require.NoError(t, err)
	assert.Equal(t, creds, got)
	assert.Equal(t, "ATVPDKIKX0DER", marketplace)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestSaveCredentials_KeepsOtherKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("OUTPUT_PATH=/data\nSP_API_CLIENT_ID=old\n"), 0o600))

	require.NoError(t, SaveCredentials(path, spapi.Credentials{ClientID: "new"}, ""))

	values, err := ReadEnvFile(path)
	require.NoError(t, err)
	assert.Equal(t, "/data", values["OUTPUT_PATH"])
	assert.Equal(t, "new", values[EnvClientID])
	_, hasSecret := values[EnvClientSecret]
	assert.False(t, hasSecret, "empty values are not written")
}

func TestReadEnvFile_Missing(t *testing.T) {
	values, err := ReadEnvFile(filepath.Join(t.TempDir(), "nope.env"))
	require.NoError(t, err)
	assert.Empty(t, values)
}

func TestCredentialsFromEnvFile_DefaultMarketplace(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("SP_API_REFRESH_TOKEN=r\n"), 0o600))

	creds, marketplace, err := CredentialsFromEnvFile(path)
	require.NoError(t, err)
	assert.False(t, creds.Complete())
	assert.Equal(t, spapi.DefaultMarketplaceID, marketplace)
}

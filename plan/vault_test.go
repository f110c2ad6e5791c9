package plan

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testStore(t *testing.T) *SecretsStore {
	t.Helper()
	path := filepath.Join(t.TempDir(), "secrets.vault.yml")
	return NewSecretsStore(path, func() (string, error) { return "test-pass", nil })
}

func TestSecretsRoundtrip(t *testing.T) {
	store := testStore(t)
	require.NoError(t, store.Setup())

	require.NoError(t, store.Write(&Secrets{Host: "10.0.2.10", APIKey: "1-abc"}))

	sec, err := store.Read()
	require.NoError(t, err)
	assert.Equal(t, "10.0.2.10", sec.Host)
	assert.Equal(t, "1-abc", sec.APIKey)
}

func TestSecretsFileIsEncrypted(t *testing.T) {
	store := testStore(t)
	require.NoError(t, store.Setup())
	require.NoError(t, store.Write(&Secrets{APIKey: "1-verysecret"}))

	raw, err := os.ReadFile(store.Path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(raw), "$ANSIBLE_VAULT;1.1;AES256"))
	assert.NotContains(t, string(raw), "verysecret")

	info, err := os.Stat(store.Path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestSetAPIKeyKeepsHost(t *testing.T) {
	store := testStore(t)
	require.NoError(t, store.Setup())
	require.NoError(t, store.Write(&Secrets{Host: "nas.lan"}))

	require.NoError(t, store.SetAPIKey("  1-trimmed \n"))

	sec, err := store.Read()
	require.NoError(t, err)
	assert.Equal(t, "nas.lan", sec.Host)
	assert.Equal(t, "1-trimmed", sec.APIKey)
}

func TestReadWithWrongPassphrase(t *testing.T) {
	store := testStore(t)
	require.NoError(t, store.Setup())

	bad := NewSecretsStore(store.Path, func() (string, error) { return "wrong", nil })
	_, err := bad.Read()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "vault decrypt")
}

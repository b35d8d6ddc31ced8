package tokenfile

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func testFile() *File {
	return &File{
		Token: &oauth2.Token{
			AccessToken:  "at-1",
			RefreshToken: "rt-1",
			TokenType:    "Bearer",
			Expiry:       time.Now().Add(time.Hour).UTC(),
		},
		Account: "ada@contoso.com",
		SiteURL: "https://contoso.sharepoint.com/sites/Team",
	}
}

func TestSaveLoadRoundtrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "token.json")

	require.NoError(t, Save(path, testFile()))

	got, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "at-1", got.Token.AccessToken)
	assert.Equal(t, "rt-1", got.Token.RefreshToken)
	assert.Equal(t, "ada@contoso.com", got.Account)
	assert.Equal(t, "https://contoso.sharepoint.com/sites/Team", got.SiteURL)
}

func TestSavePermissions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token.json")

	require.NoError(t, Save(path, testFile()))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestSaveOverwritesAtomically(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "token.json")

	require.NoError(t, Save(path, testFile()))

	updated := testFile()
	updated.Token.AccessToken = "at-2"
	require.NoError(t, Save(path, updated))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "at-2", got.Token.AccessToken)

	// No temp files left behind.
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestLoadMissing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLoadCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token.json")
	require.NoError(t, os.WriteFile(path, []byte("not json"), 0o600))

	_, err := Load(path)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestLoadEmptyToken(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"account": "x"}`), 0o600))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no token")
}

func TestDelete(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token.json")

	require.NoError(t, Save(path, testFile()))
	require.NoError(t, Delete(path))

	_, err := Load(path)
	assert.ErrorIs(t, err, ErrNotFound)

	// Deleting a missing file is not an error.
	assert.NoError(t, Delete(path))
}

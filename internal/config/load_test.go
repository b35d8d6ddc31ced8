package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
site_url = "https://contoso.sharepoint.com/sites/Team"
folder = "Shared Documents/Reports"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "https://contoso.sharepoint.com/sites/Team", cfg.SiteURL)
	assert.Equal(t, "Shared Documents/Reports", cfg.Folder)
	assert.Equal(t, defaultLogLevel, cfg.Logging.LogLevel)
	assert.Equal(t, defaultTenant, cfg.Auth.Tenant)
	assert.Equal(t, defaultParallelDownloads, cfg.Transfers.ParallelDownloads)
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
site_url = "https://contoso.sharepoint.com/sites/Team"

[logging]
log_level = "debug"

[transfers]
parallel_downloads = 2
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Logging.LogLevel)
	assert.Equal(t, 2, cfg.Transfers.ParallelDownloads)
}

func TestLoadUnknownKeySuggestion(t *testing.T) {
	path := writeConfig(t, `site_ulr = "https://contoso.sharepoint.com/sites/Team"`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown config key "site_ulr"`)
	assert.Contains(t, err.Error(), `did you mean "site_url"`)
}

func TestLoadUnknownNestedKeySuggestion(t *testing.T) {
	path := writeConfig(t, `
[logging]
log_lvel = "debug"
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "logging.log_level")
}

func TestLoadOrDefaultMissingFile(t *testing.T) {
	cfg, err := LoadOrDefault(filepath.Join(t.TempDir(), "nope.toml"))
	require.NoError(t, err)
	assert.Equal(t, defaultLogLevel, cfg.Logging.LogLevel)
}

func TestResolveOverrideChain(t *testing.T) {
	path := writeConfig(t, `
site_url = "https://contoso.sharepoint.com/sites/FromFile"
folder = "FromFile"
`)

	env := EnvOverrides{
		ConfigPath: path,
		Folder:     "FromEnv",
	}

	cli := CLIOverrides{
		SiteURL: "https://contoso.sharepoint.com/sites/FromCLI",
	}

	cfg, err := Resolve(env, cli)
	require.NoError(t, err)

	// CLI wins over file, env wins over file where CLI is silent.
	assert.Equal(t, "https://contoso.sharepoint.com/sites/FromCLI", cfg.SiteURL)
	assert.Equal(t, "FromEnv", cfg.Folder)
}

func TestSaveRoundtrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.toml")

	cfg := DefaultConfig()
	cfg.SiteURL = "https://contoso.sharepoint.com/sites/Team"

	require.NoError(t, Save(path, cfg))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg.SiteURL, got.SiteURL)
}

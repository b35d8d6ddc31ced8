// Package config implements TOML configuration loading, validation, and
// platform-specific path resolution for spexcel. It supports a four-layer
// override chain (defaults -> config file -> environment -> CLI flags).
package config

// Config is the top-level configuration structure parsed from a TOML file.
type Config struct {
	// SiteURL is the full SharePoint site URL, e.g.
	// "https://contoso.sharepoint.com/sites/TeamName".
	SiteURL string `toml:"site_url"`

	// Folder is the path within the site's document library that holds the
	// workbooks, relative to the drive root. Empty means the root itself.
	Folder string `toml:"folder"`

	// DownloadDir is where downloaded files are written when no explicit
	// destination is given.
	DownloadDir string `toml:"download_dir"`

	// AutoConnect makes commands resolve the site and drive eagerly at
	// startup instead of on first use.
	AutoConnect bool `toml:"auto_connect"`

	Auth      AuthConfig      `toml:"auth"`
	Logging   LoggingConfig   `toml:"logging"`
	Network   NetworkConfig   `toml:"network"`
	Transfers TransfersConfig `toml:"transfers"`
}

// AuthConfig controls how sign-in is performed.
type AuthConfig struct {
	// ClientID overrides the built-in public client application ID.
	ClientID string `toml:"client_id"`

	// Tenant is the Azure AD tenant to authenticate against. Defaults to
	// "organizations", which accepts any work or school account.
	Tenant string `toml:"tenant"`
}

// LoggingConfig controls log output behavior.
type LoggingConfig struct {
	LogLevel  string `toml:"log_level"`
	LogFormat string `toml:"log_format"`
}

// NetworkConfig controls HTTP client behavior.
type NetworkConfig struct {
	ConnectTimeout string `toml:"connect_timeout"`
	DataTimeout    string `toml:"data_timeout"`
	UserAgent      string `toml:"user_agent"`
}

// TransfersConfig controls parallel transfer workers.
type TransfersConfig struct {
	ParallelDownloads int `toml:"parallel_downloads"`
}

// CLIOverrides holds values from CLI flags that override config file and
// environment settings. Empty string means "not specified".
type CLIOverrides struct {
	ConfigPath  string // --config flag
	SiteURL     string // --site flag
	Folder      string // --folder flag
	DownloadDir string // --download-dir flag
}

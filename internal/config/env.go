package config

import "os"

// Environment variable names for overrides.
const (
	EnvConfig      = "SPEXCEL_CONFIG"
	EnvSiteURL     = "SPEXCEL_SITE_URL"
	EnvFolder      = "SPEXCEL_FOLDER"
	EnvDownloadDir = "SPEXCEL_DOWNLOAD_DIR"
)

// EnvOverrides holds values derived from environment variables.
type EnvOverrides struct {
	ConfigPath  string // SPEXCEL_CONFIG: override config file path
	SiteURL     string // SPEXCEL_SITE_URL: site URL override
	Folder      string // SPEXCEL_FOLDER: library folder override
	DownloadDir string // SPEXCEL_DOWNLOAD_DIR: download destination override
}

// ReadEnvOverrides reads environment variables and returns any overrides
// found. This does not modify the Config; callers apply the relevant fields.
func ReadEnvOverrides() EnvOverrides {
	return EnvOverrides{
		ConfigPath:  os.Getenv(EnvConfig),
		SiteURL:     os.Getenv(EnvSiteURL),
		Folder:      os.Getenv(EnvFolder),
		DownloadDir: os.Getenv(EnvDownloadDir),
	}
}

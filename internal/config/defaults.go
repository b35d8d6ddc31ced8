package config

// Default values for configuration options. These are "layer 0" of the
// override chain and work for most users without any config file.
const (
	defaultTenant            = "organizations"
	defaultLogLevel          = "info"
	defaultLogFormat         = "auto"
	defaultConnectTimeout    = "10s"
	defaultDataTimeout       = "60s"
	defaultParallelDownloads = 4
)

// DefaultConfig returns a Config populated with all default values.
// It is the starting point for TOML decoding (so unset fields retain
// defaults) and the fallback when no config file exists.
func DefaultConfig() *Config {
	return &Config{
		DownloadDir: defaultDownloadDir(),
		Auth: AuthConfig{
			Tenant: defaultTenant,
		},
		Logging: LoggingConfig{
			LogLevel:  defaultLogLevel,
			LogFormat: defaultLogFormat,
		},
		Network: NetworkConfig{
			ConnectTimeout: defaultConnectTimeout,
			DataTimeout:    defaultDataTimeout,
		},
		Transfers: TransfersConfig{
			ParallelDownloads: defaultParallelDownloads,
		},
	}
}

package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Valid log levels and formats.
var (
	validLogLevels  = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	validLogFormats = map[string]bool{"auto": true, "text": true, "json": true}
)

// Validate checks a Config for invalid values. An empty site_url is
// allowed here — commands that need a site enforce its presence themselves
// so that auth-only commands work without one.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.SiteURL != "" {
		if err := validateSiteURL(cfg.SiteURL); err != nil {
			errs = append(errs, err)
		}
	}

	if !validLogLevels[cfg.Logging.LogLevel] {
		errs = append(errs, fmt.Errorf("invalid log_level %q (valid: debug, info, warn, error)", cfg.Logging.LogLevel))
	}

	if !validLogFormats[cfg.Logging.LogFormat] {
		errs = append(errs, fmt.Errorf("invalid log_format %q (valid: auto, text, json)", cfg.Logging.LogFormat))
	}

	if err := validateDuration("connect_timeout", cfg.Network.ConnectTimeout); err != nil {
		errs = append(errs, err)
	}

	if err := validateDuration("data_timeout", cfg.Network.DataTimeout); err != nil {
		errs = append(errs, err)
	}

	if cfg.Transfers.ParallelDownloads < 1 {
		errs = append(errs, fmt.Errorf("parallel_downloads must be at least 1, got %d", cfg.Transfers.ParallelDownloads))
	}

	return errors.Join(errs...)
}

// validateSiteURL checks that a site URL is an absolute https URL with a
// site path, the form the Graph sites lookup requires.
func validateSiteURL(siteURL string) error {
	u, err := url.Parse(siteURL)
	if err != nil {
		return fmt.Errorf("invalid site_url %q: %w", siteURL, err)
	}

	if u.Scheme != "https" {
		return fmt.Errorf("site_url %q must use https", siteURL)
	}

	if u.Host == "" {
		return fmt.Errorf("site_url %q has no hostname", siteURL)
	}

	if strings.TrimRight(u.Path, "/") == "" {
		return fmt.Errorf("site_url %q has no site path (expected e.g. /sites/TeamName)", siteURL)
	}

	return nil
}

func validateDuration(name, value string) error {
	if value == "" {
		return nil
	}

	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("invalid %s %q: %w", name, value, err)
	}

	if d < 0 {
		return fmt.Errorf("%s must not be negative, got %s", name, value)
	}

	return nil
}

// Timeout parses a duration field, falling back to def when empty.
func Timeout(value string, def time.Duration) time.Duration {
	if value == "" {
		return def
	}

	d, err := time.ParseDuration(value)
	if err != nil {
		return def
	}

	return d
}

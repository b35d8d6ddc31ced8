package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
)

// siteResponse mirrors the Graph API site JSON.
// Unexported — callers use Site via toSite() normalization.
type siteResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	DisplayName string `json:"displayName"`
	WebURL      string `json:"webUrl"`
}

func (s *siteResponse) toSite() Site {
	return Site{
		ID:          s.ID,
		Name:        s.Name,
		DisplayName: s.DisplayName,
		WebURL:      s.WebURL,
	}
}

// driveResponse mirrors the Graph API drive JSON.
type driveResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	DriveType string `json:"driveType"`
	WebURL    string `json:"webUrl"`
}

func (d *driveResponse) toDrive() Drive {
	return Drive{
		ID:        d.ID,
		Name:      d.Name,
		DriveType: d.DriveType,
		WebURL:    d.WebURL,
	}
}

// userResponse mirrors the Graph API /me JSON response.
type userResponse struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
	Mail        string `json:"mail"`
	// UPN is a fallback when mail is empty (common on accounts where the
	// mail field is blank).
	UPN string `json:"userPrincipalName"`
}

func (u *userResponse) toUser() User {
	email := u.Mail
	if email == "" {
		email = u.UPN
	}

	return User{
		ID:          u.ID,
		DisplayName: u.DisplayName,
		Email:       email,
	}
}

// SplitSiteURL breaks a human-entered SharePoint site URL into the hostname
// and server-relative path Graph's sites lookup expects.
// "https://contoso.sharepoint.com/sites/TeamName" yields
// ("contoso.sharepoint.com", "/sites/TeamName").
func SplitSiteURL(siteURL string) (host, sitePath string, err error) {
	u, err := url.Parse(strings.TrimSpace(siteURL))
	if err != nil {
		return "", "", fmt.Errorf("graph: parsing site URL %q: %w", siteURL, err)
	}

	if u.Host == "" {
		return "", "", fmt.Errorf("graph: site URL %q has no hostname", siteURL)
	}

	sitePath = strings.TrimRight(u.Path, "/")
	if sitePath == "" {
		return "", "", fmt.Errorf("graph: site URL %q has no site path", siteURL)
	}

	return u.Host, sitePath, nil
}

// ResolveSite translates a site URL into the site Graph identifier via
// GET /sites/{hostname}:{path}. A single failed call is a single failed
// resolution — the only retries are the client's transport-level ones.
func (c *Client) ResolveSite(ctx context.Context, siteURL string) (*Site, error) {
	host, sitePath, err := SplitSiteURL(siteURL)
	if err != nil {
		return nil, err
	}

	c.logger.Info("resolving site",
		slog.String("host", host),
		slog.String("path", sitePath),
	)

	apiPath := fmt.Sprintf("/sites/%s:%s", host, encodePathSegments(sitePath))

	resp, err := c.Do(ctx, http.MethodGet, apiPath, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var sr siteResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return nil, fmt.Errorf("graph: decoding site response: %w", err)
	}

	if sr.ID == "" {
		return nil, fmt.Errorf("graph: site response for %q has no id", siteURL)
	}

	site := sr.toSite()

	c.logger.Debug("resolved site",
		slog.String("site_id", site.ID),
		slog.String("display_name", site.DisplayName),
	)

	return &site, nil
}

// SiteDrive returns the site's default document library drive.
func (c *Client) SiteDrive(ctx context.Context, siteID string) (*Drive, error) {
	c.logger.Info("fetching site drive",
		slog.String("site_id", siteID),
	)

	resp, err := c.Do(ctx, http.MethodGet, fmt.Sprintf("/sites/%s/drive", siteID), nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var dr driveResponse
	if err := json.NewDecoder(resp.Body).Decode(&dr); err != nil {
		return nil, fmt.Errorf("graph: decoding drive response: %w", err)
	}

	drive := dr.toDrive()

	c.logger.Debug("fetched site drive",
		slog.String("drive_id", drive.ID),
		slog.String("drive_type", drive.DriveType),
	)

	return &drive, nil
}

// Me returns the authenticated user's profile.
func (c *Client) Me(ctx context.Context) (*User, error) {
	c.logger.Info("fetching authenticated user profile")

	resp, err := c.Do(ctx, http.MethodGet, "/me", nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var ur userResponse
	if err := json.NewDecoder(resp.Body).Decode(&ur); err != nil {
		return nil, fmt.Errorf("graph: decoding user response: %w", err)
	}

	user := ur.toUser()

	c.logger.Debug("fetched user profile",
		slog.String("id", user.ID),
		slog.String("display_name", user.DisplayName),
	)

	return &user, nil
}

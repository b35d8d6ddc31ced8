package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"
)

// listPageSize is the $top value for children listing requests.
// 200 is the maximum allowed by the Graph API for drive item collections.
const listPageSize = 200

// Timestamp validation bounds — timestamps outside this range are replaced
// with the current time and a warning is logged.
const (
	minValidYear = 1970
	maxValidYear = 2100
)

// encodePathSegments URL-encodes each segment of a slash-separated path.
// Characters like #, ?, %, and spaces are encoded per-segment so the
// resulting path is safe for interpolation into Graph API URLs.
func encodePathSegments(path string) string {
	segments := strings.Split(path, "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}

	return strings.Join(segments, "/")
}

// driveItemResponse mirrors the Graph API driveItem JSON exactly.
// Unexported — callers use Item via toItem() normalization.
type driveItemResponse struct {
	ID                   string           `json:"id"`
	Name                 string           `json:"name"`
	WebURL               string           `json:"webUrl"`
	Size                 int64            `json:"size"`
	ETag                 string           `json:"eTag"`
	CreatedDateTime      string           `json:"createdDateTime"`
	LastModifiedDateTime string           `json:"lastModifiedDateTime"`
	File                 *fileFacet       `json:"file"`
	Folder               *json.RawMessage `json:"folder"`
	DownloadURL          string           `json:"@microsoft.graph.downloadUrl"` //nolint:tagliatelle // Graph API annotation key
}

type fileFacet struct {
	MimeType string `json:"mimeType"`
}

type listChildrenResponse struct {
	Value    []driveItemResponse `json:"value"`
	NextLink string              `json:"@odata.nextLink"` //nolint:tagliatelle // OData annotation key
}

// toItem normalizes a Graph API driveItem response into our Item type.
// Names are URL-decoded (the API sometimes returns %20-escaped names) and
// NFC-normalized so callers compare and display consistent strings.
func (d *driveItemResponse) toItem(logger *slog.Logger) Item {
	item := Item{
		ID:          d.ID,
		Name:        normalizeName(d.Name, d.ID, logger),
		WebURL:      d.WebURL,
		Size:        d.Size,
		ETag:        d.ETag,
		IsFolder:    d.Folder != nil,
		DownloadURL: d.DownloadURL,
	}

	if d.File != nil {
		item.MimeType = d.File.MimeType
	}

	item.CreatedAt = parseTimestamp(d.CreatedDateTime, "createdDateTime", d.ID, logger)
	item.ModifiedAt = parseTimestamp(d.LastModifiedDateTime, "lastModifiedDateTime", d.ID, logger)

	return item
}

// normalizeName URL-unescapes and NFC-normalizes a server-provided item name.
// Malformed percent-encoding keeps the original name.
func normalizeName(name, itemID string, logger *slog.Logger) string {
	unescaped, err := url.PathUnescape(name)
	if err != nil {
		logger.Debug("failed to URL-decode item name, keeping original",
			slog.String("item_id", itemID),
			slog.String("name", name),
			slog.String("error", err.Error()),
		)

		unescaped = name
	}

	return norm.NFC.String(unescaped)
}

// parseTimestamp parses an RFC3339 timestamp and validates the year range.
// Invalid or out-of-range timestamps are replaced with time.Now().UTC() and logged.
func parseTimestamp(raw, field, itemID string, logger *slog.Logger) time.Time {
	if raw == "" {
		logger.Warn("empty timestamp, using current time",
			slog.String("field", field),
			slog.String("item_id", itemID),
		)

		return time.Now().UTC()
	}

	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		logger.Warn("invalid timestamp, using current time",
			slog.String("field", field),
			slog.String("item_id", itemID),
			slog.String("raw", raw),
			slog.String("error", err.Error()),
		)

		return time.Now().UTC()
	}

	if t.Year() < minValidYear || t.Year() > maxValidYear {
		logger.Warn("timestamp out of valid range, using current time",
			slog.String("field", field),
			slog.String("item_id", itemID),
			slog.String("raw", raw),
		)

		return time.Now().UTC()
	}

	return t
}

// ListFolder returns all children of a folder within a site's default drive,
// handling pagination automatically. An empty folderPath lists the drive
// root. Server-provided ordering is preserved.
func (c *Client) ListFolder(ctx context.Context, siteID, folderPath string) ([]Item, error) {
	folderPath = strings.Trim(folderPath, "/")

	apiPath := fmt.Sprintf("/sites/%s/drive/root/children?$top=%d", siteID, listPageSize)
	if folderPath != "" {
		apiPath = fmt.Sprintf("/sites/%s/drive/root:/%s:/children?$top=%d",
			siteID, encodePathSegments(folderPath), listPageSize)
	}

	c.logger.Info("listing folder",
		slog.String("site_id", siteID),
		slog.String("folder", folderPath),
	)

	var items []Item

	page := 1

	for apiPath != "" {
		pageItems, nextPath, err := c.listChildrenPage(ctx, apiPath, page)
		if err != nil {
			return nil, err
		}

		items = append(items, pageItems...)
		apiPath = nextPath
		page++
	}

	c.logger.Info("listed folder",
		slog.String("site_id", siteID),
		slog.String("folder", folderPath),
		slog.Int("total_items", len(items)),
	)

	return items, nil
}

// GetItemByPath retrieves a drive item by its path relative to the drive
// root of a site's default drive. The path must NOT have a leading slash.
func (c *Client) GetItemByPath(ctx context.Context, siteID, remotePath string) (*Item, error) {
	c.logger.Info("getting item by path",
		slog.String("site_id", siteID),
		slog.String("path", remotePath),
	)

	apiPath := fmt.Sprintf("/sites/%s/drive/root:/%s:", siteID, encodePathSegments(remotePath))

	resp, err := c.Do(ctx, http.MethodGet, apiPath, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var dir driveItemResponse
	if err := json.NewDecoder(resp.Body).Decode(&dir); err != nil {
		return nil, fmt.Errorf("graph: decoding item response: %w", err)
	}

	item := dir.toItem(c.logger)

	return &item, nil
}

// listChildrenPage fetches a single page of children and returns the items
// and the next page path (empty if no more pages).
func (c *Client) listChildrenPage(ctx context.Context, path string, page int) ([]Item, string, error) {
	resp, err := c.Do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	var lcr listChildrenResponse
	if err := json.NewDecoder(resp.Body).Decode(&lcr); err != nil {
		return nil, "", fmt.Errorf("graph: decoding children response: %w", err)
	}

	items := make([]Item, 0, len(lcr.Value))
	for i := range lcr.Value {
		items = append(items, lcr.Value[i].toItem(c.logger))
	}

	c.logger.Debug("fetched children page",
		slog.Int("page", page),
		slog.Int("count", len(items)),
	)

	var nextPath string
	if lcr.NextLink != "" {
		var stripErr error

		nextPath, stripErr = c.stripBaseURL(lcr.NextLink)
		if stripErr != nil {
			return nil, "", stripErr
		}
	}

	return items, nextPath, nil
}

// stripBaseURL removes the client's base URL prefix from a full URL,
// returning the path + query string for use with Do().
// Returns an error if the URL doesn't start with the expected base.
func (c *Client) stripBaseURL(fullURL string) (string, error) {
	if !strings.HasPrefix(fullURL, c.baseURL) {
		return "", fmt.Errorf("graph: nextLink URL %q does not match base URL %q", fullURL, c.baseURL)
	}

	return fullURL[len(c.baseURL):], nil
}

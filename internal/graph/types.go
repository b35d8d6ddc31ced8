package graph

import "time"

// Item represents a drive item (file or folder) in a SharePoint document
// library. Fields are normalized from the Graph API response — callers never
// see raw API data.
type Item struct {
	ID          string
	Name        string
	WebURL      string
	Size        int64
	ETag        string
	IsFolder    bool
	MimeType    string
	ModifiedAt  time.Time
	CreatedAt   time.Time
	DownloadURL string // pre-authenticated, ephemeral; NEVER log
}

// Site identifies a SharePoint site resolved from a human-entered URL.
// The ID is the opaque composite identifier Graph uses to address the site.
type Site struct {
	ID          string
	Name        string
	DisplayName string
	WebURL      string
}

// Drive is a document library drive belonging to a site.
type Drive struct {
	ID        string
	Name      string
	DriveType string
	WebURL    string
}

// User is the authenticated user's profile from /me.
type User struct {
	ID          string
	DisplayName string
	Email       string
}

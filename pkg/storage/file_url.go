package storage

import (
	"fmt"
	"net/url"
	"strings"
)

// FileURLBuilder constructs public display URLs for stored files. URL
// construction is pure string work: no network call, no hidden state, so
// identical inputs always yield identical URLs. Display URLs are never
// persisted; callers recompute them on every read.
type FileURLBuilder struct {
	endpoint string
	project  string
}

// NewFileURLBuilder builds URLs rooted at the public storage endpoint.
func NewFileURLBuilder(endpoint, project string) *FileURLBuilder {
	return &FileURLBuilder{
		endpoint: strings.TrimRight(strings.TrimSpace(endpoint), "/"),
		project:  strings.TrimSpace(project),
	}
}

// FileURL returns the display URL for a file, or "" when fileID is empty so
// callers can render a placeholder instead. Width/height of 0 request the
// original file; positive dimensions request a resized preview.
func (b *FileURLBuilder) FileURL(fileID, bucket string, width, height int) string {
	fileID = strings.TrimSpace(fileID)
	if fileID == "" {
		return ""
	}
	variant := "view"
	if width > 0 || height > 0 {
		variant = "preview"
	}
	u := fmt.Sprintf("%s/storage/buckets/%s/files/%s/%s",
		b.endpoint, url.PathEscape(bucket), url.PathEscape(fileID), variant)
	query := url.Values{}
	if b.project != "" {
		query.Set("project", b.project)
	}
	if width > 0 {
		query.Set("width", fmt.Sprintf("%d", width))
	}
	if height > 0 {
		query.Set("height", fmt.Sprintf("%d", height))
	}
	if encoded := query.Encode(); encoded != "" {
		u += "?" + encoded
	}
	return u
}

// Package acquisition defines where candidate images come from and how they are
// downloaded.
package acquisition

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
)

var (
	// ErrInvalidSource is returned when a source URL is not a supported Reddit link.
	ErrInvalidSource = errors.New("unsupported source URL")
	// ErrEmptyPhoto is returned when the reference photo has no bytes.
	ErrEmptyPhoto = errors.New("empty photo")
)

// CandidateEntry is one discovered image to evaluate.
type CandidateEntry struct {
	ImageURL  string
	PostURL   string
	Title     string
	CreatedAt *time.Time
}

// Link returns the post URL, or the image URL when the post is unknown.
func (e CandidateEntry) Link() string {
	if e.PostURL != "" {
		return e.PostURL
	}
	return e.ImageURL
}

// DateString formats CreatedAt as YYYY-MM-DD in UTC, or "" when unknown.
func (e CandidateEntry) DateString() string {
	if e.CreatedAt == nil || e.CreatedAt.IsZero() {
		return ""
	}
	return e.CreatedAt.UTC().Format("2006-01-02")
}

// Source enumerates candidate images behind a source URL, in a stable order.
// The result may be empty; an error means the source could not be read at all.
type Source interface {
	FetchCandidateEntries(ctx context.Context, sourceURL string) ([]CandidateEntry, error)
}

// ValidateSourceURL accepts http(s) links on reddit.com (any subdomain) or redd.it.
func ValidateSourceURL(raw string) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fmt.Errorf("%w: missing URL", ErrInvalidSource)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidSource, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: scheme must be http or https", ErrInvalidSource)
	}
	if !IsRedditHost(u.Hostname()) {
		return fmt.Errorf("%w: only reddit.com links are supported", ErrInvalidSource)
	}
	return nil
}

// IsRedditHost reports whether host is reddit.com, redd.it or one of their subdomains.
func IsRedditHost(host string) bool {
	host = strings.ToLower(strings.TrimSuffix(host, "."))
	for _, domain := range []string{"reddit.com", "redd.it"} {
		if host == domain || strings.HasSuffix(host, "."+domain) {
			return true
		}
	}
	return false
}

// ValidatePhoto rejects an empty reference photo.
func ValidatePhoto(data []byte) error {
	if len(data) == 0 {
		return ErrEmptyPhoto
	}
	return nil
}

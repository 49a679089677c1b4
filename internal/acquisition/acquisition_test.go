package acquisition

import (
	"errors"
	"testing"
	"time"
)

func TestValidateSourceURL(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		wantErr bool
	}{
		{"subreddit", "https://www.reddit.com/r/pics/", false},
		{"post", "https://reddit.com/r/pics/comments/abc123/some_title/", false},
		{"old reddit", "https://old.reddit.com/r/pics", false},
		{"short link", "https://redd.it/abc123", false},
		{"http", "http://www.reddit.com/r/pics", false},
		{"uppercase host", "https://WWW.REDDIT.COM/r/pics", false},
		{"empty", "", true},
		{"other site", "https://example.com/r/pics", true},
		{"lookalike", "https://notreddit.com/r/pics", true},
		{"suffix trick", "https://reddit.com.evil.org/r/pics", true},
		{"ftp", "ftp://reddit.com/r/pics", true},
		{"no scheme", "reddit.com/r/pics", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateSourceURL(tt.url)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidSource) {
					t.Errorf("ValidateSourceURL(%q) = %v, want ErrInvalidSource", tt.url, err)
				}
				return
			}
			if err != nil {
				t.Errorf("ValidateSourceURL(%q) unexpected error: %v", tt.url, err)
			}
		})
	}
}

func TestValidatePhoto(t *testing.T) {
	if !errors.Is(ValidatePhoto(nil), ErrEmptyPhoto) {
		t.Error("expected ErrEmptyPhoto for nil photo")
	}
	if err := ValidatePhoto([]byte{1}); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestCandidateEntry_Link(t *testing.T) {
	withPost := CandidateEntry{ImageURL: "https://i.redd.it/a.jpg", PostURL: "https://www.reddit.com/r/x/comments/1/"}
	if withPost.Link() != withPost.PostURL {
		t.Errorf("expected post URL, got %q", withPost.Link())
	}
	withoutPost := CandidateEntry{ImageURL: "https://i.redd.it/a.jpg"}
	if withoutPost.Link() != withoutPost.ImageURL {
		t.Errorf("expected image URL fallback, got %q", withoutPost.Link())
	}
}

func TestCandidateEntry_DateString(t *testing.T) {
	created := time.Unix(1700000000, 0)
	tests := []struct {
		name     string
		entry    CandidateEntry
		expected string
	}{
		{"known", CandidateEntry{CreatedAt: &created}, "2023-11-14"},
		{"unknown", CandidateEntry{}, ""},
		{"zero", CandidateEntry{CreatedAt: &time.Time{}}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.entry.DateString(); got != tt.expected {
				t.Errorf("DateString() = %q, want %q", got, tt.expected)
			}
		})
	}
}

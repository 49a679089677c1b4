package reddit

import (
	"regexp"
	"slices"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/kozaktomas/face-finder/internal/acquisition"
)

var directImagePattern = regexp.MustCompile(`(?i)\.(jpg|jpeg|png|webp)(?:\?.*)?$`)

var directImageHosts = []string{"i.redd.it", "i.imgur.com"}

// unescapeAmp undoes the HTML escaping Reddit applies to media URLs.
func unescapeAmp(u string) string {
	return strings.ReplaceAll(u, "&amp;", "&")
}

// isDirectImage reports whether a post link points straight at an image file.
func isDirectImage(u string) bool {
	if directImagePattern.MatchString(u) {
		return true
	}
	for _, h := range directImageHosts {
		if strings.Contains(u, h) {
			return true
		}
	}
	return false
}

// normalizeTitle applies NFC and drops control characters.
func normalizeTitle(s string) string {
	t := transform.Chain(norm.NFC, runes.Remove(runes.In(unicode.Cc)))
	out, _, err := transform.String(t, s)
	if err != nil {
		return strings.TrimSpace(s)
	}
	return strings.TrimSpace(out)
}

// galleryURLs lists gallery images in gallery order. Items without a gallery
// position follow in key order.
func galleryURLs(p *post) []string {
	if !p.IsGallery || len(p.MediaMetadata) == 0 {
		return nil
	}

	var ids []string
	seen := make(map[string]bool)
	if p.GalleryData != nil {
		for _, item := range p.GalleryData.Items {
			if _, ok := p.MediaMetadata[item.MediaID]; ok && !seen[item.MediaID] {
				ids = append(ids, item.MediaID)
				seen[item.MediaID] = true
			}
		}
	}
	var rest []string
	for id := range p.MediaMetadata {
		if !seen[id] {
			rest = append(rest, id)
		}
	}
	slices.Sort(rest)
	ids = append(ids, rest...)

	urls := make([]string, 0, len(ids))
	for _, id := range ids {
		m := p.MediaMetadata[id]
		var u string
		switch {
		case m.S != nil && m.S.U != "":
			u = m.S.U
		case len(m.P) > 0:
			u = m.P[len(m.P)-1].U
		}
		if u != "" {
			urls = append(urls, unescapeAmp(u))
		}
	}
	return urls
}

// entriesFromPost returns gallery images, then the direct link, then the first
// preview image, de-duplicated by image URL.
func entriesFromPost(p *post, baseURL string) []acquisition.CandidateEntry {
	postURL := ""
	if p.Permalink != "" {
		postURL = strings.TrimSuffix(baseURL, "/") + p.Permalink
	}
	title := normalizeTitle(p.Title)
	var created *time.Time
	if p.CreatedUTC > 0 {
		sec := int64(p.CreatedUTC)
		t := time.Unix(sec, int64((p.CreatedUTC-float64(sec))*1e9)).UTC()
		created = &t
	}

	var urls []string
	urls = append(urls, galleryURLs(p)...)
	if p.URL != "" && isDirectImage(p.URL) {
		urls = append(urls, p.URL)
	}
	if p.Preview != nil && len(p.Preview.Images) > 0 {
		if src := p.Preview.Images[0].Source.URL; src != "" {
			urls = append(urls, unescapeAmp(src))
		}
	}

	entries := make([]acquisition.CandidateEntry, 0, len(urls))
	for _, u := range urls {
		entries = append(entries, acquisition.CandidateEntry{
			ImageURL:  u,
			PostURL:   postURL,
			Title:     title,
			CreatedAt: created,
		})
	}
	return dedupe(entries)
}

// dedupe keeps the first entry for every image URL.
func dedupe(entries []acquisition.CandidateEntry) []acquisition.CandidateEntry {
	seen := make(map[string]bool, len(entries))
	out := make([]acquisition.CandidateEntry, 0, len(entries))
	for _, e := range entries {
		if e.ImageURL == "" || seen[e.ImageURL] {
			continue
		}
		seen[e.ImageURL] = true
		out = append(out, e)
	}
	return out
}

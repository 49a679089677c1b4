package acquisition

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"mime"
	"net/http"
	"net/url"
	"path"
	"slices"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kozaktomas/face-finder/internal/config"
	"github.com/kozaktomas/face-finder/internal/constants"
	"github.com/kozaktomas/face-finder/internal/imaging"
	"github.com/kozaktomas/face-finder/internal/logging"
)

var errTooLarge = errors.New("image exceeds size limit")

// ImageDownloader fetches and decodes one candidate image. It reports false
// instead of failing: any problem just means the candidate is skipped.
type ImageDownloader interface {
	DownloadImage(ctx context.Context, imageURL string) (*image.RGBA, bool)
}

// Downloader is the HTTP ImageDownloader.
type Downloader struct {
	client            *http.Client
	maxBytes          int64
	maxSide           int
	allowedMIME       []string
	allowedExtensions []string
	userAgent         string
	logger            *zap.Logger
}

var _ ImageDownloader = (*Downloader)(nil)

// NewDownloader creates a downloader enforcing cfg's limits. Zero values fall back
// to the built-in defaults.
func NewDownloader(cfg config.DownloadConfig, logger *zap.Logger) *Downloader {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	maxBytes := cfg.MaxBytes
	if maxBytes <= 0 {
		maxBytes = constants.MaxDownloadBytes
	}
	maxSide := cfg.MaxSide
	if maxSide <= 0 {
		maxSide = constants.MaxImageSide
	}
	allowedMIME := cfg.AllowedMIME
	if len(allowedMIME) == 0 {
		allowedMIME = []string{"image/jpeg", "image/png", "image/webp"}
	}
	allowedExt := cfg.AllowedExtensions
	if len(allowedExt) == 0 {
		allowedExt = []string{".jpg", ".jpeg", ".png", ".webp"}
	}

	return &Downloader{
		client:            &http.Client{Timeout: timeout},
		maxBytes:          maxBytes,
		maxSide:           maxSide,
		allowedMIME:       allowedMIME,
		allowedExtensions: allowedExt,
		userAgent:         constants.DefaultUserAgent,
		logger:            logging.OrNop(logger),
	}
}

// DownloadImage downloads, decodes, orients and downscales an image.
func (d *Downloader) DownloadImage(ctx context.Context, imageURL string) (*image.RGBA, bool) {
	data, err := d.fetch(ctx, imageURL)
	if err != nil {
		d.logger.Debug("image download skipped",
			zap.String("url", logging.SanitizeForLog(imageURL)), zap.Error(err))
		return nil, false
	}

	img, err := imaging.Decode(data)
	if err != nil {
		d.logger.Debug("image decode failed",
			zap.String("url", logging.SanitizeForLog(imageURL)), zap.Error(err))
		return nil, false
	}
	return imaging.Downscale(img, d.maxSide), true
}

func (d *Downloader) fetch(ctx context.Context, imageURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("could not create request: %w", err)
	}
	req.Header.Set("User-Agent", d.userAgent)

	resp, err := d.client.Do(req) //nolint:gosec // candidate URLs come from the Reddit listing
	if err != nil {
		return nil, fmt.Errorf("could not send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("request failed with status %d", resp.StatusCode)
	}

	contentType := resp.Header.Get("Content-Type")
	if !d.acceptable(contentType, imageURL) {
		return nil, fmt.Errorf("content type %q not allowed", contentType)
	}

	if resp.ContentLength > d.maxBytes {
		return nil, fmt.Errorf("%w: declared %d bytes", errTooLarge, resp.ContentLength)
	}

	// one extra byte detects bodies over the limit
	body, err := io.ReadAll(io.LimitReader(resp.Body, d.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("could not read response body: %w", err)
	}
	if int64(len(body)) > d.maxBytes {
		return nil, errTooLarge
	}
	return body, nil
}

// acceptable allows a declared content type on the allow list, a missing content
// type, or any content type when the URL path has an allowed image extension.
func (d *Downloader) acceptable(contentType, imageURL string) bool {
	if contentType == "" {
		return true
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err == nil && slices.Contains(d.allowedMIME, strings.ToLower(mediaType)) {
		return true
	}
	return d.hasAllowedExtension(imageURL)
}

func (d *Downloader) hasAllowedExtension(imageURL string) bool {
	u, err := url.Parse(imageURL)
	if err != nil {
		return false
	}
	ext := strings.ToLower(path.Ext(u.Path))
	return ext != "" && slices.Contains(d.allowedExtensions, ext)
}

// Package constants provides shared constants used across the codebase.
// Centralizing these values ensures consistency and makes them easier to modify.
package constants

// Face selection constants
const (
	// DefaultMinInterocularPx is the minimum pixel distance between the two eye
	// landmarks for a detection to be considered embeddable
	DefaultMinInterocularPx = 80.0

	// EmbeddingDim is the length of ArcFace embeddings returned by the face model
	EmbeddingDim = 512

	// ModelJPEGQuality is the JPEG quality used when sending images to the face model
	ModelJPEGQuality = 95
)

// Scoring constants
const (
	// DefaultThreshold is the raw cosine threshold used when none (or an invalid one) is given
	DefaultThreshold = 0.0

	// DefaultLowPercentile and DefaultHighPercentile bound percentile normalization
	DefaultLowPercentile  = 10.0
	DefaultHighPercentile = 99.0

	// ColorSaturation and ColorValue are the fixed HSV components of match colors
	ColorSaturation = 0.85
	ColorValue      = 0.90
)

// Image acquisition constants
const (
	// MaxDownloadBytes caps a single candidate image download (12MB)
	MaxDownloadBytes = 12_000_000

	// MaxImageSide is the longest side images are downscaled to after decode
	MaxImageSide = 1600

	// DefaultListingLimit is how many posts are scanned per subreddit listing
	DefaultListingLimit = 50

	// DefaultUserAgent identifies outbound requests
	DefaultUserAgent = "face-finder/0.1"
)

// Thumbnail constants
const (
	// ThumbnailMaxSide is the longest side of inline thumbnails
	ThumbnailMaxSide = 160

	// ThumbnailQuality is the JPEG quality of inline thumbnails
	ThumbnailQuality = 85
)

// Web constants
const (
	// MaxUploadSize is the maximum reference photo upload size in bytes (20MB)
	MaxUploadSize = 20 << 20

	// DefaultFaceCacheSize is the number of observations kept by the in-memory cache
	DefaultFaceCacheSize = 5000
)

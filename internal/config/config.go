package config

import (
	_ "embed"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/kozaktomas/face-finder/internal/constants"
	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

type Config struct {
	Embedding EmbeddingConfig
	Reddit    RedditConfig
	Download  DownloadConfig
	Thumbnail ThumbnailConfig
	Face      FaceConfig
	Scoring   ScoringConfig
	Cache     CacheConfig
	Database  DatabaseConfig
	Web       WebConfig
}

type EmbeddingConfig struct {
	URL string // defaults to http://localhost:8000
}

type RedditConfig struct {
	ClientID          string
	ClientSecret      string
	UserAgent         string
	ListingLimit      int `yaml:"listing_limit"`
	RequestsPerMinute int `yaml:"requests_per_minute"`
}

// HasCredentials reports whether app-only OAuth can be used instead of the public JSON endpoints.
func (c *RedditConfig) HasCredentials() bool {
	return c.ClientID != "" && c.ClientSecret != ""
}

type DownloadConfig struct {
	MaxBytes          int64         `yaml:"max_bytes"`
	Timeout           time.Duration `yaml:"timeout"`
	MaxSide           int           `yaml:"max_side"`
	AllowedMIME       []string      `yaml:"allowed_mime"`
	AllowedExtensions []string      `yaml:"allowed_extensions"`
}

type ThumbnailConfig struct {
	MaxSide int `yaml:"max_side"`
	Quality int `yaml:"quality"`
}

type FaceConfig struct {
	MinInterocularPx float64 `yaml:"min_interocular_px"`
}

type ScoringConfig struct {
	LowPercentile  float64 `yaml:"low_percentile"`
	HighPercentile float64 `yaml:"high_percentile"`
}

type CacheConfig struct {
	Backend string // none, memory or postgres
	Size    int
}

type DatabaseConfig struct {
	URL          string // PostgreSQL connection URL
	MaxOpenConns int    // Maximum open connections (default 10)
	MaxIdleConns int    // Maximum idle connections (default 2)
}

type WebConfig struct {
	StartRate  float64 // job submissions per second across all clients
	StartBurst int
}

// defaults mirrors the layout of defaults.yaml.
type defaults struct {
	Download  DownloadConfig  `yaml:"download"`
	Thumbnail ThumbnailConfig `yaml:"thumbnail"`
	Face      FaceConfig      `yaml:"face"`
	Scoring   ScoringConfig   `yaml:"scoring"`
	Reddit    RedditConfig    `yaml:"reddit"`
}

// envInt reads an environment variable and parses it as a positive integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

// envFloat reads an environment variable as a positive float.
func envFloat(key string, defaultVal float64) float64 {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f > 0 {
		return f
	}
	return defaultVal
}

// envDuration reads an environment variable as a positive time.Duration ("15s", "2m").
func envDuration(key string, defaultVal time.Duration) time.Duration {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if d, err := time.ParseDuration(s); err == nil && d > 0 {
		return d
	}
	return defaultVal
}

func loadDefaults() defaults {
	var d defaults
	if err := yaml.Unmarshal(defaultsYAML, &d); err != nil {
		// This is an embedded file so this error should never happen in practice
		panic("failed to unmarshal embedded defaults.yaml: " + err.Error())
	}
	return d
}

func Load() *Config {
	d := loadDefaults()

	userAgent := os.Getenv("REDDIT_USER_AGENT")
	if userAgent == "" {
		userAgent = constants.DefaultUserAgent + " by local-app"
	}

	cacheBackend := strings.ToLower(strings.TrimSpace(os.Getenv("FACE_CACHE")))
	if cacheBackend == "" {
		cacheBackend = "none"
	}

	return &Config{
		Embedding: EmbeddingConfig{
			URL: os.Getenv("EMBEDDING_URL"),
		},
		Reddit: RedditConfig{
			ClientID:          os.Getenv("REDDIT_CLIENT_ID"),
			ClientSecret:      os.Getenv("REDDIT_CLIENT_SECRET"),
			UserAgent:         userAgent,
			ListingLimit:      envInt("REDDIT_LISTING_LIMIT", d.Reddit.ListingLimit),
			RequestsPerMinute: envInt("REDDIT_REQUESTS_PER_MINUTE", d.Reddit.RequestsPerMinute),
		},
		Download: DownloadConfig{
			MaxBytes:          int64(envInt("DOWNLOAD_MAX_BYTES", int(d.Download.MaxBytes))),
			Timeout:           envDuration("DOWNLOAD_TIMEOUT", d.Download.Timeout),
			MaxSide:           d.Download.MaxSide,
			AllowedMIME:       d.Download.AllowedMIME,
			AllowedExtensions: d.Download.AllowedExtensions,
		},
		Thumbnail: d.Thumbnail,
		Face:      d.Face,
		Scoring:   d.Scoring,
		Cache: CacheConfig{
			Backend: cacheBackend,
			Size:    envInt("FACE_CACHE_SIZE", constants.DefaultFaceCacheSize),
		},
		Database: DatabaseConfig{
			URL:          os.Getenv("DATABASE_URL"),
			MaxOpenConns: envInt("DATABASE_MAX_OPEN_CONNS", 10),
			MaxIdleConns: envInt("DATABASE_MAX_IDLE_CONNS", 2),
		},
		Web: WebConfig{
			StartRate:  envFloat("WEB_START_RATE", 2),
			StartBurst: envInt("WEB_START_BURST", 5),
		},
	}
}

package handlers

import (
	"net/http"

	"github.com/kozaktomas/face-finder/internal/config"
	"github.com/kozaktomas/face-finder/internal/constants"
	"github.com/kozaktomas/face-finder/internal/scoring"
)

// ConfigHandler handles configuration endpoints
type ConfigHandler struct {
	config *config.Config
}

// NewConfigHandler creates a new config handler
func NewConfigHandler(cfg *config.Config) *ConfigHandler {
	return &ConfigHandler{
		config: cfg,
	}
}

// ConfigResponse holds the public limits the front end needs
type ConfigResponse struct {
	DefaultThreshold float64  `json:"default_threshold"`
	MinThreshold     float64  `json:"min_threshold"`
	MaxThreshold     float64  `json:"max_threshold"`
	Modes            []string `json:"modes"`
	DefaultMode      string   `json:"default_mode"`
	MaxUploadBytes   int64    `json:"max_upload_bytes"`
	LowPercentile    float64  `json:"low_percentile"`
	HighPercentile   float64  `json:"high_percentile"`
	RedditOAuth      bool     `json:"reddit_oauth"`
	CacheBackend     string   `json:"cache_backend"`
}

// Get returns the public configuration
func (h *ConfigHandler) Get(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, ConfigResponse{
		DefaultThreshold: constants.DefaultThreshold,
		MinThreshold:     -1,
		MaxThreshold:     1,
		Modes:            []string{scoring.ModeAbsolute.String(), scoring.ModePercentile.String()},
		DefaultMode:      scoring.ModeAbsolute.String(),
		MaxUploadBytes:   constants.MaxUploadSize,
		LowPercentile:    h.config.Scoring.LowPercentile,
		HighPercentile:   h.config.Scoring.HighPercentile,
		RedditOAuth:      h.config.Reddit.HasCredentials(),
		CacheBackend:     h.config.Cache.Backend,
	})
}

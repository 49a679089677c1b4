package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kozaktomas/face-finder/internal/config"
)

func TestConfigHandler_Get(t *testing.T) {
	cfg := &config.Config{
		Reddit:  config.RedditConfig{ClientID: "id", ClientSecret: "secret"},
		Scoring: config.ScoringConfig{LowPercentile: 10, HighPercentile: 99},
		Cache:   config.CacheConfig{Backend: "memory"},
	}
	handler := NewConfigHandler(cfg)

	recorder := httptest.NewRecorder()
	handler.Get(recorder, httptest.NewRequest("GET", "/api/config", nil))

	if recorder.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, recorder.Code)
	}

	var resp ConfigResponse
	if err := json.Unmarshal(recorder.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}

	if resp.MinThreshold != -1 || resp.MaxThreshold != 1 {
		t.Errorf("expected threshold range [-1, 1], got [%v, %v]", resp.MinThreshold, resp.MaxThreshold)
	}
	if len(resp.Modes) != 2 || resp.Modes[0] != "absolute" || resp.Modes[1] != "percentile" {
		t.Errorf("unexpected modes %v", resp.Modes)
	}
	if resp.DefaultMode != "absolute" {
		t.Errorf("expected default mode 'absolute', got '%s'", resp.DefaultMode)
	}
	if !resp.RedditOAuth {
		t.Error("expected reddit_oauth to be true with credentials")
	}
	if resp.HighPercentile != 99 {
		t.Errorf("expected high percentile 99, got %v", resp.HighPercentile)
	}
	if resp.CacheBackend != "memory" {
		t.Errorf("expected cache backend 'memory', got '%s'", resp.CacheBackend)
	}
}

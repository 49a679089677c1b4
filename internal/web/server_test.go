package web

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/kozaktomas/face-finder/internal/config"
	"github.com/kozaktomas/face-finder/internal/matcher"
)

type stubJobs struct{}

func (stubJobs) Start(photo []byte, sourceURL string, opts matcher.Options) (*matcher.Job, error) {
	return &matcher.Job{ID: "job-1", Options: opts}, nil
}

func (stubJobs) Stream(ctx context.Context, id string, fn func(matcher.Event) error) error {
	if id != "job-1" {
		return matcher.ErrJobNotFound
	}
	return fn(matcher.Event{Type: matcher.EventFinalize})
}

func (stubJobs) Cancel(string) {}

func testServer() *Server {
	cfg := &config.Config{Web: config.WebConfig{StartRate: 0.001, StartBurst: 1}}
	return NewServer(cfg, stubJobs{}, nil, "127.0.0.1", 0)
}

func analyzeBody(t *testing.T) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("photo", "me.jpg")
	if err != nil {
		t.Fatal(err)
	}
	part.Write([]byte("x"))
	writer.WriteField("forum_url", "https://www.reddit.com/r/pics")
	writer.Close()
	return body, writer.FormDataContentType()
}

func TestServer_Routes(t *testing.T) {
	router := testServer().Router()

	tests := []struct {
		method     string
		path       string
		wantStatus int
		wantBody   string
	}{
		{"GET", "/healthz", http.StatusOK, `{"ok":true}`},
		{"GET", "/api/v1/health", http.StatusOK, `{"status":"ok"}`},
		{"GET", "/api/config", http.StatusOK, `"modes":["absolute","percentile"]`},
		{"POST", "/api/cancel/whatever", http.StatusOK, `{"ok":true}`},
		{"GET", "/api/stream/missing", http.StatusNotFound, `"error"`},
		{"GET", "/api/stream/job-1", http.StatusOK, `data: {"type":"finalize","count":0}`},
		{"GET", "/", http.StatusOK, "Face Finder"},
		{"GET", "/static/app.js", http.StatusOK, "EventSource"},
	}

	for _, tc := range tests {
		t.Run(tc.method+" "+tc.path, func(t *testing.T) {
			recorder := httptest.NewRecorder()
			router.ServeHTTP(recorder, httptest.NewRequest(tc.method, tc.path, nil))

			if recorder.Code != tc.wantStatus {
				t.Fatalf("expected status %d, got %d", tc.wantStatus, recorder.Code)
			}
			if !strings.Contains(recorder.Body.String(), tc.wantBody) {
				t.Errorf("expected body to contain %q, got %q", tc.wantBody, recorder.Body.String())
			}
		})
	}
}

func TestServer_SecurityHeadersApplied(t *testing.T) {
	router := testServer().Router()

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest("GET", "/healthz", nil))

	if recorder.Header().Get("X-Frame-Options") != "DENY" {
		t.Error("expected X-Frame-Options header")
	}
}

func TestServer_AnalyzeIsRateLimited(t *testing.T) {
	router := testServer().Router()

	codes := make([]int, 0, 2)
	for range 2 {
		body, contentType := analyzeBody(t)
		req := httptest.NewRequest("POST", "/api/analyze", body)
		req.Header.Set("Content-Type", contentType)
		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, req)
		codes = append(codes, recorder.Code)
	}

	if codes[0] != http.StatusAccepted {
		t.Errorf("expected first analyze to be accepted, got %d", codes[0])
	}
	if codes[1] != http.StatusTooManyRequests {
		t.Errorf("expected second analyze to be throttled, got %d", codes[1])
	}
}

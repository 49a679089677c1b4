package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestCORS_AllowsLocalhostOrigin(t *testing.T) {
	handler := CORS()(okHandler())

	req := httptest.NewRequest("GET", "/api/config", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, req)

	if got := recorder.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:5173" {
		t.Errorf("expected localhost origin to be allowed, got '%s'", got)
	}
}

func TestCORS_AllowsConfiguredOrigin(t *testing.T) {
	t.Setenv("WEB_ALLOWED_ORIGINS", "https://faces.example.com, https://other.example.com")
	handler := CORS()(okHandler())

	req := httptest.NewRequest("GET", "/api/config", nil)
	req.Header.Set("Origin", "https://other.example.com")
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, req)

	if got := recorder.Header().Get("Access-Control-Allow-Origin"); got != "https://other.example.com" {
		t.Errorf("expected configured origin to be allowed, got '%s'", got)
	}
}

func TestCORS_RejectsUnknownOrigin(t *testing.T) {
	handler := CORS()(okHandler())

	req := httptest.NewRequest("GET", "/api/config", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, req)

	if got := recorder.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("expected no allow-origin header, got '%s'", got)
	}
	if recorder.Code != http.StatusOK {
		t.Errorf("expected request to pass through, got %d", recorder.Code)
	}
}

func TestCORS_Preflight(t *testing.T) {
	called := false
	handler := CORS()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	req := httptest.NewRequest(http.MethodOptions, "/api/analyze", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, req)

	if recorder.Code != http.StatusOK {
		t.Errorf("expected status 200 for preflight, got %d", recorder.Code)
	}
	if called {
		t.Error("preflight must not reach the next handler")
	}
}

func TestSecurityHeaders(t *testing.T) {
	handler := SecurityHeaders()(okHandler())

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, httptest.NewRequest("GET", "/", nil))

	for _, header := range []string{"Content-Security-Policy", "X-Content-Type-Options", "X-Frame-Options"} {
		if recorder.Header().Get(header) == "" {
			t.Errorf("expected %s header to be set", header)
		}
	}
}

func TestRateLimit_RejectsAfterBurst(t *testing.T) {
	rl := NewRateLimiter(0.001, 2)
	handler := RateLimit(rl)(okHandler())

	codes := make([]int, 0, 3)
	for range 3 {
		recorder := httptest.NewRecorder()
		handler.ServeHTTP(recorder, httptest.NewRequest("POST", "/api/analyze", nil))
		codes = append(codes, recorder.Code)
	}

	if codes[0] != http.StatusOK || codes[1] != http.StatusOK {
		t.Errorf("expected burst of two requests to pass, got %v", codes)
	}
	if codes[2] != http.StatusTooManyRequests {
		t.Errorf("expected third request to be throttled, got %d", codes[2])
	}
}

func TestRateLimit_ThrottledResponse(t *testing.T) {
	rl := NewRateLimiter(0.001, 1)
	handler := RateLimit(rl)(okHandler())

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("POST", "/api/analyze", nil))
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, httptest.NewRequest("POST", "/api/analyze", nil))

	if ct := recorder.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected JSON error, got '%s'", ct)
	}
	if recorder.Header().Get("Retry-After") == "" {
		t.Error("expected Retry-After header")
	}
}

func TestRateLimit_DisabledWithZeroRate(t *testing.T) {
	handler := RateLimit(NewRateLimiter(0, 0))(okHandler())

	for i := range 20 {
		recorder := httptest.NewRecorder()
		handler.ServeHTTP(recorder, httptest.NewRequest("POST", "/api/analyze", nil))
		if recorder.Code != http.StatusOK {
			t.Fatalf("request %d throttled with limiting disabled", i)
		}
	}
}

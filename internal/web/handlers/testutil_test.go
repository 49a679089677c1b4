package handlers

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/kozaktomas/face-finder/internal/acquisition"
	"github.com/kozaktomas/face-finder/internal/matcher"
)

// fakeJobs records calls and replays a fixed event list on Stream.
type fakeJobs struct {
	mu        sync.Mutex
	startErr  error
	streamErr error
	events    []matcher.Event
	started   []startCall
	cancelled []string
}

type startCall struct {
	photo     []byte
	sourceURL string
	opts      matcher.Options
}

func (f *fakeJobs) Start(photo []byte, sourceURL string, opts matcher.Options) (*matcher.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.startErr != nil {
		return nil, f.startErr
	}
	if err := acquisition.ValidatePhoto(photo); err != nil {
		return nil, err
	}
	f.started = append(f.started, startCall{photo: photo, sourceURL: sourceURL, opts: opts})
	return &matcher.Job{ID: "job-1", Options: opts}, nil
}

func (f *fakeJobs) Stream(ctx context.Context, id string, fn func(matcher.Event) error) error {
	if f.streamErr != nil {
		return f.streamErr
	}
	for _, e := range f.events {
		if err := fn(e); err != nil {
			return err
		}
	}
	return nil
}

func (f *fakeJobs) Cancel(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancelled = append(f.cancelled, id)
}

// analyzeRequest builds a multipart analyze request. A nil photo omits the file part.
func analyzeRequest(t *testing.T, photo []byte, fields map[string]string) *http.Request {
	t.Helper()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	if photo != nil {
		part, err := writer.CreateFormFile("photo", "me.jpg")
		if err != nil {
			t.Fatalf("failed to create form file: %v", err)
		}
		if _, err := part.Write(photo); err != nil {
			t.Fatalf("failed to write photo: %v", err)
		}
	}
	for key, value := range fields {
		if err := writer.WriteField(key, value); err != nil {
			t.Fatalf("failed to write field %s: %v", key, err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("failed to close writer: %v", err)
	}

	req := httptest.NewRequest("POST", "/api/analyze", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

// requestWithChiParams creates a request with chi URL parameters
func requestWithChiParams(r *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for key, value := range params {
		rctx.URLParams.Add(key, value)
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

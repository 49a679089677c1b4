package matcher

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kozaktomas/face-finder/internal/acquisition"
	"github.com/kozaktomas/face-finder/internal/facecache"
	"github.com/kozaktomas/face-finder/internal/facematch"
)

const (
	queryWidth  = 200
	testSource  = "https://www.reddit.com/r/pics"
	noFaceWidth = 202
)

// fakeDetector answers by image width so each test image gets its own faces.
type fakeDetector struct {
	mu     sync.Mutex
	faces  map[int][]facematch.Detection
	errs   map[int]error
	widths []int
}

func newFakeDetector() *fakeDetector {
	return &fakeDetector{faces: make(map[int][]facematch.Detection), errs: make(map[int]error)}
}

func (f *fakeDetector) Detect(_ context.Context, img *image.RGBA) ([]facematch.Detection, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	w := img.Bounds().Dx()
	f.widths = append(f.widths, w)
	if err := f.errs[w]; err != nil {
		return nil, err
	}
	return f.faces[w], nil
}

// withFace registers one clear face with the given embedding for images of width w.
func (f *fakeDetector) withFace(w int, embedding ...float32) *fakeDetector {
	f.faces[w] = []facematch.Detection{{
		BBox:      [4]float64{10, 10, 110, 110},
		Landmarks: [][2]float64{{20, 40}, {110, 40}},
		Embedding: embedding,
		Score:     0.95,
	}}
	return f
}

type fakeSource struct {
	entries []acquisition.CandidateEntry
	err     error
	calls   int
}

func (s *fakeSource) FetchCandidateEntries(_ context.Context, _ string) ([]acquisition.CandidateEntry, error) {
	s.calls++
	return s.entries, s.err
}

// fakeDownloader serves images by URL; unknown URLs fail like a broken link.
type fakeDownloader struct {
	mu     sync.Mutex
	images map[string]*image.RGBA
	calls  []string
	onGet  func(url string)
}

func newFakeDownloader() *fakeDownloader {
	return &fakeDownloader{images: make(map[string]*image.RGBA)}
}

func (d *fakeDownloader) DownloadImage(_ context.Context, url string) (*image.RGBA, bool) {
	d.mu.Lock()
	d.calls = append(d.calls, url)
	hook := d.onGet
	img, ok := d.images[url]
	d.mu.Unlock()

	if hook != nil {
		hook(url)
	}
	return img, ok
}

func (d *fakeDownloader) with(url string, width int) *fakeDownloader {
	d.images[url] = solidImage(width, 150)
	return d
}

func solidImage(width, height int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := range height {
		for x := range width {
			img.Set(x, y, color.RGBA{uint8(x), 90, uint8(y), 255})
		}
	}
	return img
}

func queryPhoto(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, solidImage(queryWidth, 150)))
	return buf.Bytes()
}

func entry(imageURL string) acquisition.CandidateEntry {
	created := time.Date(2024, 3, 5, 12, 0, 0, 0, time.UTC)
	return acquisition.CandidateEntry{
		ImageURL:  imageURL,
		PostURL:   "https://www.reddit.com/r/pics/comments/" + strings.TrimPrefix(imageURL, "https://i.redd.it/"),
		Title:     "post " + imageURL,
		CreatedAt: &created,
	}
}

func newTestRunner(det *fakeDetector, src *fakeSource, dl *fakeDownloader, cache facecache.Cache) *Runner {
	return NewRunner(RunnerConfig{
		Selector:   facematch.NewSelector(det, 80),
		Source:     src,
		Downloader: dl,
		Cache:      cache,
	})
}

// drain reads every event of a finished job.
func drain(t *testing.T, job *Job) []Event {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var events []Event
	for {
		e, ok := job.Next(ctx)
		if !ok {
			require.NoError(t, ctx.Err(), "stream did not terminate")
			return events
		}
		events = append(events, e)
	}
}

func ofType(events []Event, typ EventType) []Event {
	var out []Event
	for _, e := range events {
		if e.Type == typ {
			out = append(out, e)
		}
	}
	return out
}

func progressStatuses(events []Event) []string {
	var out []string
	for _, e := range ofType(events, EventStatus) {
		if strings.HasPrefix(e.Text, "Processing image ") {
			out = append(out, e.Text)
		}
	}
	return out
}

func progressEvents(events []Event) []Event {
	var out []Event
	for _, e := range ofType(events, EventStatus) {
		if e.Total > 0 {
			out = append(out, e)
		}
	}
	return out
}

func hasStatus(events []Event, text string) bool {
	for _, e := range ofType(events, EventStatus) {
		if e.Text == text {
			return true
		}
	}
	return false
}

// statusIndex returns the position of the status with the given text, or -1.
func statusIndex(events []Event, text string) int {
	for i, e := range events {
		if e.Type == EventStatus && e.Text == text {
			return i
		}
	}
	return -1
}

var errBoom = errors.New("boom")

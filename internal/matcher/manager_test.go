package matcher

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kozaktomas/face-finder/internal/acquisition"
)

func TestManager_StartValidation(t *testing.T) {
	det, src, dl := threeEntryScenario()
	m := NewManager(newTestRunner(det, src, dl, nil), NewRegistry(), nil)

	_, err := m.Start(queryPhoto(t), "https://example.com/r/pics", Options{})
	assert.ErrorIs(t, err, acquisition.ErrInvalidSource)

	_, err = m.Start(nil, testSource, Options{})
	assert.ErrorIs(t, err, acquisition.ErrEmptyPhoto)

	assert.Equal(t, 0, m.ActiveJobs(), "rejected requests never create jobs")
}

func TestManager_StartAndStream(t *testing.T) {
	det, src, dl := threeEntryScenario()
	m := NewManager(newTestRunner(det, src, dl, nil), NewRegistry(), nil)

	job, err := m.Start(queryPhoto(t), testSource, Options{Threshold: 5})
	require.NoError(t, err)
	assert.Equal(t, 1.0, job.Options.Threshold, "threshold is clamped")
	assert.Equal(t, 1, m.ActiveJobs())

	var events []Event
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err = m.Stream(ctx, job.ID, func(e Event) error {
		events = append(events, e)
		return nil
	})
	require.NoError(t, err)

	require.NotEmpty(t, events)
	assert.Equal(t, EventFinalize, events[len(events)-1].Type)
	assert.Equal(t, 0, events[len(events)-1].Count, "0.82 is below the clamped threshold of 1")
	assert.Equal(t, 0, m.ActiveJobs(), "drained jobs leave the registry")

	err = m.Stream(ctx, job.ID, func(Event) error { return nil })
	assert.ErrorIs(t, err, ErrJobNotFound)
}

func TestManager_StreamUnknownJob(t *testing.T) {
	m := NewManager(newTestRunner(newFakeDetector(), &fakeSource{}, newFakeDownloader(), nil), NewRegistry(), nil)
	err := m.Stream(context.Background(), "missing", func(Event) error { return nil })
	assert.ErrorIs(t, err, ErrJobNotFound)
}

func TestManager_StreamConsumerErrorCancelsJob(t *testing.T) {
	det, src, dl := threeEntryScenario()
	m := NewManager(newTestRunner(det, src, dl, nil), NewRegistry(), nil)

	job, err := m.Start(queryPhoto(t), testSource, Options{})
	require.NoError(t, err)

	errGone := errors.New("client gone")
	err = m.Stream(context.Background(), job.ID, func(Event) error { return errGone })
	assert.ErrorIs(t, err, errGone)
	assert.True(t, job.StopRequested())
	assert.Equal(t, 0, m.ActiveJobs())

	select {
	case <-job.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("worker did not finish")
	}
}

func TestManager_CancelIsIdempotent(t *testing.T) {
	registry := NewRegistry()
	m := NewManager(newTestRunner(newFakeDetector(), &fakeSource{}, newFakeDownloader(), nil), registry, nil)

	// unknown ids are ignored
	m.Cancel("missing")

	job := registry.Create(Options{})
	m.Cancel(job.ID)
	m.Cancel(job.ID)
	assert.True(t, job.StopRequested())

	job.events.close()
	events := drain(t, job)
	require.Len(t, events, 1, "only one acknowledgement")
	assert.Equal(t, "Cancel requested…", events[0].Text)
}

func TestManager_Shutdown(t *testing.T) {
	det, src, dl := threeEntryScenario()
	m := NewManager(newTestRunner(det, src, dl, nil), NewRegistry(), nil)

	job, err := m.Start(queryPhoto(t), testSource, Options{})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, m.Shutdown(ctx))

	select {
	case <-job.Done():
	default:
		t.Fatal("expected worker to be finished after shutdown")
	}
	events := drain(t, job)
	assert.Equal(t, EventFinalize, events[len(events)-1].Type)
}

func TestParseThreshold(t *testing.T) {
	tests := []struct {
		input    string
		expected float64
	}{
		{"", 0},
		{"  ", 0},
		{"0.35", 0.35},
		{" -0.2 ", -0.2},
		{"1.5", 1},
		{"-7", -1},
		{"abc", 0},
		{"NaN", 0},
		{"Inf", 1},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, ParseThreshold(tt.input), "ParseThreshold(%q)", tt.input)
	}
}

func TestClampThreshold(t *testing.T) {
	assert.Equal(t, 0.0, ClampThreshold(math.NaN()))
	assert.Equal(t, 1.0, ClampThreshold(2))
	assert.Equal(t, -1.0, ClampThreshold(-2))
	assert.Equal(t, 0.4, ClampThreshold(0.4))
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	a := r.Create(Options{})
	b := r.Create(Options{})
	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, 2, r.Len())
	assert.Len(t, r.All(), 2)

	got, err := r.Get(a.ID)
	require.NoError(t, err)
	assert.Same(t, a, got)

	r.Remove(a.ID)
	r.Remove("unknown")
	_, err = r.Get(a.ID)
	assert.ErrorIs(t, err, ErrJobNotFound)
	assert.Equal(t, 1, r.Len())
}

func TestJob_ClaimOnce(t *testing.T) {
	job := newJob("x", Options{})
	assert.True(t, job.claim())
	assert.False(t, job.claim())
}

package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/kozaktomas/face-finder/internal/acquisition"
	"github.com/kozaktomas/face-finder/internal/constants"
	"github.com/kozaktomas/face-finder/internal/logging"
	"github.com/kozaktomas/face-finder/internal/matcher"
	"github.com/kozaktomas/face-finder/internal/scoring"
)

var errStreamingUnsupported = errors.New("streaming not supported")

const (
	msgInvalidSource = "Please paste a public reddit.com link (subreddit or post)."
	msgEmptyPhoto    = "Empty photo upload."
)

// JobService starts, streams and cancels match jobs.
type JobService interface {
	Start(photo []byte, sourceURL string, opts matcher.Options) (*matcher.Job, error)
	Stream(ctx context.Context, id string, fn func(matcher.Event) error) error
	Cancel(id string)
}

// JobsHandler serves the analyze, stream and cancel endpoints.
type JobsHandler struct {
	jobs             JobService
	logger           *zap.Logger
	maxUploadSize    int64
	minInterocularPx float64
}

// NewJobsHandler creates a new jobs handler.
func NewJobsHandler(jobs JobService, minInterocularPx float64, logger *zap.Logger) *JobsHandler {
	return &JobsHandler{
		jobs:             jobs,
		logger:           logging.OrNop(logger),
		maxUploadSize:    constants.MaxUploadSize,
		minInterocularPx: minInterocularPx,
	}
}

// Analyze accepts a reference photo and a Reddit link and starts a job.
func (h *JobsHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	if r.ContentLength > h.maxUploadSize {
		respondError(w, http.StatusRequestEntityTooLarge, "photo is too large")
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize)
	if err := r.ParseMultipartForm(h.maxUploadSize); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(w, http.StatusRequestEntityTooLarge, "photo is too large")
			return
		}
		respondError(w, http.StatusBadRequest, "failed to parse multipart form")
		return
	}

	sourceURL := strings.TrimSpace(r.FormValue("forum_url"))
	if err := acquisition.ValidateSourceURL(sourceURL); err != nil {
		respondError(w, http.StatusBadRequest, msgInvalidSource)
		return
	}

	mode, err := scoring.ParsePercentMode(r.FormValue("mode"))
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	photo, err := readPhoto(r)
	if errors.Is(err, acquisition.ErrEmptyPhoto) {
		respondError(w, http.StatusBadRequest, msgEmptyPhoto)
		return
	}
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	opts := matcher.Options{
		Threshold:        matcher.ParseThreshold(r.FormValue("threshold")),
		Mode:             mode,
		MinInterocularPx: h.minInterocularPx,
	}

	job, err := h.jobs.Start(photo, sourceURL, opts)
	switch {
	case errors.Is(err, acquisition.ErrInvalidSource):
		respondError(w, http.StatusBadRequest, msgInvalidSource)
		return
	case errors.Is(err, acquisition.ErrEmptyPhoto):
		respondError(w, http.StatusBadRequest, msgEmptyPhoto)
		return
	case err != nil:
		h.logger.Error("failed to start job", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to start job")
		return
	}

	h.logger.Debug("analyze accepted",
		zap.String("job_id", job.ID),
		zap.String("source", logging.SanitizeForLog(sourceURL)),
	)

	respondJSON(w, http.StatusAccepted, map[string]string{
		"job_id": job.ID,
	})
}

// readPhoto returns the bytes of the "photo" form file.
func readPhoto(r *http.Request) ([]byte, error) {
	file, _, err := r.FormFile("photo")
	if err != nil {
		return nil, errors.New("photo is required")
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("reading photo: %w", err)
	}
	if len(data) == 0 {
		return nil, acquisition.ErrEmptyPhoto
	}
	return data, nil
}

// Stream sends the job's events as server-sent events until the job ends.
func (h *JobsHandler) Stream(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobId")
	if jobID == "" {
		respondError(w, http.StatusBadRequest, "missing job ID")
		return
	}

	var flusher http.Flusher
	err := h.jobs.Stream(r.Context(), jobID, func(e matcher.Event) error {
		if flusher == nil {
			var ok bool
			if flusher, ok = setupSSEHeaders(w); !ok {
				return errStreamingUnsupported
			}
		}
		return sendSSEData(w, flusher, e)
	})

	switch {
	case errors.Is(err, matcher.ErrJobNotFound):
		respondError(w, http.StatusNotFound, "Unknown job_id")
	case errors.Is(err, matcher.ErrStreamClaimed):
		respondError(w, http.StatusConflict, "job is already being streamed")
	case errors.Is(err, errStreamingUnsupported):
		respondError(w, http.StatusInternalServerError, "streaming not supported")
	case err != nil:
		h.logger.Debug("stream ended early", zap.String("job_id", jobID), zap.Error(err))
	}
}

// Cancel requests cancellation of a job. Unknown jobs are acknowledged too.
func (h *JobsHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	h.jobs.Cancel(chi.URLParam(r, "jobId"))
	respondJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

package matcher

import (
	"context"
	"errors"
	"math"
	"strconv"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/kozaktomas/face-finder/internal/acquisition"
	"github.com/kozaktomas/face-finder/internal/constants"
	"github.com/kozaktomas/face-finder/internal/logging"
)

// ErrStreamClaimed is returned when a job's event stream already has a consumer.
var ErrStreamClaimed = errors.New("job stream already consumed")

// Manager starts jobs in the background and hands their event streams to consumers.
type Manager struct {
	registry *Registry
	runner   *Runner
	logger   *zap.Logger

	baseCtx context.Context
	stop    context.CancelFunc
	wg      sync.WaitGroup
}

// NewManager creates a manager. Workers run under a context that only Shutdown
// cancels, never under the submitting request's context.
func NewManager(runner *Runner, registry *Registry, logger *zap.Logger) *Manager {
	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		registry: registry,
		runner:   runner,
		logger:   logging.OrNop(logger),
		baseCtx:  ctx,
		stop:     cancel,
	}
}

// Start validates the input, registers a job and runs it in the background.
// It returns as soon as the worker has been started.
func (m *Manager) Start(photo []byte, sourceURL string, opts Options) (*Job, error) {
	if err := acquisition.ValidateSourceURL(sourceURL); err != nil {
		return nil, err
	}
	if err := acquisition.ValidatePhoto(photo); err != nil {
		return nil, err
	}
	opts.Threshold = ClampThreshold(opts.Threshold)

	job := m.registry.Create(opts)

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		m.runner.Run(m.baseCtx, job, photo, strings.TrimSpace(sourceURL))
	}()

	return job, nil
}

// Stream passes every event of the job to fn, in order, until the stream ends.
// The job leaves the registry once the stream is drained or abandoned; an
// abandoned stream also cancels the job.
func (m *Manager) Stream(ctx context.Context, id string, fn func(Event) error) error {
	job, err := m.registry.Get(id)
	if err != nil {
		return err
	}
	if !job.claim() {
		return ErrStreamClaimed
	}
	defer m.registry.Remove(id)

	for {
		e, ok := job.Next(ctx)
		if !ok {
			if ctx.Err() != nil {
				job.Cancel()
				m.logger.Info("stream consumer went away", zap.String("job_id", id))
				return ctx.Err()
			}
			return nil
		}
		if err := fn(e); err != nil {
			job.Cancel()
			return err
		}
	}
}

// Cancel requests cancellation. Unknown or finished jobs are ignored.
func (m *Manager) Cancel(id string) {
	job, err := m.registry.Get(id)
	if err != nil {
		return
	}
	if job.Cancel() {
		m.logger.Info("job cancel requested", zap.String("job_id", id))
	}
}

// ActiveJobs returns the number of jobs not yet drained.
func (m *Manager) ActiveJobs() int {
	return m.registry.Len()
}

// Shutdown stops all workers at their next safe point and waits for them.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.stop()
	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ClampThreshold limits t to the cosine range [-1, 1]; NaN becomes the default.
func ClampThreshold(t float64) float64 {
	if math.IsNaN(t) {
		return constants.DefaultThreshold
	}
	return math.Max(-1, math.Min(1, t))
}

// ParseThreshold parses a user supplied threshold. Empty or unparseable input
// yields the default; parsed values are clamped to [-1, 1].
func ParseThreshold(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return constants.DefaultThreshold
	}
	t, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return constants.DefaultThreshold
	}
	return ClampThreshold(t)
}

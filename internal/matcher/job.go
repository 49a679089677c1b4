package matcher

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/kozaktomas/face-finder/internal/scoring"
)

// Options are fixed when a job is created.
type Options struct {
	// Threshold is the inclusive minimum raw cosine score of a kept match.
	Threshold float64
	// Mode selects how raw scores become display percents.
	Mode scoring.PercentMode
	// MinInterocularPx overrides the selector's filter distance when positive.
	MinInterocularPx float64
}

// Job is one search execution.
type Job struct {
	ID        string
	Options   Options
	CreatedAt time.Time

	stopRequested atomic.Bool
	claimed       atomic.Bool
	events        *eventQueue
	done          chan struct{}
}

func newJob(id string, opts Options) *Job {
	return &Job{
		ID:        id,
		Options:   opts,
		CreatedAt: time.Now(),
		events:    newEventQueue(),
		done:      make(chan struct{}),
	}
}

// Cancel asks the worker to stop before the next candidate. Only the first call
// has an effect; it enqueues an acknowledgement status unless the stream has
// already ended. The flag flips under the queue lock, so the acknowledgement
// is queued before anything the worker emits after seeing it.
func (j *Job) Cancel() bool {
	return j.events.pushIf(func() bool {
		return j.stopRequested.CompareAndSwap(false, true)
	}, statusEvent(msgCancelRequested))
}

// StopRequested reports whether Cancel was called.
func (j *Job) StopRequested() bool {
	return j.stopRequested.Load()
}

// Next returns the next event in order. It returns false after the final
// event has been consumed, or when ctx is done.
func (j *Job) Next(ctx context.Context) (Event, bool) {
	return j.events.next(ctx)
}

// Done is closed when the worker has finished.
func (j *Job) Done() <-chan struct{} {
	return j.done
}

func (j *Job) emit(e Event) {
	j.events.push(e)
}

// finish queues the final event and ends the stream.
func (j *Job) finish(e Event) {
	j.events.finish(e)
}

// claim marks the event stream as taken by a consumer.
func (j *Job) claim() bool {
	return j.claimed.CompareAndSwap(false, true)
}

package matcher

import (
	"errors"
	"sync"

	"github.com/google/uuid"
)

// ErrJobNotFound is returned for unknown or already drained job ids.
var ErrJobNotFound = errors.New("job not found")

// Registry maps job ids to running or undrained jobs.
type Registry struct {
	jobs map[string]*Job
	mu   sync.RWMutex
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{jobs: make(map[string]*Job)}
}

// Create registers a new job with a random id.
func (r *Registry) Create(opts Options) *Job {
	job := newJob(uuid.New().String(), opts)

	r.mu.Lock()
	r.jobs[job.ID] = job
	r.mu.Unlock()

	return job
}

// Get looks up a job.
func (r *Registry) Get(id string) (*Job, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	job, ok := r.jobs[id]
	if !ok {
		return nil, ErrJobNotFound
	}
	return job, nil
}

// Remove deletes a job; unknown ids are ignored.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.jobs, id)
}

// Len returns the number of registered jobs.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.jobs)
}

// All returns a snapshot of the registered jobs.
func (r *Registry) All() []*Job {
	r.mu.RLock()
	defer r.mu.RUnlock()
	jobs := make([]*Job, 0, len(r.jobs))
	for _, job := range r.jobs {
		jobs = append(jobs, job)
	}
	return jobs
}

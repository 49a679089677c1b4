package matcher

import (
	"context"
	"sync"
)

// eventQueue is an unbounded FIFO with a single consumer. close marks the end
// of the stream; the consumer still drains everything pushed before it.
type eventQueue struct {
	mu     sync.Mutex
	items  []Event
	closed bool
	notify chan struct{}
}

func newEventQueue() *eventQueue {
	return &eventQueue{notify: make(chan struct{}, 1)}
}

// push appends e. It reports false once the queue is closed.
func (q *eventQueue) push(e Event) bool {
	return q.pushIf(func() bool { return true }, e)
}

// pushIf evaluates cond under the queue lock and appends e only when cond holds
// and the queue is open. It reports the result of cond.
func (q *eventQueue) pushIf(cond func() bool, e Event) bool {
	q.mu.Lock()
	ok := cond()
	queued := ok && !q.closed
	if queued {
		q.items = append(q.items, e)
	}
	q.mu.Unlock()
	if queued {
		q.wake()
	}
	return ok
}

// finish appends the last event and closes the queue in one step, so nothing
// can land after it.
func (q *eventQueue) finish(last Event) {
	q.mu.Lock()
	if !q.closed {
		q.items = append(q.items, last)
		q.closed = true
	}
	q.mu.Unlock()
	q.wake()
}

func (q *eventQueue) close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	q.wake()
}

func (q *eventQueue) wake() {
	select {
	case q.notify <- struct{}{}:
	default:
	}
}

// next blocks until an event is available. It returns false when the queue is
// closed and drained, or when ctx is done.
func (q *eventQueue) next(ctx context.Context) (Event, bool) {
	for {
		q.mu.Lock()
		if len(q.items) > 0 {
			e := q.items[0]
			q.items[0] = Event{}
			q.items = q.items[1:]
			q.mu.Unlock()
			return e, true
		}
		closed := q.closed
		q.mu.Unlock()
		if closed {
			return Event{}, false
		}

		select {
		case <-q.notify:
		case <-ctx.Done():
			return Event{}, false
		}
	}
}

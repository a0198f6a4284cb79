package superlifter

import (
	"sync"
)

// queue is the ordered collection of pending requests for one bucket.
// It is drained by swapping the backing slice for a fresh one, never by
// clearing in place, so an append racing a drain lands in exactly one of
// the two generations.
type queue struct {
	mu   sync.Mutex
	reqs []*request
}

func newQueue() *queue {
	return &queue{reqs: make([]*request, 0)}
}

// append adds r to the queue and returns the new queue length.
func (q *queue) append(r *request) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.reqs = append(q.reqs, r)
	return len(q.reqs)
}

// drain atomically takes ownership of all pending requests and replaces
// the queue contents with a fresh empty slice.
func (q *queue) drain() []*request {
	q.mu.Lock()
	defer q.mu.Unlock()
	drained := q.reqs
	q.reqs = make([]*request, 0)
	return drained
}

// len returns the number of pending requests.
func (q *queue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.reqs)
}

package superlifter

import (
	"github.com/google/uuid"

	"github.com/hkrishnan/superlifter/pkg/fetch"
	"github.com/hkrishnan/superlifter/pkg/promise"
)

// request is one caller's fetch intent plus the handle promised back to
// that caller. It is immutable after creation: once enqueued it belongs to
// exactly one queue until drained, and its handle is settled exactly once
// at dispatch-completion time.
type request struct {
	// id correlates this request across enqueue and dispatch log lines.
	id       uuid.UUID
	identity string
	op       fetch.Op
	handle   *promise.Promise[any]
}

func newRequest(identity string, op fetch.Op) *request {
	return &request{
		id:       uuid.New(),
		identity: identity,
		op:       op,
		handle:   promise.New[any](),
	}
}

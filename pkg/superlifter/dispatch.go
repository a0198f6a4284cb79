package superlifter

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"

	"github.com/hashicorp/go-multierror"

	"github.com/hkrishnan/superlifter/pkg/fetch"
	"github.com/hkrishnan/superlifter/pkg/promise"
)

// dispatch drains b's queue and submits the drained requests to the
// engine as one batch. The queue is swapped before the engine call
// begins, so requests enqueued while the batch is in flight land in the
// fresh queue and are untouched by this dispatch. The queue lock is not
// held while the engine call is outstanding.
//
// An empty drain is a no-op resolving to an empty result, which makes
// unconditional timer firings cheap.
func (l *Lifter) dispatch(b *bucket) *promise.Promise[*fetch.Result] {
	reqs := b.queue.drain()
	p := promise.New[*fetch.Result]()

	if len(reqs) == 0 {
		l.log.Debug("dispatch %s: empty queue, no-op", b.name)
		p.Resolve(fetch.EmptyResult())
		return p
	}

	sources := make([]fetch.Source, len(reqs))
	for i, r := range reqs {
		sources[i] = fetch.Source{Identity: r.identity, Op: r.op}
	}

	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				err := fmt.Errorf("dispatch %s: panic: %v", b.name, rec)
				l.log.Error("%v\n%s", err, debug.Stack())
				l.settleFailure(reqs, p, err)
			}
		}()

		res, err := l.engine.Resolve(context.Background(), sources, &l.opts)
		if err != nil {
			l.log.Error("dispatch %s: batch of %d failed: %v", b.name, len(reqs), err)
			l.settleFailure(reqs, p, err)
			return
		}

		// Fan out: every drained request resolves with its own identity's
		// value. Requests sharing an identity resolve to the same value even
		// though the engine executed the operation once.
		for _, r := range reqs {
			val, ok := res.Value(r.identity)
			if !ok {
				r.handle.Reject(fmt.Errorf("dispatch %s: engine returned no value for identity %q", b.name, r.identity))
				continue
			}
			r.handle.Resolve(val)
		}
		l.log.Debug("dispatch %s: resolved %d requests across %d identities", b.name, len(reqs), res.Len())
		p.Resolve(res)
	}()

	return p
}

// settleFailure rejects the batch promise and every drained request's
// handle with err. Handles reject rather than staying pending forever so
// that callers awaiting them with a context can observe the failure.
func (l *Lifter) settleFailure(reqs []*request, p *promise.Promise[*fetch.Result], err error) {
	for _, r := range reqs {
		r.handle.Reject(err)
	}
	p.Reject(err)
}

// dispatchAll dispatches the given buckets concurrently and combines
// their outcomes into one promise keyed by bucket name. Errors from
// individual batches are aggregated.
func (l *Lifter) dispatchAll(targets []*bucket) *promise.Promise[map[string]*fetch.Result] {
	combined := promise.New[map[string]*fetch.Result]()

	type outcome struct {
		name string
		p    *promise.Promise[*fetch.Result]
	}
	outcomes := make([]outcome, len(targets))
	for i, b := range targets {
		outcomes[i] = outcome{name: b.name, p: l.dispatch(b)}
	}

	go func() {
		var (
			mu      sync.Mutex
			merr    *multierror.Error
			results = make(map[string]*fetch.Result, len(outcomes))
			wg      sync.WaitGroup
		)
		for _, o := range outcomes {
			wg.Add(1)
			go func(o outcome) {
				defer wg.Done()
				res, err := o.p.Await(context.Background())
				mu.Lock()
				defer mu.Unlock()
				if err != nil {
					merr = multierror.Append(merr, fmt.Errorf("bucket %q: %w", o.name, err))
					return
				}
				results[o.name] = res
			}(o)
		}
		wg.Wait()

		if err := merr.ErrorOrNil(); err != nil {
			combined.Reject(err)
			return
		}
		combined.Resolve(results)
	}()

	return combined
}

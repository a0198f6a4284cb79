// Package fetch defines the fetch-resolution boundary of superlifter:
// the batch of (identity, operation) pairs handed over at dispatch time,
// the result addressable per identity, and the engine that executes the
// underlying operations with deduplication.
package fetch

import (
	"context"
	"sync"

	"github.com/hashicorp/go-multierror"
	"golang.org/x/sync/singleflight"
)

// Op is a fetch operation. It is invoked at most once per distinct
// identity within one engine call, and at most once across calls while
// a shared Cache is configured.
type Op func(ctx context.Context) (any, error)

// Source pairs a logical identity with the operation that fetches it.
type Source struct {
	Identity string
	Op       Op
}

// DefaultConcurrency bounds how many operations a Resolve call runs at
// once when Options.Concurrency is unset.
const DefaultConcurrency = 8

// Options carries engine passthrough settings for one scheduler instance.
type Options struct {
	// Cache, if non-nil, is consulted before executing an operation and
	// updated with every resolved value. It is shared across batches.
	Cache *Cache

	// Concurrency bounds parallel operation execution within one batch.
	// Zero or negative means DefaultConcurrency.
	Concurrency int
}

// Engine resolves a batch of sources into a Result. The whole call
// succeeds or fails atomically from the caller's perspective: a non-nil
// error means no per-identity values are available.
type Engine interface {
	Resolve(ctx context.Context, sources []Source, opts *Options) (*Result, error)
}

// Result holds the values of one resolved batch, addressable by identity
// and iterable in first-appearance order of the input sources.
type Result struct {
	order  []string
	values map[string]any
}

// EmptyResult returns a Result with no entries, used for no-op dispatches.
func EmptyResult() *Result {
	return &Result{values: make(map[string]any)}
}

// Value returns the resolved value for identity.
func (r *Result) Value(identity string) (any, bool) {
	v, ok := r.values[identity]
	return v, ok
}

// Values returns the resolved values of all distinct identities in
// first-appearance order.
func (r *Result) Values() []any {
	out := make([]any, len(r.order))
	for i, id := range r.order {
		out[i] = r.values[id]
	}
	return out
}

// Identities returns the distinct identities in first-appearance order.
func (r *Result) Identities() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Len returns the number of distinct identities in the result.
func (r *Result) Len() int {
	return len(r.order)
}

// MuseEngine is the default Engine. Within one Resolve call each distinct
// identity's operation runs once; concurrent calls sharing an identity are
// coalesced through a singleflight group, and a configured Cache extends
// the dedup scope across completed batches.
type MuseEngine struct {
	group singleflight.Group
}

// NewMuseEngine creates a MuseEngine.
func NewMuseEngine() *MuseEngine {
	return &MuseEngine{}
}

// Resolve executes the batch. Identities are deduplicated up front, cache
// hits are taken without executing the operation, and misses run under the
// concurrency bound. Any operation error fails the whole call; errors from
// multiple operations are aggregated.
func (e *MuseEngine) Resolve(ctx context.Context, sources []Source, opts *Options) (*Result, error) {
	if opts == nil {
		opts = &Options{}
	}
	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}

	res := &Result{
		order:  make([]string, 0, len(sources)),
		values: make(map[string]any, len(sources)),
	}

	// Dedup by identity, keeping the first source's operation.
	pending := make([]Source, 0, len(sources))
	seen := make(map[string]struct{}, len(sources))
	for _, src := range sources {
		if _, ok := seen[src.Identity]; ok {
			continue
		}
		seen[src.Identity] = struct{}{}
		res.order = append(res.order, src.Identity)

		if opts.Cache != nil {
			if val, ok := opts.Cache.Get(src.Identity); ok {
				res.values[src.Identity] = val
				continue
			}
		}
		pending = append(pending, src)
	}

	if len(pending) == 0 {
		return res, nil
	}

	var (
		mu   sync.Mutex
		merr *multierror.Error
		wg   sync.WaitGroup
		sem  = make(chan struct{}, concurrency)
	)
	for _, src := range pending {
		wg.Add(1)
		go func(src Source) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			val, err, _ := e.group.Do(src.Identity, func() (any, error) {
				if opts.Cache != nil {
					// A concurrent batch may have resolved it meanwhile.
					if v, ok := opts.Cache.Get(src.Identity); ok {
						return v, nil
					}
				}
				v, err := src.Op(ctx)
				if err != nil {
					return nil, err
				}
				if opts.Cache != nil {
					opts.Cache.Set(src.Identity, v)
				}
				return v, nil
			})

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				merr = multierror.Append(merr, err)
				return
			}
			res.values[src.Identity] = val
		}(src)
	}
	wg.Wait()

	if err := merr.ErrorOrNil(); err != nil {
		return nil, err
	}
	return res, nil
}

// Ensure MuseEngine satisfies the Engine interface.
var _ Engine = (*MuseEngine)(nil)

// Package superlifter implements a request-batching scheduler for
// asynchronous data fetches. Callers enqueue (identity, operation) pairs
// into named buckets; per-bucket trigger policies decide when the
// accumulated queue is drained and dispatched as one deduplicated batch
// to a fetch-resolution engine, and every caller's handle resolves with
// its own portion of the batch result.
package superlifter

import (
	"fmt"
	"sort"
	"sync"

	"github.com/hkrishnan/superlifter/pkg/fetch"
	"github.com/hkrishnan/superlifter/pkg/logger"
	"github.com/hkrishnan/superlifter/pkg/promise"
)

// Lifter is the scheduler instance. It owns the bucket registry, the
// engine reference, and the shared engine options (including the dedup
// cache) for its whole lifetime.
type Lifter struct {
	mu      sync.RWMutex
	buckets map[string]*bucket
	running bool

	engine fetch.Engine
	opts   fetch.Options
	log    logger.Logger
}

// Start builds a Lifter from cfg, wires every bucket's trigger to a
// dispatch callback bound to that bucket, arms interval/debounce/cron
// timers, and marks the Lifter running. A manual DefaultBucket is added
// when the config omits it.
func Start(cfg Config) (*Lifter, error) {
	engine := cfg.Engine
	if engine == nil {
		engine = fetch.NewMuseEngine()
	}
	log := cfg.Logger
	if log == nil {
		log = logger.NewNopLogger()
	}

	l := &Lifter{
		buckets: make(map[string]*bucket, len(cfg.Buckets)+1),
		running: true,
		engine:  engine,
		opts:    cfg.EngineOptions,
		log:     log,
	}

	for name, bcfg := range cfg.Buckets {
		if err := l.register(name, bcfg); err != nil {
			// Release timers of buckets registered before the bad one.
			l.Stop()
			return nil, fmt.Errorf("bucket %q: %w", name, err)
		}
	}
	if _, ok := l.buckets[DefaultBucket]; !ok {
		if err := l.register(DefaultBucket, BucketConfig{Trigger: TriggerManual}); err != nil {
			return nil, err
		}
	}

	l.log.Info("lifter started with %d buckets", len(l.buckets))
	return l, nil
}

// register validates bcfg, creates the bucket, and starts its trigger.
// The running flag is re-checked under the write lock: Stop also takes the
// write lock for its bucket snapshot, so a bucket is either inserted before
// the snapshot (and gets its trigger stopped) or rejected with ErrNotRunning.
func (l *Lifter) register(name string, bcfg BucketConfig) error {
	if err := bcfg.validate(); err != nil {
		return err
	}

	l.mu.Lock()
	if !l.running {
		l.mu.Unlock()
		return ErrNotRunning
	}
	if _, ok := l.buckets[name]; ok {
		l.mu.Unlock()
		return fmt.Errorf("%w: %q", ErrDuplicateBucket, name)
	}
	var b *bucket
	b = newBucket(name, bcfg, func() {
		l.dispatch(b)
	})
	l.buckets[name] = b
	l.mu.Unlock()

	b.trigger.start()
	return nil
}

// Stop marks the Lifter not-running and cancels every bucket's timer.
// It is idempotent. An in-flight dispatch is allowed to complete; its
// handles still resolve.
func (l *Lifter) Stop() error {
	l.mu.Lock()
	if !l.running {
		l.mu.Unlock()
		return nil
	}
	l.running = false
	buckets := make([]*bucket, 0, len(l.buckets))
	for _, b := range l.buckets {
		buckets = append(buckets, b)
	}
	l.mu.Unlock()

	for _, b := range buckets {
		b.trigger.stop()
	}
	l.log.Info("lifter stopped, %d buckets quiesced", len(buckets))
	return nil
}

// AddBucket creates and registers a new bucket at runtime with its own
// trigger. It is safe to call concurrently with enqueue and dispatch on
// other buckets. Fails with ErrDuplicateBucket if the name is taken and
// ErrNotRunning after Stop.
func (l *Lifter) AddBucket(name string, cfg BucketConfig) error {
	if err := l.register(name, cfg); err != nil {
		return err
	}
	l.log.Info("bucket %q added with %s trigger", name, cfg.Trigger)
	return nil
}

// Enqueue wraps op into a request, appends it to the named bucket's queue
// (DefaultBucket when name is empty), and returns the request's handle
// immediately. The handle settles once the containing batch dispatches:
// it resolves with this request's value, or rejects with the batch error
// if the engine call fails.
//
// Enqueue is the only operation that can fire a queue-size trigger or
// reset a debounce timer. A queue-size dispatch runs as part of this call
// (the handle still settles only when the batch completes).
func (l *Lifter) Enqueue(bucketName, identity string, op fetch.Op) (*promise.Promise[any], error) {
	b, err := l.lookup(bucketName)
	if err != nil {
		return nil, err
	}

	r := newRequest(identity, op)
	n := b.queue.append(r)
	l.log.Debug("enqueue %s: request %s identity %q, queue length %d", b.name, r.id, identity, n)
	b.trigger.enqueued(n)
	return r.handle, nil
}

// EnqueueDefault enqueues into the default bucket.
func (l *Lifter) EnqueueDefault(identity string, op fetch.Op) (*promise.Promise[any], error) {
	return l.Enqueue(DefaultBucket, identity, op)
}

// Fetch force-dispatches the named bucket (DefaultBucket when name is
// empty) regardless of its trigger state. The returned promise resolves
// with the dispatched batch's ordered result once the engine call
// completes; the individual request handles also settle as a side effect.
// Fetching an empty bucket resolves immediately with an empty result.
func (l *Lifter) Fetch(bucketName string) (*promise.Promise[*fetch.Result], error) {
	b, err := l.lookup(bucketName)
	if err != nil {
		return nil, err
	}
	return l.dispatch(b), nil
}

// FetchAll force-dispatches every bucket that currently has a non-empty
// queue, concurrently. The returned promise resolves with each dispatched
// bucket's result keyed by bucket name once all of them complete, or
// rejects with the aggregated errors if any batch fails.
func (l *Lifter) FetchAll() (*promise.Promise[map[string]*fetch.Result], error) {
	l.mu.RLock()
	if !l.running {
		l.mu.RUnlock()
		return nil, ErrNotRunning
	}
	targets := make([]*bucket, 0, len(l.buckets))
	for _, b := range l.buckets {
		if b.queue.len() > 0 {
			targets = append(targets, b)
		}
	}
	l.mu.RUnlock()

	return l.dispatchAll(targets), nil
}

// Status reports the running flag and per-bucket queue lengths, sorted by
// bucket name. Inspectable after Stop for diagnostics.
func (l *Lifter) Status() Status {
	l.mu.RLock()
	defer l.mu.RUnlock()
	st := Status{
		Running: l.running,
		Buckets: make([]BucketStatus, 0, len(l.buckets)),
	}
	for _, b := range l.buckets {
		st.Buckets = append(st.Buckets, BucketStatus{
			Name:    b.name,
			Trigger: b.kind,
			Pending: b.queue.len(),
		})
	}
	sort.Slice(st.Buckets, func(i, j int) bool {
		return st.Buckets[i].Name < st.Buckets[j].Name
	})
	return st
}

// Status is a point-in-time snapshot of a Lifter.
type Status struct {
	Running bool
	Buckets []BucketStatus
}

// BucketStatus describes one bucket in a Status snapshot.
type BucketStatus struct {
	Name    string
	Trigger TriggerKind
	Pending int
}

// lookup resolves a bucket name (empty means DefaultBucket) under the
// read lock, checking the running flag first.
func (l *Lifter) lookup(bucketName string) (*bucket, error) {
	if bucketName == "" {
		bucketName = DefaultBucket
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	if !l.running {
		return nil, ErrNotRunning
	}
	b, ok := l.buckets[bucketName]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownBucket, bucketName)
	}
	return b, nil
}

package superlifter

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/hkrishnan/superlifter/pkg/fetch"
	"github.com/hkrishnan/superlifter/pkg/promise"
)

// TestLifter_ConcurrentEnqueueAndDispatch hammers a lifter with parallel
// enqueues while an interval trigger keeps draining the bucket, then force
// drains the remainder and checks that every request resolved to its own
// value. Run with -race.
func TestLifter_ConcurrentEnqueueAndDispatch(t *testing.T) {
	cache := fetch.NewCache()
	l := startLifter(t, Config{
		EngineOptions: fetch.Options{Cache: cache},
		Buckets: map[string]BucketConfig{
			"busy": {Trigger: TriggerInterval, Interval: 10 * time.Millisecond},
		},
	})

	const workers = 8
	const perWorker = 25

	var (
		mu      sync.Mutex
		handles = make(map[string]*promise.Promise[any], workers*perWorker)
		wg      sync.WaitGroup
	)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				id := fmt.Sprintf("w%d-i%d", w, i)
				h, err := l.Enqueue("busy", id, valueOp(id))
				if err != nil {
					t.Errorf("enqueue %s: %v", id, err)
					return
				}
				mu.Lock()
				handles[id] = h
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()

	// Drain whatever the ticker has not picked up yet.
	if _, err := l.Fetch("busy"); err != nil {
		t.Fatalf("final Fetch: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for id, h := range handles {
		v, err := h.Await(ctx)
		if err != nil {
			t.Fatalf("handle %s: %v", id, err)
		}
		if v != id {
			t.Fatalf("handle %s resolved to %v", id, v)
		}
	}

	if cache.Len() != workers*perWorker {
		t.Fatalf("expected %d cached identities, got %d", workers*perWorker, cache.Len())
	}
}

// TestLifter_AddBucketStopRace races runtime bucket creation against Stop
// and checks that no timer survives: either AddBucket loses with
// ErrNotRunning, or the bucket made it into Stop's teardown and its trigger
// is dead. A request planted in the queue afterwards must never drain.
// Run with -race.
func TestLifter_AddBucketStopRace(t *testing.T) {
	var planted []*bucket
	for i := 0; i < 100; i++ {
		l, err := Start(Config{})
		if err != nil {
			t.Fatalf("Start: %v", err)
		}

		var (
			wg     sync.WaitGroup
			begin  = make(chan struct{})
			addErr error
		)
		wg.Add(2)
		go func() {
			defer wg.Done()
			<-begin
			addErr = l.AddBucket("late", BucketConfig{Trigger: TriggerInterval, Interval: time.Millisecond})
		}()
		go func() {
			defer wg.Done()
			<-begin
			l.Stop()
		}()
		close(begin)
		wg.Wait()

		if errors.Is(addErr, ErrNotRunning) {
			continue
		}
		if addErr != nil {
			t.Fatalf("AddBucket: %v", addErr)
		}

		l.mu.RLock()
		b := l.buckets["late"]
		l.mu.RUnlock()
		b.queue.append(newRequest("x", valueOp("x")))
		planted = append(planted, b)
	}

	// Any leaked interval timer would drain its queue well within this.
	time.Sleep(100 * time.Millisecond)
	for _, b := range planted {
		if n := b.queue.len(); n != 1 {
			t.Fatalf("expected planted request to stay queued after Stop, got length %d", n)
		}
	}
}

// TestLifter_ConcurrentAddBucketAndEnqueue checks that runtime bucket
// creation is safe alongside traffic on existing buckets. Run with -race.
func TestLifter_ConcurrentAddBucketAndEnqueue(t *testing.T) {
	l := startLifter(t, Config{})

	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			name := fmt.Sprintf("b%d", w)
			if err := l.AddBucket(name, BucketConfig{Trigger: TriggerManual}); err != nil {
				t.Errorf("AddBucket %s: %v", name, err)
				return
			}
			for i := 0; i < 20; i++ {
				if _, err := l.Enqueue(name, fmt.Sprintf("%s-%d", name, i), valueOp(i)); err != nil {
					t.Errorf("enqueue into %s: %v", name, err)
					return
				}
			}
		}(w)
	}
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 20; i++ {
				if _, err := l.EnqueueDefault(fmt.Sprintf("d%d-%d", w, i), valueOp(i)); err != nil {
					t.Errorf("enqueue default: %v", err)
					return
				}
			}
		}(w)
	}
	wg.Wait()

	combined, err := l.FetchAll()
	if err != nil {
		t.Fatalf("FetchAll: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	results, err := combined.Await(ctx)
	if err != nil {
		t.Fatalf("await: %v", err)
	}
	if len(results) != 5 {
		t.Fatalf("expected 5 dispatched buckets, got %d", len(results))
	}
	for name, res := range results {
		if res.Len() != 20 {
			t.Fatalf("bucket %s: expected 20 identities, got %d", name, res.Len())
		}
	}
}

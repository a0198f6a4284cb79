package superlifter

import (
	"sync"
	"time"

	"github.com/adhocore/gronx"
)

// maxSleepCap bounds cron timer sleeps to stay responsive to NTP steps,
// DST transitions, and system sleep.
const maxSleepCap = 60 * time.Second

// trigger is a bucket's dispatch policy. start arms any timer resource,
// enqueued is called after every append with the new queue length, and
// stop releases timer resources. stop is idempotent and must guarantee
// that no firing happens after it returns.
type trigger interface {
	start()
	enqueued(n int)
	stop()
}

// newTrigger constructs the trigger described by cfg, bound to dispatch.
// cfg must have been validated beforehand.
func newTrigger(cfg BucketConfig, dispatch func()) trigger {
	switch cfg.Trigger {
	case TriggerInterval:
		return &intervalTrigger{interval: cfg.Interval, dispatch: dispatch, stopCh: make(chan struct{})}
	case TriggerDebounce:
		return &debounceTrigger{interval: cfg.Interval, dispatch: dispatch}
	case TriggerQueueSize:
		return &queueSizeTrigger{threshold: cfg.Threshold, dispatch: dispatch}
	case TriggerCron:
		return &cronTrigger{expr: cfg.CronExpr, dispatch: dispatch, stopCh: make(chan struct{})}
	default:
		return manualTrigger{}
	}
}

// manualTrigger never fires on its own; only Fetch/FetchAll drain the bucket.
type manualTrigger struct{}

func (manualTrigger) start()         {}
func (manualTrigger) enqueued(n int) {}
func (manualTrigger) stop()          {}

// intervalTrigger fires dispatch every interval, unconditionally. Empty
// queues make the dispatch a no-op, so unconditional firing is cheap.
type intervalTrigger struct {
	interval time.Duration
	dispatch func()
	stopCh   chan struct{}
	stopOnce sync.Once
}

func (t *intervalTrigger) start() {
	go func() {
		ticker := time.NewTicker(t.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				// A tick can already be pending when stop closes the channel.
				select {
				case <-t.stopCh:
					return
				default:
				}
				t.dispatch()
			case <-t.stopCh:
				return
			}
		}
	}()
}

func (t *intervalTrigger) enqueued(n int) {}

func (t *intervalTrigger) stop() {
	t.stopOnce.Do(func() { close(t.stopCh) })
}

// debounceTrigger fires dispatch once the interval has elapsed since the
// last enqueue. Each enqueue cancels any pending timer and starts a new
// one-shot, so a busy bucket keeps deferring its dispatch.
type debounceTrigger struct {
	interval time.Duration
	dispatch func()

	mu      sync.Mutex
	timer   *time.Timer
	stopped bool
}

func (t *debounceTrigger) start() {}

func (t *debounceTrigger) enqueued(n int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stopped {
		return
	}
	if t.timer != nil {
		t.timer.Stop()
	}
	t.timer = time.AfterFunc(t.interval, t.dispatch)
}

func (t *debounceTrigger) stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopped = true
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
}

// queueSizeTrigger fires dispatch synchronously from within the enqueue
// call that brings the queue length to the threshold, so the crossing
// request is always part of the drained batch.
type queueSizeTrigger struct {
	threshold int
	dispatch  func()
}

func (t *queueSizeTrigger) start() {}

func (t *queueSizeTrigger) enqueued(n int) {
	if n >= t.threshold {
		t.dispatch()
	}
}

func (t *queueSizeTrigger) stop() {}

// cronTrigger fires dispatch on a cron schedule. It runs its own goroutine
// that sleeps until the next occurrence, capped at maxSleepCap per nap.
type cronTrigger struct {
	expr     string
	dispatch func()
	stopCh   chan struct{}
	stopOnce sync.Once
}

func (t *cronTrigger) start() {
	go func() {
		var timer *time.Timer
		defer func() {
			if timer != nil {
				timer.Stop()
			}
		}()
		for {
			next, err := gronx.NextTickAfter(t.expr, time.Now(), false)
			if err != nil {
				// Validated at construction; an error here means the clock
				// produced no next occurrence. Give up quietly.
				return
			}
			for {
				dur := time.Until(next)
				if dur <= 0 {
					break
				}
				if dur > maxSleepCap {
					dur = maxSleepCap
				}
				if timer == nil {
					timer = time.NewTimer(dur)
				} else {
					timer.Reset(dur)
				}
				select {
				case <-timer.C:
				case <-t.stopCh:
					return
				}
			}
			select {
			case <-t.stopCh:
				return
			default:
			}
			t.dispatch()
		}
	}()
}

func (t *cronTrigger) enqueued(n int) {}

func (t *cronTrigger) stop() {
	t.stopOnce.Do(func() { close(t.stopCh) })
}

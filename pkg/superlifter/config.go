package superlifter

import (
	"fmt"
	"time"

	"github.com/adhocore/gronx"

	"github.com/hkrishnan/superlifter/pkg/fetch"
	"github.com/hkrishnan/superlifter/pkg/logger"
)

// DefaultBucket is the bucket every Lifter carries even when the config
// omits it. Operations addressed with an empty bucket name go here.
const DefaultBucket = "default"

// TriggerKind selects a bucket's dispatch policy.
type TriggerKind string

const (
	// TriggerManual never fires automatically; only Fetch/FetchAll drain the bucket.
	TriggerManual TriggerKind = "manual"
	// TriggerInterval fires every Interval, unconditionally, regardless of queue size.
	TriggerInterval TriggerKind = "interval"
	// TriggerDebounce fires Interval after the last enqueue, with every
	// intervening enqueue resetting the timer.
	TriggerDebounce TriggerKind = "debounced"
	// TriggerQueueSize fires as soon as an enqueue brings the queue length
	// to Threshold or above.
	TriggerQueueSize TriggerKind = "queue-size"
	// TriggerCron fires on a cron schedule given by CronExpr.
	TriggerCron TriggerKind = "cron"
)

// BucketConfig describes one bucket's trigger policy.
type BucketConfig struct {
	Trigger   TriggerKind
	Interval  time.Duration // interval and debounced triggers
	Threshold int           // queue-size trigger
	CronExpr  string        // cron trigger
}

// validate reports whether the config describes a constructible trigger.
func (c BucketConfig) validate() error {
	switch c.Trigger {
	case TriggerManual:
		return nil
	case TriggerInterval, TriggerDebounce:
		if c.Interval <= 0 {
			return fmt.Errorf("%w: %s trigger needs a positive interval", ErrInvalidTrigger, c.Trigger)
		}
		return nil
	case TriggerQueueSize:
		if c.Threshold <= 0 {
			return fmt.Errorf("%w: queue-size trigger needs a positive threshold", ErrInvalidTrigger)
		}
		return nil
	case TriggerCron:
		if _, err := gronx.NextTickAfter(c.CronExpr, time.Now(), false); err != nil {
			return fmt.Errorf("%w: cron expression %q: %v", ErrInvalidTrigger, c.CronExpr, err)
		}
		return nil
	default:
		return fmt.Errorf("%w: unknown trigger kind %q", ErrInvalidTrigger, c.Trigger)
	}
}

// Config configures a Lifter instance.
type Config struct {
	// Buckets maps bucket names to their trigger policies. A manual
	// DefaultBucket is added automatically when absent.
	Buckets map[string]BucketConfig

	// Engine resolves dispatched batches. Nil means fetch.NewMuseEngine().
	Engine fetch.Engine

	// EngineOptions are passed through to every engine call, including the
	// shared dedup cache if one is configured.
	EngineOptions fetch.Options

	// Logger receives trigger and dispatch diagnostics. Nil means no logging.
	Logger logger.Logger
}

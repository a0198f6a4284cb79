package superlifter

// bucket owns one queue and its trigger. The trigger's dispatch callback
// is bound to this bucket at construction time.
type bucket struct {
	name    string
	kind    TriggerKind
	queue   *queue
	trigger trigger
}

// newBucket creates a bucket whose trigger invokes dispatch when it fires.
// The caller starts the trigger once the bucket is registered.
func newBucket(name string, cfg BucketConfig, dispatch func()) *bucket {
	b := &bucket{
		name:  name,
		kind:  cfg.Trigger,
		queue: newQueue(),
	}
	b.trigger = newTrigger(cfg, dispatch)
	return b
}

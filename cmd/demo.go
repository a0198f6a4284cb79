package cmd

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/urfave/cli"

	"github.com/hkrishnan/superlifter/pkg/fetch"
	"github.com/hkrishnan/superlifter/pkg/logger"
	"github.com/hkrishnan/superlifter/pkg/promise"
	"github.com/hkrishnan/superlifter/pkg/superlifter"
)

var demoThreshold int

var demoFlags = []cli.Flag{
	cli.IntFlag{
		Name:        "threshold, t",
		Usage:       "queue-size threshold for the demo bucket",
		Value:       3,
		Destination: &demoThreshold,
	},
}

// demo enqueues a handful of user lookups against a simulated slow source:
// a queue-size bucket batches them, equal identities are fetched once, and
// every handle resolves with its own user's value.
func demo(ctx *cli.Context) error {
	l := logger.NewStandardLogger(log.Default(), true)
	defer l.Close()

	cache := fetch.NewCache()
	lifter, err := superlifter.Start(superlifter.Config{
		Buckets: map[string]superlifter.BucketConfig{
			"users": {
				Trigger:   superlifter.TriggerQueueSize,
				Threshold: demoThreshold,
			},
		},
		EngineOptions: fetch.Options{Cache: cache},
		Logger:        l,
	})
	if err != nil {
		return err
	}
	defer lifter.Stop()

	lookup := func(id string) fetch.Op {
		return func(ctx context.Context) (any, error) {
			// Simulated upstream latency; a real source would be a DB or API.
			time.Sleep(50 * time.Millisecond)
			return "user:" + id, nil
		}
	}

	ids := []string{"alice", "bob", "alice", "carol", "dave"}
	handles := make([]*promise.Promise[any], len(ids))
	for i, id := range ids {
		h, err := lifter.Enqueue("users", id, lookup(id))
		if err != nil {
			return err
		}
		handles[i] = h
		fmt.Printf("enqueued %q\n", id)
	}

	// Drain whatever the threshold trigger left behind.
	if _, err := lifter.Fetch("users"); err != nil {
		return err
	}

	waitCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	vals, err := promise.All(waitCtx, handles...)
	if err != nil {
		return err
	}
	for i, v := range vals {
		fmt.Printf("%q resolved to %v\n", ids[i], v)
	}
	fmt.Printf("cache now holds %d identities\n", cache.Len())
	return nil
}

package cmd

const (
	// NOTE: change version from here
	VERSION = "v0.1.0"

	DefaultListenAddr = "127.0.0.1:9543"
)

const Description = `
Superlifter accumulates individual fetch requests into named buckets
and dispatches them as deduplicated batches, driven by per-bucket
trigger policies (manual, interval, debounce, queue-size, cron).
`

const ServeDescription = `The serve command starts the batching daemon. Clients connect
over WebSocket and drive the scheduler with JSON-RPC methods
(lifter.enqueue, lifter.fetch, lifter.fetchAll, lifter.addBucket,
lifter.await, lifter.status).

Example:
        superlifter serve --listen 127.0.0.1:9543

`

const DemoDescription = `The demo command runs the scheduler in-process against a
simulated slow data source, printing when batches dispatch and
what each caller's handle resolved to.

Example:
        superlifter demo --threshold 3

`

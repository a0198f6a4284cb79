// Package api exposes a running Lifter over JSON-RPC 2.0. Remote callers
// cannot ship fetch closures, so enqueued identities resolve through a
// value-echo operation: the daemon returns the value supplied at enqueue
// time (or the identity itself) after an optional artificial delay.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/creachadair/jrpc2"
	"github.com/creachadair/jrpc2/handler"
	"github.com/google/uuid"

	"github.com/hkrishnan/superlifter/pkg/fetch"
	"github.com/hkrishnan/superlifter/pkg/logger"
	"github.com/hkrishnan/superlifter/pkg/promise"
	"github.com/hkrishnan/superlifter/pkg/superlifter"
)

// Custom JSON-RPC error codes for scheduler operations.
const (
	codeUnknownBucket   = jrpc2.Code(-32001)
	codeDuplicateBucket = jrpc2.Code(-32002)
	codeNotRunning      = jrpc2.Code(-32003)
	codeBatchFailed     = jrpc2.Code(-32004)
	codeUnknownRequest  = jrpc2.Code(-32005)
	codeAwaitTimeout    = jrpc2.Code(-32006)
	codeInvalidParams   = jrpc2.Code(-32602)
)

// Api bridges RPC method calls to a Lifter instance. Enqueued request
// handles are retained by id so clients can await them later.
type Api struct {
	log     logger.Logger
	lifter  *superlifter.Lifter
	version string

	mu      sync.Mutex
	handles map[string]*promise.Promise[any]
}

// NewApi creates an Api bound to the given Lifter.
func NewApi(l logger.Logger, lifter *superlifter.Lifter, version string) *Api {
	return &Api{
		log:     l,
		lifter:  lifter,
		version: version,
		handles: make(map[string]*promise.Promise[any]),
	}
}

// Methods returns the jrpc2 handler map served by the daemon.
func (a *Api) Methods() handler.Map {
	return handler.Map{
		"system.getVersion": handler.New(a.getVersion),
		"lifter.enqueue":    handler.New(a.enqueue),
		"lifter.await":      handler.New(a.await),
		"lifter.fetch":      handler.New(a.fetch),
		"lifter.fetchAll":   handler.New(a.fetchAll),
		"lifter.addBucket":  handler.New(a.addBucket),
		"lifter.status":     handler.New(a.status),
	}
}

// VersionResult is the response for system.getVersion.
type VersionResult struct {
	Version string `json:"version"`
}

// EnqueueParams is the input for lifter.enqueue.
type EnqueueParams struct {
	Bucket   string          `json:"bucket,omitempty"`
	Identity string          `json:"identity"`
	Value    json.RawMessage `json:"value,omitempty"`
	DelayMs  int             `json:"delayMs,omitempty"`
}

// EnqueueResult is the response for lifter.enqueue.
type EnqueueResult struct {
	ID string `json:"id"`
}

// AwaitParams is the input for lifter.await.
type AwaitParams struct {
	ID        string `json:"id"`
	TimeoutMs int    `json:"timeoutMs,omitempty"`
}

// AwaitResult is the response for lifter.await.
type AwaitResult struct {
	Value any `json:"value"`
}

// FetchParams is the input for lifter.fetch.
type FetchParams struct {
	Bucket string `json:"bucket,omitempty"`
}

// BatchResult is one dispatched batch in first-appearance order.
type BatchResult struct {
	Identities []string `json:"identities"`
	Values     []any    `json:"values"`
}

// FetchAllResult is the response for lifter.fetchAll.
type FetchAllResult struct {
	Buckets map[string]*BatchResult `json:"buckets"`
}

// AddBucketParams is the input for lifter.addBucket.
type AddBucketParams struct {
	Name       string `json:"name"`
	Trigger    string `json:"trigger"`
	IntervalMs int64  `json:"intervalMs,omitempty"`
	Threshold  int    `json:"threshold,omitempty"`
	CronExpr   string `json:"cronExpr,omitempty"`
}

// EmptyResult is a placeholder for methods that return no data.
type EmptyResult struct{}

// BucketStatus is one bucket entry in lifter.status.
type BucketStatus struct {
	Name    string `json:"name"`
	Trigger string `json:"trigger"`
	Pending int    `json:"pending"`
}

// StatusResult is the response for lifter.status.
type StatusResult struct {
	Running bool           `json:"running"`
	Buckets []BucketStatus `json:"buckets"`
}

func (a *Api) getVersion(_ context.Context) (*VersionResult, error) {
	return &VersionResult{Version: a.version}, nil
}

// enqueue wraps the supplied value into an echo operation and enqueues it.
// The returned id can be passed to lifter.await.
func (a *Api) enqueue(_ context.Context, p *EnqueueParams) (*EnqueueResult, error) {
	if p.Identity == "" {
		return nil, &jrpc2.Error{Code: codeInvalidParams, Message: "missing required param: identity"}
	}
	op := echoOp(p.Identity, p.Value, time.Duration(p.DelayMs)*time.Millisecond)

	handle, err := a.lifter.Enqueue(p.Bucket, p.Identity, op)
	if err != nil {
		return nil, rpcError(err)
	}

	id := uuid.NewString()
	a.mu.Lock()
	a.handles[id] = handle
	a.mu.Unlock()
	return &EnqueueResult{ID: id}, nil
}

// await blocks until the identified request's handle settles, then
// releases it. A timeout leaves the handle registered for a later await.
func (a *Api) await(ctx context.Context, p *AwaitParams) (*AwaitResult, error) {
	a.mu.Lock()
	handle, ok := a.handles[p.ID]
	a.mu.Unlock()
	if !ok {
		return nil, &jrpc2.Error{Code: codeUnknownRequest, Message: "no pending request with id " + p.ID}
	}

	if p.TimeoutMs > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(p.TimeoutMs)*time.Millisecond)
		defer cancel()
	}
	val, err := handle.Await(ctx)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return nil, &jrpc2.Error{Code: codeAwaitTimeout, Message: "await timed out"}
		}
		return nil, &jrpc2.Error{Code: codeBatchFailed, Message: err.Error()}
	}

	a.mu.Lock()
	delete(a.handles, p.ID)
	a.mu.Unlock()
	return &AwaitResult{Value: val}, nil
}

// fetch force-dispatches one bucket and waits for the batch result.
func (a *Api) fetch(ctx context.Context, p *FetchParams) (*BatchResult, error) {
	batch, err := a.lifter.Fetch(p.Bucket)
	if err != nil {
		return nil, rpcError(err)
	}
	res, err := batch.Await(ctx)
	if err != nil {
		return nil, &jrpc2.Error{Code: codeBatchFailed, Message: err.Error()}
	}
	return toBatchResult(res), nil
}

// fetchAll force-dispatches every non-empty bucket and waits for all of them.
func (a *Api) fetchAll(ctx context.Context) (*FetchAllResult, error) {
	combined, err := a.lifter.FetchAll()
	if err != nil {
		return nil, rpcError(err)
	}
	results, err := combined.Await(ctx)
	if err != nil {
		return nil, &jrpc2.Error{Code: codeBatchFailed, Message: err.Error()}
	}
	out := &FetchAllResult{Buckets: make(map[string]*BatchResult, len(results))}
	for name, res := range results {
		out.Buckets[name] = toBatchResult(res)
	}
	return out, nil
}

// addBucket registers a new bucket at runtime.
func (a *Api) addBucket(_ context.Context, p *AddBucketParams) (*EmptyResult, error) {
	if p.Name == "" {
		return nil, &jrpc2.Error{Code: codeInvalidParams, Message: "missing required param: name"}
	}
	cfg := superlifter.BucketConfig{
		Trigger:   superlifter.TriggerKind(p.Trigger),
		Interval:  time.Duration(p.IntervalMs) * time.Millisecond,
		Threshold: p.Threshold,
		CronExpr:  p.CronExpr,
	}
	if err := a.lifter.AddBucket(p.Name, cfg); err != nil {
		return nil, rpcError(err)
	}
	a.log.Info("rpc: bucket %q added", p.Name)
	return &EmptyResult{}, nil
}

// status reports the lifter's running flag and per-bucket queue lengths.
func (a *Api) status(_ context.Context) (*StatusResult, error) {
	st := a.lifter.Status()
	out := &StatusResult{
		Running: st.Running,
		Buckets: make([]BucketStatus, len(st.Buckets)),
	}
	for i, b := range st.Buckets {
		out.Buckets[i] = BucketStatus{
			Name:    b.Name,
			Trigger: string(b.Trigger),
			Pending: b.Pending,
		}
	}
	return out, nil
}

// echoOp builds a fetch operation resolving to the JSON value supplied at
// enqueue time, or to the identity string when no value was given. The
// delay simulates upstream fetch latency for demos and tests.
func echoOp(identity string, raw json.RawMessage, delay time.Duration) fetch.Op {
	return func(ctx context.Context) (any, error) {
		if delay > 0 {
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
		if len(raw) == 0 {
			return identity, nil
		}
		var val any
		if err := json.Unmarshal(raw, &val); err != nil {
			return nil, err
		}
		return val, nil
	}
}

// toBatchResult converts an engine result into its wire form.
func toBatchResult(res *fetch.Result) *BatchResult {
	return &BatchResult{
		Identities: res.Identities(),
		Values:     res.Values(),
	}
}

// rpcError maps scheduler sentinel errors onto JSON-RPC error codes.
func rpcError(err error) error {
	switch {
	case errors.Is(err, superlifter.ErrUnknownBucket):
		return &jrpc2.Error{Code: codeUnknownBucket, Message: err.Error()}
	case errors.Is(err, superlifter.ErrDuplicateBucket):
		return &jrpc2.Error{Code: codeDuplicateBucket, Message: err.Error()}
	case errors.Is(err, superlifter.ErrNotRunning):
		return &jrpc2.Error{Code: codeNotRunning, Message: err.Error()}
	default:
		return &jrpc2.Error{Code: codeInvalidParams, Message: err.Error()}
	}
}

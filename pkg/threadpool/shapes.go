package threadpool

import (
	"context"

	"github.com/telepresenceio/go-extension/pkg/extension"
)

// Fixed keeps exactly `threads` workers alive for the pool's lifetime and
// queues overflow up to `queues` (default: a zero-capacity hand-off queue).
// This is the default shape.
type Fixed struct{}

func init() {
	register("fixed", "github.com/telepresenceio/go-extension/pkg/threadpool.Fixed",
		func() ThreadPoolFactory { return &Fixed{} })
}

// GetExecutor implements ThreadPoolFactory.
func (Fixed) GetExecutor(ctx context.Context, u *extension.URL) (*ExecutorPool, error) {
	p := ParamsFromURL(u)
	return newPool(ctx, p.ThreadName, p, p.Threads, true, false), nil
}

// Cached starts with one worker and spawns another, with no ceiling,
// whenever a submission finds the queue full (with the default hand-off
// queue: whenever no worker is idle). Its queue follows the same `queues`
// selection as Fixed; `threads` is not consulted, and workers never
// idle-exit.
type Cached struct{}

func init() {
	register("cached", "github.com/telepresenceio/go-extension/pkg/threadpool.Cached",
		func() ThreadPoolFactory { return &Cached{} })
}

// GetExecutor implements ThreadPoolFactory.
func (Cached) GetExecutor(ctx context.Context, u *extension.URL) (*ExecutorPool, error) {
	p := ParamsFromURL(u)
	return newPool(ctx, p.ThreadName, p, 1, false, true), nil
}

// Limited grows up to `threads` workers on demand but never shrinks back
// below that count once reached, and rejects once both the worker ceiling
// and the `queues` backlog are exhausted. It queues before growing: a new
// worker is spawned only when a submission finds the queue full, and the
// same fixed-style queue selection applies.
type Limited struct{}

func init() {
	register("limited", "github.com/telepresenceio/go-extension/pkg/threadpool.Limited",
		func() ThreadPoolFactory { return &Limited{} })
}

// GetExecutor implements ThreadPoolFactory.
func (Limited) GetExecutor(ctx context.Context, u *extension.URL) (*ExecutorPool, error) {
	p := ParamsFromURL(u)
	return newPool(ctx, p.ThreadName, p, 1, true, true), nil
}

// Eager grows up to `threads` workers on demand. It builds the same pool
// as Limited: a submission is enqueued first, and a new worker is spawned
// only when the queue is full. It does not prefer spawning a worker over
// enqueuing while the queue still has room.
type Eager struct{}

func init() {
	register("eager", "github.com/telepresenceio/go-extension/pkg/threadpool.Eager",
		func() ThreadPoolFactory { return &Eager{} })
}

// GetExecutor implements ThreadPoolFactory.
func (Eager) GetExecutor(ctx context.Context, u *extension.URL) (*ExecutorPool, error) {
	p := ParamsFromURL(u)
	return newPool(ctx, p.ThreadName, p, 1, true, true), nil
}

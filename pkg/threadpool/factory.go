// Package threadpool implements four bounded/unbounded work-queue pool
// shapes (fixed, cached, limited, eager), each hosted as an instance of
// the ThreadPoolFactory extension point so a caller selects its executor
// shape by name through the registry, and the reporting rejection policy
// shared by all four. No adaptive ThreadPoolFactory class is registered.
package threadpool

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/datawire/dlib/dlog"
	"github.com/google/uuid"

	"github.com/telepresenceio/go-extension/pkg/extension"
	"github.com/telepresenceio/go-extension/pkg/supervisor"
)

// ThreadPoolFactory materializes an ExecutorPool from URL parameters. It
// is the concrete, wired home for the "thread-pool factories" plugin
// surface.
type ThreadPoolFactory interface {
	GetExecutor(ctx context.Context, u *extension.URL) (*ExecutorPool, error)
}

func init() {
	extension.Extensible[ThreadPoolFactory]("fixed")
}

func register(name, classPath string, ctor func() ThreadPoolFactory) {
	extension.RegisterClass(classPath, func(b extension.Builder) (interface{}, error) {
		return ctor(), nil
	})
	reg := extension.For[ThreadPoolFactory]()
	_ = reg.AddExtension(name, classPath)
}

// Params are the URL-derived knobs common to every shape.
type Params struct {
	ThreadName string
	Threads    int
	Queues     int
}

var (
	defaultParamsMu sync.RWMutex
	defaultParams   = Params{ThreadName: "goext", Threads: 200, Queues: 0}
)

// SetDefaultParams replaces the baseline Params a URL's threadname/threads/
// queues parameters override when present. This is the process-wide setter
// extconfig.Apply drives from GOEXT_THREAD_NAME/GOEXT_THREADS/GOEXT_QUEUES,
// the same way envconfig-sourced settings seed the teacher's own client
// defaults before any URL is resolved.
func SetDefaultParams(p Params) {
	defaultParamsMu.Lock()
	defer defaultParamsMu.Unlock()
	defaultParams = p
}

// ParamsFromURL reads threadname/threads/queues off u, applying the current
// default Params when a parameter is absent.
func ParamsFromURL(u *extension.URL) Params {
	defaultParamsMu.RLock()
	p := defaultParams
	defaultParamsMu.RUnlock()
	if v, ok := u.GetParameter("threadname"); ok && v != "" {
		p.ThreadName = v
	}
	if v, ok := u.GetParameter("threads"); ok && v != "" {
		fmt.Sscanf(v, "%d", &p.Threads)
	}
	if v, ok := u.GetParameter("queues"); ok && v != "" {
		fmt.Sscanf(v, "%d", &p.Queues)
	}
	return p
}

// Task is a unit of work a pool executes.
type Task func(ctx context.Context)

// ExecutorPool is a supervised, bounded or unbounded worker pool. All four
// factory shapes (Fixed/Cached/Limited/Eager) produce one, differing only
// in initial size, worker ceiling, and whether a full queue spawns a new
// worker. No shape has an idle keep-alive timeout.
type ExecutorPool struct {
	name    string
	params  Params
	sup     *supervisor.Supervisor
	queue   chan Task
	retryOffer bool // spawn a worker (up to cap) when a submission finds the queue full

	mu      sync.Mutex
	size    int
	active  int32
	cap     int // 0 = no ceiling on worker growth
	closed  bool
}

func newPool(ctx context.Context, name string, p Params, initial int, coreAsMax bool, retryOffer bool) *ExecutorPool {
	sup := supervisor.WithContext(ctx)
	sup.Logger = func(format string, args ...interface{}) {
		dlog.Debugf(ctx, format, args...)
	}

	var queue chan Task
	switch {
	case p.Queues == 0:
		queue = make(chan Task) // hand-off: submit blocks until a worker is free
	case p.Queues < 0:
		queue = make(chan Task, 1<<20) // unbounded FIFO, approximated with a very deep buffer
	default:
		queue = make(chan Task, p.Queues)
	}

	pool := &ExecutorPool{
		name:       name,
		params:     p,
		sup:        sup,
		queue:      queue,
		retryOffer: retryOffer,
	}
	if coreAsMax {
		pool.cap = p.Threads
	}

	go sup.Run() //nolint:errcheck // pool worker errors are reported per-submission, not via Run's return

	n := initial
	if n <= 0 {
		n = 1
	}
	for i := 0; i < n; i++ {
		pool.spawnWorker(ctx, i, nil)
	}
	return pool
}

func (p *ExecutorPool) spawnWorker(ctx context.Context, idx int, first Task) {
	p.mu.Lock()
	p.size++
	p.mu.Unlock()
	p.sup.Supervise(&supervisor.Worker{
		Name: fmt.Sprintf("%s-worker-%d", p.name, idx),
		Work: func(proc *supervisor.Process) error {
			proc.Ready()
			if first != nil {
				atomic.AddInt32(&p.active, 1)
				first(ctx)
				atomic.AddInt32(&p.active, -1)
			}
			for {
				select {
				case t, ok := <-p.queue:
					if !ok {
						return nil
					}
					atomic.AddInt32(&p.active, 1)
					t(ctx)
					atomic.AddInt32(&p.active, -1)
				case <-proc.Shutdown():
					return nil
				}
			}
		},
	})
}

// Submit runs task on the pool. If the pool's queue and, for the shapes
// that grow, its worker capacity are exhausted, Submit emits a diagnostic
// dump and returns a RejectedError.
func (p *ExecutorPool) Submit(ctx context.Context, task Task) error {
	select {
	case p.queue <- task:
		return nil
	default:
	}

	// The shared queue is full. Rather than race a freshly spawned worker
	// against the same queue, hand it the task directly as its first unit
	// of work so growth never silently loses a submission to a buffer
	// race.
	if p.retryOffer && p.canGrow() {
		p.spawnWorker(ctx, p.nextIndex(), task)
		return nil
	}

	if p.params.Queues == 0 {
		// Hand-off queue: block until a worker is free or the caller's
		// context is done.
		select {
		case p.queue <- task:
			return nil
		case <-ctx.Done():
			return p.reject(ctx, ctx.Err())
		}
	}

	return p.reject(ctx, nil)
}

func (p *ExecutorPool) canGrow() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cap == 0 || p.size < p.cap
}

func (p *ExecutorPool) nextIndex() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.size
}

// reject implements the reporting rejection policy: an actionable log
// line, a diagnostic dump file named with the pool name and a millisecond
// timestamp, then a Rejected error to the caller.
func (p *ExecutorPool) reject(ctx context.Context, cause error) error {
	dump := p.diagnosticDump()
	// Two rejections in the same pool can land in the same millisecond;
	// a uuid suffix keeps concurrent dumps from overwriting each other.
	path := fmt.Sprintf("%s-%d-%s.dump", p.name, time.Now().UnixMilli(), uuid.NewString())
	if err := os.WriteFile(path, []byte(dump), 0o600); err != nil {
		dlog.Errorf(ctx, "thread pool %s: failed to write rejection dump to %s: %v", p.name, path, err)
	} else {
		dlog.Errorf(ctx, "thread pool %s: rejected submission, diagnostic dump at %s", p.name, path)
	}
	return extension.NewRejected(p.name, cause)
}

func (p *ExecutorPool) diagnosticDump() string {
	p.mu.Lock()
	size := p.size
	p.mu.Unlock()
	active := atomic.LoadInt32(&p.active)

	buf := make([]byte, 1<<16)
	n := runtime.Stack(buf, true)

	var b strings.Builder
	fmt.Fprintf(&b, "pool: %s\n", p.name)
	fmt.Fprintf(&b, "size: %d\n", size)
	fmt.Fprintf(&b, "active: %d\n", active)
	fmt.Fprintf(&b, "queue length: %d, capacity: %d\n", len(p.queue), cap(p.queue))
	fmt.Fprintf(&b, "params: threadname=%s threads=%d queues=%d\n", p.params.ThreadName, p.params.Threads, p.params.Queues)
	fmt.Fprintf(&b, "--- goroutine stacks ---\n%s\n", buf[:n])
	return b.String()
}

// Shutdown marks the pool closed and asks its supervisor to wind down; the
// queue channel itself is left open.
func (p *ExecutorPool) Shutdown() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	p.mu.Unlock()
	p.sup.Shutdown()
}

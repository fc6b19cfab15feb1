package hook

import (
	"context"

	"github.com/gitvan-dev/gitvan/pkg/logger"
	"github.com/sourcegraph/conc/pool"
)

var poolLog = logger.New("hook:pool")

// Pool runs hook evaluations on a fixed set of workerCount workers
// (bounded via sourcegraph/conc, the same controlled-concurrency
// primitive the teacher uses for concurrent artifact downloads) pulling
// from a channel sized to queueMax. Enqueue rejects past that capacity
// with QueueFullError rather than blocking the caller, per spec §4.5's
// backpressure requirement.
type Pool struct {
	tasks  chan func(context.Context)
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// NewPool starts workerCount workers immediately; call Stop to halt them.
func NewPool(workerCount, queueMax int) *Pool {
	if workerCount <= 0 {
		workerCount = 1
	}
	if queueMax <= 0 {
		queueMax = 10000
	}
	ctx, cancel := context.WithCancel(context.Background())
	p := &Pool{
		tasks:  make(chan func(context.Context), queueMax),
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	go p.run(workerCount)
	return p
}

// run starts exactly workerCount long-lived workers on a conc pool and
// blocks until every one of them returns (i.e. until Stop cancels the
// pool's context). Concurrency is bounded by the worker count itself,
// not by conc's own max-goroutines gate — each worker pulls one task
// at a time directly off p.tasks, so a queued task never leaves the
// channel until a worker is actually free to run it.
func (p *Pool) run(workerCount int) {
	defer close(p.done)
	wp := pool.New().WithMaxGoroutines(workerCount)
	for i := 0; i < workerCount; i++ {
		wp.Go(p.worker)
	}
	wp.Wait()
}

func (p *Pool) worker() {
	for {
		select {
		case <-p.ctx.Done():
			return
		case task := <-p.tasks:
			task(p.ctx)
		}
	}
}

// Enqueue submits fn for eventual execution. It returns a QueueFullError
// if the pool has been stopped or the pending queue is already full;
// it never blocks.
func (p *Pool) Enqueue(fn func(context.Context)) error {
	select {
	case <-p.ctx.Done():
		return &QueueFullError{}
	default:
	}
	select {
	case p.tasks <- fn:
		return nil
	default:
		poolLog.Printf("queue full, rejecting enqueue")
		return &QueueFullError{}
	}
}

// Stop signals every worker to stop accepting new tasks and waits for
// in-flight tasks to finish. Tasks still sitting in the queue when Stop
// is called are not guaranteed to run.
func (p *Pool) Stop() {
	p.cancel()
	<-p.done
}

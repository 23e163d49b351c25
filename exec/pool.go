// File: exec/pool.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Pool: the fixed collection of workers started and stopped as a
// unit. Kernel queues are initialised eagerly at construction; any
// failure aborts construction.

package exec

import (
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"github.com/momentics/hioload-aio/api"
	"github.com/momentics/hioload-aio/control"
)

// Pool owns a fixed set of workers.
type Pool struct {
	running atomic.Bool
	workers []*Worker
	reg     *control.MetricsRegistry
}

type config struct {
	queueDepth uint32
	logger     *logrus.Logger
	metrics    *control.MetricsRegistry
	pinCPUs    bool
}

// Option configures a Pool.
type Option func(*config)

// WithQueueDepth sets the kernel queue depth requested per worker.
// Zero selects the platform default.
func WithQueueDepth(depth uint32) Option {
	return func(c *config) { c.queueDepth = depth }
}

// WithLogger sets the logger used by the pool's workers.
func WithLogger(l *logrus.Logger) Option {
	return func(c *config) { c.logger = l }
}

// WithMetrics attaches a registry that receives per-worker counters
// when the pool stops or PublishMetrics is called.
func WithMetrics(reg *control.MetricsRegistry) Option {
	return func(c *config) { c.metrics = reg }
}

// WithAffinity pins each worker thread to a logical CPU, worker i to
// CPU i modulo the CPU count.
func WithAffinity() Option {
	return func(c *config) { c.pinCPUs = true }
}

// NewPool creates a pool with the given worker count. A count of zero
// selects one worker per logical CPU, minimum one. Each worker's
// kernel queue is created eagerly; the first failure tears down the
// queues already created and is returned.
func NewPool(workers int, opts ...Option) (*Pool, error) {
	cfg := config{logger: logrus.StandardLogger()}
	for _, opt := range opts {
		opt(&cfg)
	}

	n := workers
	if n <= 0 {
		n = runtime.NumCPU()
		if n < 1 {
			n = 1
		}
	}

	if err := platformStartup(); err != nil {
		return nil, err
	}

	p := &Pool{
		workers: make([]*Worker, 0, n),
		reg:     cfg.metrics,
	}
	for i := 0; i < n; i++ {
		mux, err := newMuxer(cfg.queueDepth)
		if err != nil {
			for _, w := range p.workers {
				w.mux.Close()
			}
			platformCleanup()
			return nil, fmt.Errorf("worker %d muxer init: %w", i, err)
		}
		pin := -1
		if cfg.pinCPUs {
			pin = i % runtime.NumCPU()
		}
		p.workers = append(p.workers, newWorker(i, mux, cfg.logger.WithField("worker", i), pin))
	}
	return p, nil
}

// WorkerCount returns the number of workers.
func (p *Pool) WorkerCount() int { return len(p.workers) }

// Worker returns the i-th worker.
func (p *Pool) Worker(i int) *Worker { return p.workers[i] }

// IsRunning reports whether Run is executing.
func (p *Pool) IsRunning() bool { return p.running.Load() }

// Run starts one OS thread per worker and blocks until all workers
// have stopped. Calling Run on a running pool returns immediately.
func (p *Pool) Run() {
	if !p.running.CompareAndSwap(false, true) {
		return
	}
	var wg sync.WaitGroup
	for _, w := range p.workers {
		wg.Add(1)
		go func(w *Worker) {
			defer wg.Done()
			w.Run()
		}(w)
	}
	wg.Wait()
	if p.reg != nil {
		p.PublishMetrics()
	}
	p.running.Store(false)
}

// Stop requests every worker to stop and returns immediately. Workers
// exit within one loop wait period.
func (p *Pool) Stop() {
	for _, w := range p.workers {
		w.Stop()
	}
}

// Dispatch invokes factory once per worker and schedules each
// resulting task on its worker. Not concurrent-safe and not callable
// while the pool runs.
func (p *Pool) Dispatch(factory func() Spawnable) error {
	if p.running.Load() {
		return api.ErrPoolRunning
	}
	for _, w := range p.workers {
		w.Schedule(factory())
	}
	return nil
}

// PublishMetrics writes every worker's counters into the attached
// registry.
func (p *Pool) PublishMetrics() {
	if p.reg == nil {
		return
	}
	for i, w := range p.workers {
		c := w.Stats()
		c.Publish(p.reg, fmt.Sprintf("worker.%d", i))
	}
}

// Close releases the kernel queues. The pool must not be running.
func (p *Pool) Close() error {
	if p.running.Load() {
		return api.ErrPoolRunning
	}
	var first error
	for _, w := range p.workers {
		if err := w.mux.Close(); err != nil && first == nil {
			first = err
		}
	}
	platformCleanup()
	return first
}

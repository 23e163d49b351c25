// File: exec/worker.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Worker: one OS thread paired with one kernel completion queue and
// one wake list. The event loop blocks on the queue for up to one
// second, drains completions into the wake list, swaps the list out
// and resumes each woken frame. The bounded wait is what makes Stop
// effective without any cross-thread wake mechanism.

package exec

import (
	"runtime"
	"sync/atomic"
	"time"

	"github.com/eapache/queue"
	"github.com/sirupsen/logrus"
	"golang.org/x/sys/cpu"

	"github.com/momentics/hioload-aio/affinity"
	"github.com/momentics/hioload-aio/control"
	"github.com/momentics/hioload-aio/reactor"
)

// loopWait bounds each blocking wait on the kernel queue. Stop is
// observed within one loopWait period.
const loopWait = time.Second

// Worker owns one kernel completion queue and runs the event loop for
// the task frames pinned to it. All methods except Stop, IsRunning and
// ThreadID must be called from the worker's own thread (or before the
// worker has started).
type Worker struct {
	id       int
	mux      reactor.Muxer
	wake     *queue.Queue
	pending  map[uint64]*Completion
	token    uint64
	counters control.Counters
	log      *logrus.Entry
	pinCPU   int

	running  atomic.Bool
	threadID atomic.Uint64

	_ cpu.CacheLinePad

	shouldStop atomic.Bool
}

func newWorker(id int, mux reactor.Muxer, log *logrus.Entry, pinCPU int) *Worker {
	return &Worker{
		id:      id,
		mux:     mux,
		wake:    queue.New(),
		pending: make(map[uint64]*Completion),
		log:     log,
		pinCPU:  pinCPU,
	}
}

// Muxer returns the kernel completion queue owned by this worker.
func (w *Worker) Muxer() reactor.Muxer { return w.mux }

// IsRunning reports whether the worker loop is executing.
func (w *Worker) IsRunning() bool { return w.running.Load() }

// ThreadID returns the OS thread id of the worker. Valid only while
// the worker is running.
func (w *Worker) ThreadID() uint64 { return w.threadID.Load() }

// Stop requests the worker to stop. Non-blocking; the loop exits
// within one wait period.
func (w *Worker) Stop() { w.shouldStop.Store(true) }

// Schedule transfers ownership of a detached top-level frame into the
// wake list and posts a no-op completion so a blocked wait returns
// promptly. Not concurrent-safe: callers are either the worker's own
// thread or the runtime before the worker has started. Scheduling onto
// a worker that never starts leaves the task unreaped until the worker
// runs.
func (w *Worker) Schedule(s Spawnable) {
	fr := s.Detach()
	if fr == nil {
		return
	}
	fr.worker = w
	w.wake.Add(fr)
	w.counters.TasksScheduled++
	if err := w.mux.Wake(); err != nil {
		w.log.WithError(err).Warn("wakeup post failed")
	} else {
		w.counters.WakeupPosts++
	}
}

// Arm registers a completion record for an operation about to be
// submitted and returns the token to tag the kernel request with.
// Token zero is reserved for no-op wake-ups.
func (w *Worker) Arm(c *Completion, fr *Frame) uint64 {
	w.token++
	c.frame = fr
	w.pending[w.token] = c
	return w.token
}

// ArmAt registers a completion record under a caller-chosen token.
// Used on Windows, where the kernel echoes the OVERLAPPED pointer
// back as the tag.
func (w *Worker) ArmAt(token uint64, c *Completion, fr *Frame) {
	c.frame = fr
	w.pending[token] = c
}

// Unarm withdraws a registration whose operation completed or failed
// synchronously and will produce no kernel completion.
func (w *Worker) Unarm(token uint64) {
	delete(w.pending, token)
}

// NoteSyncCompletion records an operation that finished inside the
// arming call without touching the wake list.
func (w *Worker) NoteSyncCompletion() {
	w.counters.SyncCompletions++
}

// Stats returns a copy of the worker's counters. Taken while the
// worker runs, the copy is approximate.
func (w *Worker) Stats() control.Counters { return w.counters }

// wakeLen reports the current wake list length. Test hook.
func (w *Worker) wakeLen() int { return w.wake.Length() }

// Run executes the event loop on the calling goroutine, which is
// locked to its OS thread for the duration. Calling Run on an
// already-running worker is a no-op.
func (w *Worker) Run() {
	if !w.running.CompareAndSwap(false, true) {
		return
	}
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	if w.pinCPU >= 0 {
		if err := affinity.Pin(w.pinCPU); err != nil {
			w.log.WithError(err).Warn("cpu pin failed")
		}
	}

	w.threadID.Store(osThreadID())
	w.log.Debug("worker started")

	events := make([]reactor.Event, 256)
	scratch := make([]*Frame, 0, 64)

	for !w.shouldStop.Load() {
		// Block for up to one second, then drain everything that is
		// immediately available.
		timeout := loopWait
		for {
			n, err := w.mux.Wait(events, timeout)
			if err != nil {
				w.log.WithError(err).Error("muxer wait failed")
				time.Sleep(time.Millisecond)
				break
			}
			for i := 0; i < n; i++ {
				ev := events[i]
				if ev.Token == 0 {
					// No-op wake: its only effect was returning from
					// the blocking wait.
					continue
				}
				c := w.pending[ev.Token]
				if c == nil {
					continue
				}
				delete(w.pending, ev.Token)
				c.Res = ev.Res
				c.Flags = ev.Flags
				c.Bytes = ev.Bytes
				w.wake.Add(c.frame)
				w.counters.CompletionsDrained++
			}
			if n < len(events) {
				break
			}
			timeout = 0
		}

		// Swap the wake list out so frames resumed below can enqueue
		// for the next iteration.
		for w.wake.Length() > 0 {
			scratch = append(scratch, w.wake.Remove().(*Frame))
		}
		for _, fr := range scratch {
			bottom := fr.bottom
			w.counters.TasksResumed++
			resumeChain(fr)
			if bottom.state == StateDone {
				bottom.release()
			}
		}
		scratch = scratch[:0]
	}

	w.log.Debug("worker stopped")
	w.threadID.Store(0)
	// The stop flag is cleared on exit rather than on entry, so a Stop
	// issued before the loop started is still honoured.
	w.shouldStop.Store(false)
	w.running.Store(false)
}

//go:build linux
// +build linux

// File: exec/pool_linux_test.go
// Event-loop tests against a real io_uring muxer.

package exec

import (
	"runtime"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/momentics/hioload-aio/api"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetLevel(logrus.ErrorLevel)
	return l
}

func newTestPool(t *testing.T, workers int) *Pool {
	t.Helper()
	p, err := NewPool(workers, WithLogger(quietLogger()), WithQueueDepth(256))
	if err != nil {
		t.Skipf("io_uring unavailable: %v", err)
	}
	return p
}

func TestNewPoolZeroWorkers(t *testing.T) {
	p := newTestPool(t, 0)
	defer p.Close()

	want := runtime.NumCPU()
	if want < 1 {
		want = 1
	}
	if p.WorkerCount() != want {
		t.Fatalf("WorkerCount = %d, want %d", p.WorkerCount(), want)
	}
}

func TestStopFromWithin(t *testing.T) {
	p := newTestPool(t, 1)
	defer p.Close()

	p.Dispatch(func() Spawnable {
		return New[Void](func(fr *Frame) Step {
			p.Stop()
			return ReturnVoid()
		})
	})

	start := time.Now()
	p.Run()
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Fatalf("Run returned after %v, want within the loop wait period", elapsed)
	}
	if p.IsRunning() {
		t.Fatal("pool still marked running after Run returned")
	}
	for i := 0; i < p.WorkerCount(); i++ {
		if p.Worker(i).IsRunning() {
			t.Fatalf("worker %d still running", i)
		}
	}
}

func TestScheduleFromTask(t *testing.T) {
	p := newTestPool(t, 1)
	defer p.Close()

	var order []string
	sibling := func() Task[Void] {
		return New[Void](func(fr *Frame) Step {
			order = append(order, "sibling")
			p.Stop()
			return ReturnVoid()
		})
	}

	p.Dispatch(func() Spawnable {
		return New[Void](func(fr *Frame) Step {
			order = append(order, "first")
			if got := fr.Worker().ThreadID(); got == 0 {
				t.Error("worker thread id is zero inside a task")
			}
			Spawn(fr, sibling())
			return ReturnVoid()
		})
	})

	p.Run()
	if len(order) != 2 || order[0] != "first" || order[1] != "sibling" {
		t.Fatalf("order = %v, want [first sibling]", order)
	}
}

func TestSyncStepSkipsWakeList(t *testing.T) {
	p := newTestPool(t, 1)
	defer p.Close()

	var before, after = -1, -1
	p.Dispatch(func() Spawnable {
		return New[Void](func(fr *Frame) Step {
			switch fr.PC {
			case 0:
				before = fr.Worker().wakeLen()
				fr.PC = 1
				// A synchronously completed awaiter returns Ready: the
				// body re-enters without touching the wake list.
				return Ready()
			default:
				after = fr.Worker().wakeLen()
				p.Stop()
				return ReturnVoid()
			}
		})
	})

	p.Run()
	if before != after {
		t.Fatalf("wake list changed across a synchronous step: %d -> %d", before, after)
	}
}

func TestDispatchWhileRunningRejected(t *testing.T) {
	p := newTestPool(t, 1)
	defer p.Close()

	done := make(chan struct{})
	go func() {
		p.Run()
		close(done)
	}()
	for !p.IsRunning() {
		time.Sleep(time.Millisecond)
	}

	err := p.Dispatch(func() Spawnable { return New[Void](func(fr *Frame) Step { return ReturnVoid() }) })
	if err != api.ErrPoolRunning {
		t.Fatalf("Dispatch while running = %v, want ErrPoolRunning", err)
	}

	p.Stop()
	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("Run did not return after Stop")
	}
}

func TestRunIdempotent(t *testing.T) {
	p := newTestPool(t, 1)
	defer p.Close()

	done := make(chan struct{})
	go func() {
		p.Run()
		close(done)
	}()
	for !p.IsRunning() {
		time.Sleep(time.Millisecond)
	}

	// A second Run on a running pool returns immediately.
	returned := make(chan struct{})
	go func() {
		p.Run()
		close(returned)
	}()
	select {
	case <-returned:
	case <-time.After(time.Second):
		t.Fatal("second Run did not return immediately")
	}

	p.Stop()
	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("Run did not return after Stop")
	}
}

func TestSchedulingCounters(t *testing.T) {
	p := newTestPool(t, 1)
	defer p.Close()

	p.Dispatch(func() Spawnable {
		return New[Void](func(fr *Frame) Step {
			p.Stop()
			return ReturnVoid()
		})
	})
	p.Run()

	stats := p.Worker(0).Stats()
	if stats.TasksScheduled != 1 {
		t.Fatalf("TasksScheduled = %d, want 1", stats.TasksScheduled)
	}
	if stats.TasksResumed < 1 {
		t.Fatalf("TasksResumed = %d, want >= 1", stats.TasksResumed)
	}
}

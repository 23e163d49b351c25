// File: exec/task.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Task handles: copyable, reference-counted references to task frames.
// Reference counts are plain integers; a handle must only be touched
// from the worker that owns its frame.

package exec

import "github.com/momentics/hioload-aio/api"

// Void is the result type of tasks that return nothing.
type Void struct{}

// Task is a handle to a task frame returning T.
type Task[T any] struct {
	frame *Frame
}

// Spawnable is any task handle whose frame can be transferred to a
// scheduler without touching the reference count.
type Spawnable interface {
	Detach() *Frame
}

// New creates a task in the initially-suspended state. The returned
// handle holds the frame's single reference.
func New[T any](body Body) Task[T] {
	return Task[T]{frame: newFrame(body)}
}

// IsNil reports whether the handle is empty.
func (t Task[T]) IsNil() bool { return t.frame == nil }

// IsReady reports whether the task has completed.
func (t Task[T]) IsReady() bool { return t.frame != nil && t.frame.state == StateDone }

// Clone returns a second handle to the same frame, incrementing the
// reference count.
func (t Task[T]) Clone() Task[T] {
	if t.frame != nil {
		t.frame.acquire()
	}
	return t
}

// Release drops this handle's reference. The frame is destroyed when
// the last reference is dropped.
func (t *Task[T]) Release() {
	if fr := t.frame; fr != nil {
		t.frame = nil
		fr.release()
	}
}

// Detach transfers the frame out of this handle without changing the
// reference count. The caller becomes responsible for the reference
// this handle held.
func (t Task[T]) Detach() *Frame { return t.frame }

// Result moves the task's result out of a done frame and releases the
// handle. A task that terminated by panicking re-raises the captured
// failure into the caller.
func (t *Task[T]) Result() T {
	fr := t.frame
	if fr == nil {
		panic(api.ErrEmptyTask)
	}
	t.frame = nil
	failure := fr.failure
	var v T
	if failure == nil && fr.result != nil {
		v = fr.result.(T)
	}
	fr.release()
	if failure != nil {
		panic(failure)
	}
	return v
}

// Await suspends the calling frame and transfers control directly to
// the task's frame. When the task is already done this is a no-suspend
// fast path: the caller's body is re-entered immediately and can read
// the result. Otherwise the callee's parent pointer is set to the
// caller and it inherits the caller's stack bottom and worker, so the
// scheduler can always reach the top of the chain.
func Await[T any](fr *Frame, t Task[T]) Step {
	child := t.frame
	if child == nil {
		panic(api.ErrEmptyTask)
	}
	if child.state == StateDone {
		return Ready()
	}
	child.parent = fr
	child.bottom = fr.bottom
	child.worker = fr.worker
	return Step{kind: stepAwait, child: child}
}

// Spawn schedules a detached sibling task onto the worker that owns
// fr. This is the only sanctioned way to start a new top-level task
// from inside a running task.
func Spawn(fr *Frame, s Spawnable) {
	w := fr.worker
	if w == nil {
		panic(api.ErrNotWorker)
	}
	w.Schedule(s)
}

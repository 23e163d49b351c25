// File: exec/task_test.go
// White-box tests for the frame trampoline: await chains, result
// moves, reference counts and failure propagation, all driven without
// a kernel queue.

package exec

import (
	"errors"
	"testing"

	"github.com/momentics/hioload-aio/api"
)

func leaf(v int) Task[int] {
	return New[int](func(fr *Frame) Step {
		return Return(v)
	})
}

func middle() Task[int] {
	var child Task[int]
	return New[int](func(fr *Frame) Step {
		switch fr.PC {
		case 0:
			child = leaf(42)
			fr.PC = 1
			return Await(fr, child)
		default:
			return Return(child.Result())
		}
	})
}

func top(got *int) Task[Void] {
	var child Task[int]
	return New[Void](func(fr *Frame) Step {
		switch fr.PC {
		case 0:
			child = middle()
			fr.PC = 1
			return Await(fr, child)
		default:
			*got = child.Result()
			return ReturnVoid()
		}
	})
}

func TestThreeLevelAwaitChain(t *testing.T) {
	got := 0
	task := top(&got)
	keep := task.Clone()

	fr := task.Detach()
	resumeChain(fr)

	if fr.state != StateDone {
		t.Fatalf("bottom state = %v, want done", fr.state)
	}
	if got != 42 {
		t.Fatalf("result = %d, want 42", got)
	}
	// The worker's reference (taken over from Detach) plus our clone.
	if fr.refs != 2 {
		t.Fatalf("refs = %d, want 2", fr.refs)
	}
	fr.release() // what the worker does once the bottom is done
	if fr.refs != 1 {
		t.Fatalf("refs after worker release = %d, want 1", fr.refs)
	}
	keep.Release()
}

func TestAwaitDoneTaskFastPath(t *testing.T) {
	done := leaf(7)
	dfr := done.Detach()
	resumeChain(dfr)
	if dfr.state != StateDone {
		t.Fatal("leaf did not complete")
	}

	got := 0
	reattached := Task[int]{frame: dfr}
	caller := New[Void](func(fr *Frame) Step {
		switch fr.PC {
		case 0:
			fr.PC = 1
			return Await(fr, reattached)
		default:
			got = reattached.Result()
			return ReturnVoid()
		}
	})
	cfr := caller.Detach()
	resumeChain(cfr)
	if cfr.state != StateDone || got != 7 {
		t.Fatalf("fast path: state=%v got=%d", cfr.state, got)
	}
	cfr.release()
}

func TestPanicPropagatesThroughAwait(t *testing.T) {
	boom := errors.New("boom")
	var caught any

	child := New[int](func(fr *Frame) Step {
		panic(boom)
	})
	parent := New[Void](func(fr *Frame) Step {
		switch fr.PC {
		case 0:
			fr.PC = 1
			return Await(fr, child)
		default:
			func() {
				defer func() { caught = recover() }()
				child.Result()
			}()
			return ReturnVoid()
		}
	})

	fr := parent.Detach()
	resumeChain(fr)
	if fr.state != StateDone {
		t.Fatal("parent did not complete")
	}
	if caught != boom {
		t.Fatalf("caught = %v, want %v", caught, boom)
	}
	fr.release()
}

func TestUnobservedFailureDroppedAtRelease(t *testing.T) {
	task := New[Void](func(fr *Frame) Step {
		panic("nobody reads this")
	})
	fr := task.Detach()
	resumeChain(fr)
	if fr.state != StateDone {
		t.Fatal("task did not complete")
	}
	// Dropping the last reference must not re-raise.
	fr.release()
}

func TestResultOnEmptyHandlePanics(t *testing.T) {
	defer func() {
		if r := recover(); r != api.ErrEmptyTask {
			t.Fatalf("recover = %v, want ErrEmptyTask", r)
		}
	}()
	var task Task[int]
	task.Result()
}

var sharedValue = 42

// borrowed returns a pointer to externally-owned storage, the
// reference-returning task variant.
func borrowed() Task[*int] {
	return New[*int](func(fr *Frame) Step {
		return Return(&sharedValue)
	})
}

func TestBorrowedReferenceResult(t *testing.T) {
	var got *int
	var child Task[*int]
	caller := New[Void](func(fr *Frame) Step {
		switch fr.PC {
		case 0:
			child = borrowed()
			fr.PC = 1
			return Await(fr, child)
		default:
			got = child.Result()
			return ReturnVoid()
		}
	})
	fr := caller.Detach()
	resumeChain(fr)
	if got == nil || *got != 42 {
		t.Fatalf("borrowed result = %v", got)
	}
	if got != &sharedValue {
		t.Fatal("result must alias the external storage")
	}
	fr.release()
}

func TestCloneReleaseCounting(t *testing.T) {
	task := leaf(1)
	fr := task.frame
	c1 := task.Clone()
	c2 := task.Clone()
	if fr.refs != 3 {
		t.Fatalf("refs = %d, want 3", fr.refs)
	}
	c1.Release()
	c2.Release()
	if fr.refs != 1 {
		t.Fatalf("refs = %d, want 1", fr.refs)
	}
	task.Release()
}

func TestStackBottomLinks(t *testing.T) {
	var child Task[int]
	var gotBottom, gotParent *Frame
	parent := New[Void](func(fr *Frame) Step {
		switch fr.PC {
		case 0:
			child = leaf(5)
			fr.PC = 1
			return Await(fr, child)
		default:
			gotBottom = child.frame.bottom
			gotParent = child.frame.parent
			child.Result()
			return ReturnVoid()
		}
	})
	fr := parent.Detach()
	if fr.bottom != fr {
		t.Fatal("fresh frame is not its own bottom")
	}
	resumeChain(fr)
	if gotBottom != fr {
		t.Fatal("child did not inherit the caller's stack bottom")
	}
	if gotParent == nil || gotParent.bottom != fr {
		t.Fatal("child's parent link does not reach the stack bottom")
	}
	fr.release()
}

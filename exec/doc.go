// File: exec/doc.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

// Package exec is the task runtime: stackless task frames multiplexed
// onto a fixed pool of workers, each bound to one kernel completion
// queue.
//
// A task body is an explicit state machine invoked once per resume.
// The frame's PC field records the resume point across invocations and
// the body's closure carries the live locals:
//
//	func answer() exec.Task[int] {
//		return exec.New[int](func(fr *exec.Frame) exec.Step {
//			return exec.Return(42)
//		})
//	}
//
//	func caller() exec.Task[exec.Void] {
//		var child exec.Task[int]
//		return exec.New[exec.Void](func(fr *exec.Frame) exec.Step {
//			switch fr.PC {
//			case 0:
//				child = answer()
//				fr.PC = 1
//				return exec.Await(fr, child)
//			default:
//				v := child.Result()
//				_ = v
//				return exec.ReturnVoid()
//			}
//		})
//	}
//
// A body returns a Step at every suspension point: Await to step into
// another task, an I/O awaiter's Suspend result to wait on the kernel,
// Ready to continue immediately, and Return to complete. Control
// transfers between frames without re-entering the scheduler; the
// worker only ever sees the suspension that reaches the bottom of the
// chain.
//
// Frames are owned by exactly one worker. Reference counts are plain
// integers, handles must not be shared across workers, and no locks
// exist anywhere on the task path.
package exec

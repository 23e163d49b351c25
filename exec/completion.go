// File: exec/completion.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package exec

// Completion is the record attached to one in-flight kernel operation.
// It is owned by the I/O awaiter that armed the operation and must not
// move between arming and resumption: the worker writes the OS result
// into it exactly once, then the awaiter reads it exactly once.
//
// On Linux, Res carries the CQE result (negative errno on failure) and
// Flags the CQE flags. On Windows, Res carries the operation's error
// code (zero on success) and Bytes the transferred byte count.
type Completion struct {
	Res   int32
	Flags uint32
	Bytes uint32

	frame *Frame
}

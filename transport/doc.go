//go:build linux || windows
// +build linux windows

// File: transport/doc.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

// Package transport provides TCP sockets driven by the exec task
// runtime. Asynchronous operations return awaiters: calling Suspend
// from a task body arms the kernel request tagged with a completion
// record, and the owning worker resumes the task when the kernel
// reports completion. Operations that complete synchronously resume
// inline and never touch the worker's wake list.
//
// A socket is pinned to the worker on which its owning task runs; all
// operations on it must execute on that worker. I/O failures are
// returned as *api.OpError values, never panics.
package transport

// File: api/doc.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

// Package api defines the error types shared across the hioload-aio
// library. Kernel-level failures are carried as *OpError values so that
// callers can inspect the originating operation and errno; they are
// never raised as panics.
package api

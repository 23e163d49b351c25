// File: control/doc.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

// Package control provides runtime observability: a thread-safe
// metrics registry and the per-worker event-loop counters that feed
// it.
package control

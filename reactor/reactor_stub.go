//go:build !linux && !windows
// +build !linux,!windows

// File: reactor/reactor_stub.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Stub for unsupported platforms. The runtime targets Linux (io_uring)
// and Windows (IOCP) only.

package reactor

import "github.com/momentics/hioload-aio/api"

// NewStub reports that no completion muxer exists on this platform.
func NewStub() (Muxer, error) {
	return nil, api.ErrNotSupported
}

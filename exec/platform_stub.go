//go:build !linux && !windows
// +build !linux,!windows

// File: exec/platform_stub.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package exec

import (
	"github.com/momentics/hioload-aio/reactor"
)

func newMuxer(depth uint32) (reactor.Muxer, error) {
	return reactor.NewStub()
}

func osThreadID() uint64 { return 0 }

func platformStartup() error { return nil }

func platformCleanup() {}

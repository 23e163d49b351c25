//go:build linux
// +build linux

// File: exec/platform_linux.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package exec

import (
	"golang.org/x/sys/unix"

	"github.com/momentics/hioload-aio/reactor"
)

func newMuxer(depth uint32) (reactor.Muxer, error) {
	return reactor.NewRing(depth)
}

func osThreadID() uint64 {
	return uint64(unix.Gettid())
}

func platformStartup() error { return nil }

func platformCleanup() {}

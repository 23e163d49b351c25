//go:build windows
// +build windows

// File: exec/platform_windows.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package exec

import (
	"golang.org/x/sys/windows"

	"github.com/momentics/hioload-aio/reactor"
)

func newMuxer(depth uint32) (reactor.Muxer, error) {
	return reactor.NewPort()
}

func osThreadID() uint64 {
	return uint64(windows.GetCurrentThreadId())
}

// platformStartup initialises WinSock for the pool's lifetime.
func platformStartup() error {
	return reactor.StartupWSA()
}

func platformCleanup() {
	reactor.CleanupWSA()
}

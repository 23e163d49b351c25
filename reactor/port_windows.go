//go:build windows
// +build windows

// File: reactor/port_windows.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// I/O completion port muxer. Completion tags are the OVERLAPPED
// pointers the kernel hands back; a null OVERLAPPED marks the no-op
// wake-up posted by Wake.

package reactor

import (
	"errors"
	"fmt"
	"syscall"
	"time"
	"unsafe"

	"golang.org/x/sys/windows"
)

// Port is the IOCP completion muxer for one worker.
type Port struct {
	handle windows.Handle
	closed bool
}

var _ Muxer = (*Port)(nil)

// NewPort creates an I/O completion port with single-thread
// concurrency.
func NewPort() (*Port, error) {
	h, err := windows.CreateIoCompletionPort(windows.InvalidHandle, 0, 0, 1)
	if err != nil {
		return nil, fmt.Errorf("CreateIoCompletionPort: %w", err)
	}
	return &Port{handle: h}, nil
}

// Associate registers a socket or file handle with the port.
func (p *Port) Associate(h windows.Handle) error {
	if _, err := windows.CreateIoCompletionPort(h, p.handle, 0, 0); err != nil {
		return fmt.Errorf("CreateIoCompletionPort associate: %w", err)
	}
	return nil
}

// Wait implements Muxer. The first dequeue blocks up to timeout; the
// rest are non-blocking. A completion that dequeued with an error
// carries the operation's error code in Res.
func (p *Port) Wait(evs []Event, timeout time.Duration) (int, error) {
	n := 0
	ms := uint32(timeout / time.Millisecond)

	for n < len(evs) {
		var bytes uint32
		var key uintptr
		var ovlp *windows.Overlapped

		err := windows.GetQueuedCompletionStatus(p.handle, &bytes, &key, &ovlp, ms)
		ms = 0 // only the first dequeue blocks

		if err != nil {
			if ovlp == nil {
				// The wait itself failed: timeout or dead port.
				var errno syscall.Errno
				if errors.As(err, &errno) && errno == windows.WAIT_TIMEOUT {
					break
				}
				if p.closed {
					break
				}
				return n, fmt.Errorf("GetQueuedCompletionStatus: %w", err)
			}
			// A completion dequeued with a failed operation.
			var errno syscall.Errno
			if !errors.As(err, &errno) {
				errno = windows.ERROR_OPERATION_ABORTED
			}
			evs[n] = Event{
				Token: uint64(uintptr(unsafe.Pointer(ovlp))),
				Res:   int32(errno),
				Bytes: bytes,
			}
			n++
			continue
		}

		if ovlp == nil {
			// No-op posted by Wake: nothing to deliver, but the wait
			// has been interrupted, which is the whole point.
			continue
		}
		evs[n] = Event{
			Token: uint64(uintptr(unsafe.Pointer(ovlp))),
			Bytes: bytes,
		}
		n++
	}
	return n, nil
}

// Wake posts a completion with a null OVERLAPPED.
func (p *Port) Wake() error {
	return windows.PostQueuedCompletionStatus(p.handle, 0, 0, nil)
}

// Close releases the completion port handle.
func (p *Port) Close() error {
	if p.closed {
		return nil
	}
	p.closed = true
	return windows.CloseHandle(p.handle)
}

// StartupWSA initialises the WinSock library. Paired with CleanupWSA
// at pool teardown.
func StartupWSA() error {
	var data windows.WSAData
	if err := windows.WSAStartup(uint32(0x0202), &data); err != nil {
		return fmt.Errorf("WSAStartup: %w", err)
	}
	return nil
}

// CleanupWSA releases the WinSock library.
func CleanupWSA() {
	_ = windows.WSACleanup()
}

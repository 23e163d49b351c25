//go:build linux || windows
// +build linux windows

// File: transport/tcp.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Platform-neutral socket state. The socket handle is carried as a
// uintptr; platform files cast it to their native descriptor type.

package transport

import (
	"time"

	"github.com/momentics/hioload-aio/inet"
)

// invalidFD marks a closed or empty socket.
const invalidFD = ^uintptr(0)

// TcpServer is a listening TCP socket. It can only be used from inside
// worker tasks.
type TcpServer struct {
	fd   uintptr
	addr inet.InetAddr
}

// NewTcpServer creates an empty, unbound server.
func NewTcpServer() *TcpServer {
	return &TcpServer{fd: invalidFD}
}

// LocalAddr returns the bound address. Valid only after Bind.
func (s *TcpServer) LocalAddr() inet.InetAddr { return s.addr }

// Close shuts the listening socket down. Pending accepts fail with an
// OS-level error.
func (s *TcpServer) Close() {
	if s.fd != invalidFD {
		closeFD(s.fd)
		s.fd = invalidFD
	}
}

// TcpStream is one TCP connection. Like the server, it is pinned to
// the worker whose tasks operate on it.
type TcpStream struct {
	fd   uintptr
	peer inet.InetAddr
}

// NewTcpStream creates an empty, unconnected stream.
func NewTcpStream() *TcpStream {
	return &TcpStream{fd: invalidFD}
}

// PeerAddr returns the remote address of the connection.
func (t *TcpStream) PeerAddr() inet.InetAddr { return t.peer }

// Close closes the connection. Pending operations on it fail with an
// OS-level error. Closing an empty stream does nothing.
func (t *TcpStream) Close() {
	if t.fd != invalidFD {
		closeFD(t.fd)
		t.fd = invalidFD
	}
}

// SetSendTimeout sets the send timeout; zero or negative means never.
func (t *TcpStream) SetSendTimeout(d time.Duration) error {
	return t.setTimeoutMs(sendTimeoutOpt, clampTimeoutMs(d))
}

// SetReceiveTimeout sets the receive timeout; zero or negative means
// never.
func (t *TcpStream) SetReceiveTimeout(d time.Duration) error {
	return t.setTimeoutMs(recvTimeoutOpt, clampTimeoutMs(d))
}

func clampTimeoutMs(d time.Duration) uint32 {
	ms := d.Milliseconds()
	if ms < 0 {
		ms = 0
	}
	return uint32(ms)
}

//go:build linux
// +build linux

// File: transport/aio_linux.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Asynchronous socket operations on io_uring. Each awaiter owns the
// completion record and any sockaddr memory referenced by its SQE; the
// awaiter lives in the task body's closure, so the memory stays put
// for the whole in-flight window. SQEs are submitted by the worker
// when the task chain suspends into the event loop.

package transport

import (
	"syscall"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/momentics/hioload-aio/api"
	"github.com/momentics/hioload-aio/exec"
	"github.com/momentics/hioload-aio/inet"
	"github.com/momentics/hioload-aio/reactor"
)

// AcceptAwaiter mediates one asynchronous accept.
type AcceptAwaiter struct {
	c    exec.Completion
	srv  *TcpServer
	rsa  unix.RawSockaddrAny
	rlen uint32
}

// AcceptAsync starts accepting one connection. The returned awaiter
// must be suspended on exactly once.
func (s *TcpServer) AcceptAsync() *AcceptAwaiter {
	return &AcceptAwaiter{srv: s}
}

// Suspend arms the kernel accept. An arming failure completes the
// awaiter inline; the task is not suspended.
func (aw *AcceptAwaiter) Suspend(fr *exec.Frame) exec.Step {
	w := fr.Worker()
	ring := w.Muxer().(*reactor.Ring)

	aw.rlen = uint32(unsafe.Sizeof(aw.rsa))
	tok := w.Arm(&aw.c, fr)
	if err := ring.PrepAccept(int32(aw.srv.fd), &aw.rsa, &aw.rlen, unix.SOCK_CLOEXEC, tok); err != nil {
		w.Unarm(tok)
		aw.c.Res = negErrno(err)
		w.NoteSyncCompletion()
		return exec.Ready()
	}
	return exec.Pend()
}

// Result returns the accepted connection or the OS error.
func (aw *AcceptAwaiter) Result() (*TcpStream, error) {
	if aw.c.Res < 0 {
		return nil, api.NewOpError("accept", syscall.Errno(-aw.c.Res))
	}
	return &TcpStream{fd: uintptr(aw.c.Res), peer: fromRawSockaddr(&aw.rsa)}, nil
}

// ConnectAwaiter mediates one asynchronous connect.
type ConnectAwaiter struct {
	c      exec.Completion
	stream *TcpStream
	target inet.InetAddr
	newFD  uintptr
	rsa    unix.RawSockaddrAny
}

// ConnectAsync starts connecting to addr. The stream is not modified
// unless the connection is established.
func (t *TcpStream) ConnectAsync(addr inet.InetAddr) *ConnectAwaiter {
	return &ConnectAwaiter{stream: t, target: addr, newFD: invalidFD}
}

// Suspend creates a fresh socket and arms the kernel connect.
func (aw *ConnectAwaiter) Suspend(fr *exec.Frame) exec.Step {
	w := fr.Worker()
	ring := w.Muxer().(*reactor.Ring)

	fd, err := unix.Socket(familyOf(aw.target), unix.SOCK_STREAM|unix.SOCK_CLOEXEC, unix.IPPROTO_TCP)
	if err != nil {
		aw.c.Res = negErrno(err)
		w.NoteSyncCompletion()
		return exec.Ready()
	}
	aw.newFD = uintptr(fd)

	salen := rawSockaddrOf(aw.target, &aw.rsa)
	tok := w.Arm(&aw.c, fr)
	if err := ring.PrepConnect(int32(fd), &aw.rsa, salen, tok); err != nil {
		w.Unarm(tok)
		unix.Close(fd)
		aw.newFD = invalidFD
		aw.c.Res = negErrno(err)
		w.NoteSyncCompletion()
		return exec.Ready()
	}
	return exec.Pend()
}

// Result adopts the new socket into the stream on success. On failure
// the half-open socket is closed and the stream is left untouched.
func (aw *ConnectAwaiter) Result() error {
	if aw.c.Res == 0 {
		aw.stream.Close()
		aw.stream.fd = aw.newFD
		aw.stream.peer = aw.target
		return nil
	}
	if aw.newFD != invalidFD {
		unix.Close(int(aw.newFD))
		aw.newFD = invalidFD
	}
	return api.NewOpError("connect", syscall.Errno(-aw.c.Res))
}

// SendAwaiter mediates one asynchronous send.
type SendAwaiter struct {
	c   exec.Completion
	fd  uintptr
	buf []byte
}

// SendAsync starts sending buf. The buffer must stay unchanged until
// the awaiter resolves.
func (t *TcpStream) SendAsync(buf []byte) *SendAwaiter {
	return &SendAwaiter{fd: t.fd, buf: buf}
}

// Suspend arms the kernel send.
func (aw *SendAwaiter) Suspend(fr *exec.Frame) exec.Step {
	w := fr.Worker()
	ring := w.Muxer().(*reactor.Ring)

	tok := w.Arm(&aw.c, fr)
	if err := ring.PrepSend(int32(aw.fd), aw.buf, unix.MSG_NOSIGNAL, tok); err != nil {
		w.Unarm(tok)
		aw.c.Res = negErrno(err)
		w.NoteSyncCompletion()
		return exec.Ready()
	}
	return exec.Pend()
}

// Result returns the number of bytes sent or the OS error.
func (aw *SendAwaiter) Result() (int, error) {
	if aw.c.Res < 0 {
		return 0, api.NewOpError("send", syscall.Errno(-aw.c.Res))
	}
	return int(aw.c.Res), nil
}

// ReceiveAwaiter mediates one asynchronous receive.
type ReceiveAwaiter struct {
	c   exec.Completion
	fd  uintptr
	buf []byte
}

// ReceiveAsync starts receiving into buf. The buffer must stay valid
// until the awaiter resolves.
func (t *TcpStream) ReceiveAsync(buf []byte) *ReceiveAwaiter {
	return &ReceiveAwaiter{fd: t.fd, buf: buf}
}

// Suspend arms the kernel receive.
func (aw *ReceiveAwaiter) Suspend(fr *exec.Frame) exec.Step {
	w := fr.Worker()
	ring := w.Muxer().(*reactor.Ring)

	tok := w.Arm(&aw.c, fr)
	if err := ring.PrepRecv(int32(aw.fd), aw.buf, 0, tok); err != nil {
		w.Unarm(tok)
		aw.c.Res = negErrno(err)
		w.NoteSyncCompletion()
		return exec.Ready()
	}
	return exec.Pend()
}

// Result returns the number of bytes received or the OS error. Zero
// with nil error means the peer closed the connection.
func (aw *ReceiveAwaiter) Result() (int, error) {
	if aw.c.Res < 0 {
		return 0, api.NewOpError("recv", syscall.Errno(-aw.c.Res))
	}
	return int(aw.c.Res), nil
}

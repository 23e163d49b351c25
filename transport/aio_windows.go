//go:build windows
// +build windows

// File: transport/aio_windows.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Asynchronous socket operations on IOCP. The OVERLAPPED structure
// lives inside the awaiter; its pointer doubles as the completion tag
// handed back by GetQueuedCompletionStatus. With skip-on-success
// notification modes enabled, operations that finish inside the call
// complete inline and never post to the port.

package transport

import (
	"syscall"
	"unsafe"

	"golang.org/x/sys/windows"

	"github.com/momentics/hioload-aio/api"
	"github.com/momentics/hioload-aio/exec"
	"github.com/momentics/hioload-aio/inet"
)

// acceptAddrLen is the per-address buffer AcceptEx requires: the
// largest sockaddr plus 16 bytes of padding.
const acceptAddrLen = uint32(unsafe.Sizeof(windows.RawSockaddrInet6{})) + 16

// AcceptAwaiter mediates one asynchronous accept.
type AcceptAwaiter struct {
	ovlp    windows.Overlapped
	c       exec.Completion
	srv     *TcpServer
	sock    windows.Handle
	addrBuf [2 * acceptAddrLen]byte
}

// AcceptAsync starts accepting one connection. The returned awaiter
// must be suspended on exactly once.
func (s *TcpServer) AcceptAsync() *AcceptAwaiter {
	return &AcceptAwaiter{srv: s, sock: windows.InvalidHandle}
}

// Suspend creates the client socket and arms AcceptEx.
func (aw *AcceptAwaiter) Suspend(fr *exec.Frame) exec.Step {
	w := fr.Worker()

	family := int32(windows.AF_INET)
	if aw.srv.addr.IsIPv6() {
		family = windows.AF_INET6
	}
	sock, err := newOverlappedSocket(w, family)
	if err != nil {
		aw.c.Res = errnoOf(err)
		w.NoteSyncCompletion()
		return exec.Ready()
	}
	aw.sock = sock

	token := uint64(uintptr(unsafe.Pointer(&aw.ovlp)))
	w.ArmAt(token, &aw.c, fr)

	var recvd uint32
	err = windows.AcceptEx(windows.Handle(aw.srv.fd), sock, &aw.addrBuf[0],
		0, acceptAddrLen, acceptAddrLen, &recvd, &aw.ovlp)
	if err == nil {
		// Accepted synchronously; no completion will be posted.
		w.Unarm(token)
		aw.c.Res = 0
		w.NoteSyncCompletion()
		return exec.Ready()
	}
	if err == windows.ERROR_IO_PENDING {
		return exec.Pend()
	}
	w.Unarm(token)
	aw.c.Res = errnoOf(err)
	w.NoteSyncCompletion()
	return exec.Ready()
}

// Result returns the accepted connection or the OS error. The
// half-open client socket is closed on failure.
func (aw *AcceptAwaiter) Result() (*TcpStream, error) {
	if aw.c.Res != 0 {
		if aw.sock != windows.InvalidHandle {
			windows.Closesocket(aw.sock)
			aw.sock = windows.InvalidHandle
		}
		return nil, api.NewOpError("accept", syscall.Errno(aw.c.Res))
	}

	// Inherit listener properties so shutdown and getpeername work.
	ls := aw.srv.fd
	windows.Setsockopt(aw.sock, windows.SOL_SOCKET, windows.SO_UPDATE_ACCEPT_CONTEXT,
		(*byte)(unsafe.Pointer(&ls)), int32(unsafe.Sizeof(ls)))

	var lrsa, rrsa *windows.RawSockaddrAny
	var llen, rlen int32
	windows.GetAcceptExSockaddrs(&aw.addrBuf[0], 0, acceptAddrLen, acceptAddrLen,
		&lrsa, &llen, &rrsa, &rlen)

	peer := inet.InetAddr{}
	if rrsa != nil {
		peer = fromRawSockaddr(rrsa)
	}
	return &TcpStream{fd: uintptr(aw.sock), peer: peer}, nil
}

// ConnectAwaiter mediates one asynchronous connect.
type ConnectAwaiter struct {
	ovlp   windows.Overlapped
	c      exec.Completion
	stream *TcpStream
	target inet.InetAddr
	sock   windows.Handle
}

// ConnectAsync starts connecting to addr. The stream is not modified
// unless the connection is established.
func (t *TcpStream) ConnectAsync(addr inet.InetAddr) *ConnectAwaiter {
	return &ConnectAwaiter{stream: t, target: addr, sock: windows.InvalidHandle}
}

// Suspend creates a fresh socket, binds it (ConnectEx requires a bound
// socket) and arms the overlapped connect.
func (aw *ConnectAwaiter) Suspend(fr *exec.Frame) exec.Step {
	w := fr.Worker()

	sock, err := newOverlappedSocket(w, familyOf(aw.target))
	if err != nil {
		aw.c.Res = errnoOf(err)
		w.NoteSyncCompletion()
		return exec.Ready()
	}
	aw.sock = sock

	var local windows.Sockaddr
	if aw.target.IsIPv4() {
		local = &windows.SockaddrInet4{}
	} else {
		local = &windows.SockaddrInet6{}
	}
	if err := windows.Bind(sock, local); err != nil {
		aw.failSync(w, err)
		return exec.Ready()
	}

	token := uint64(uintptr(unsafe.Pointer(&aw.ovlp)))
	w.ArmAt(token, &aw.c, fr)

	err = windows.ConnectEx(sock, sockaddrOf(aw.target), nil, 0, nil, &aw.ovlp)
	if err == nil {
		w.Unarm(token)
		aw.c.Res = 0
		w.NoteSyncCompletion()
		return exec.Ready()
	}
	if err == windows.ERROR_IO_PENDING {
		return exec.Pend()
	}
	w.Unarm(token)
	aw.failSync(w, err)
	return exec.Ready()
}

func (aw *ConnectAwaiter) failSync(w *exec.Worker, err error) {
	windows.Closesocket(aw.sock)
	aw.sock = windows.InvalidHandle
	aw.c.Res = errnoOf(err)
	w.NoteSyncCompletion()
}

// Result adopts the new socket into the stream on success. On failure
// the half-open socket is closed and the stream is left untouched.
func (aw *ConnectAwaiter) Result() error {
	if aw.c.Res == 0 {
		aw.stream.Close()
		aw.stream.fd = uintptr(aw.sock)
		aw.stream.peer = aw.target
		return nil
	}
	if aw.sock != windows.InvalidHandle {
		windows.Closesocket(aw.sock)
		aw.sock = windows.InvalidHandle
	}
	return api.NewOpError("connect", syscall.Errno(aw.c.Res))
}

// SendAwaiter mediates one asynchronous send.
type SendAwaiter struct {
	ovlp windows.Overlapped
	c    exec.Completion
	fd   uintptr
	buf  []byte
}

// SendAsync starts sending buf. The buffer must stay unchanged until
// the awaiter resolves.
func (t *TcpStream) SendAsync(buf []byte) *SendAwaiter {
	return &SendAwaiter{fd: t.fd, buf: buf}
}

// Suspend arms the overlapped send.
func (aw *SendAwaiter) Suspend(fr *exec.Frame) exec.Step {
	w := fr.Worker()

	token := uint64(uintptr(unsafe.Pointer(&aw.ovlp)))
	w.ArmAt(token, &aw.c, fr)

	wb := windows.WSABuf{Len: uint32(len(aw.buf))}
	if len(aw.buf) > 0 {
		wb.Buf = &aw.buf[0]
	}
	var sent uint32
	err := windows.WSASend(windows.Handle(aw.fd), &wb, 1, &sent, 0, &aw.ovlp, nil)
	if err == nil {
		// Sent synchronously; no completion will be posted.
		w.Unarm(token)
		aw.c.Res = 0
		aw.c.Bytes = sent
		w.NoteSyncCompletion()
		return exec.Ready()
	}
	if err == windows.ERROR_IO_PENDING {
		return exec.Pend()
	}
	w.Unarm(token)
	aw.c.Res = errnoOf(err)
	w.NoteSyncCompletion()
	return exec.Ready()
}

// Result returns the number of bytes sent or the OS error.
func (aw *SendAwaiter) Result() (int, error) {
	if aw.c.Res != 0 {
		return 0, api.NewOpError("send", syscall.Errno(aw.c.Res))
	}
	return int(aw.c.Bytes), nil
}

// ReceiveAwaiter mediates one asynchronous receive.
type ReceiveAwaiter struct {
	ovlp  windows.Overlapped
	c     exec.Completion
	fd    uintptr
	buf   []byte
	flags uint32
}

// ReceiveAsync starts receiving into buf. The buffer must stay valid
// until the awaiter resolves.
func (t *TcpStream) ReceiveAsync(buf []byte) *ReceiveAwaiter {
	return &ReceiveAwaiter{fd: t.fd, buf: buf}
}

// Suspend arms the overlapped receive.
func (aw *ReceiveAwaiter) Suspend(fr *exec.Frame) exec.Step {
	w := fr.Worker()

	token := uint64(uintptr(unsafe.Pointer(&aw.ovlp)))
	w.ArmAt(token, &aw.c, fr)

	wb := windows.WSABuf{Len: uint32(len(aw.buf))}
	if len(aw.buf) > 0 {
		wb.Buf = &aw.buf[0]
	}
	var recvd uint32
	err := windows.WSARecv(windows.Handle(aw.fd), &wb, 1, &recvd, &aw.flags, &aw.ovlp, nil)
	if err == nil {
		w.Unarm(token)
		aw.c.Res = 0
		aw.c.Bytes = recvd
		w.NoteSyncCompletion()
		return exec.Ready()
	}
	if err == windows.ERROR_IO_PENDING {
		return exec.Pend()
	}
	w.Unarm(token)
	aw.c.Res = errnoOf(err)
	w.NoteSyncCompletion()
	return exec.Ready()
}

// Result returns the number of bytes received or the OS error. Zero
// with nil error means the peer closed the connection.
func (aw *ReceiveAwaiter) Result() (int, error) {
	if aw.c.Res != 0 {
		return 0, api.NewOpError("recv", syscall.Errno(aw.c.Res))
	}
	return int(aw.c.Bytes), nil
}

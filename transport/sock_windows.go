//go:build windows
// +build windows

// File: transport/sock_windows.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Socket plumbing for Windows: overlapped socket creation, IOCP
// association, bind/listen, blocking counterparts and socket options.

package transport

import (
	"errors"
	"syscall"
	"unsafe"

	"golang.org/x/sys/windows"

	"github.com/momentics/hioload-aio/api"
	"github.com/momentics/hioload-aio/exec"
	"github.com/momentics/hioload-aio/inet"
	"github.com/momentics/hioload-aio/reactor"
)

// Winsock option ids for send/receive timeouts (DWORD milliseconds).
const (
	sendTimeoutOpt = 0x1005 // SO_SNDTIMEO
	recvTimeoutOpt = 0x1006 // SO_RCVTIMEO
)

var (
	modws2          = windows.NewLazySystemDLL("ws2_32.dll")
	procAcceptBlock = modws2.NewProc("accept")
)

func closeFD(fd uintptr) {
	windows.Closesocket(windows.Handle(fd))
}

// opErr converts a Winsock failure into a structured OpError.
func opErr(op string, err error) error {
	var errno syscall.Errno
	if errors.As(err, &errno) {
		return api.NewOpError(op, errno)
	}
	return err
}

func errnoOf(err error) int32 {
	var errno syscall.Errno
	if errors.As(err, &errno) {
		return int32(errno)
	}
	return int32(windows.ERROR_OPERATION_ABORTED)
}

func sockaddrOf(a inet.InetAddr) windows.Sockaddr {
	if a.IsIPv4() {
		sa := &windows.SockaddrInet4{Port: int(a.Port())}
		copy(sa.Addr[:], a.IP().Bytes())
		return sa
	}
	sa := &windows.SockaddrInet6{Port: int(a.Port()), ZoneId: a.ScopeID()}
	copy(sa.Addr[:], a.IP().Bytes())
	return sa
}

func fromSockaddr(sa windows.Sockaddr) inet.InetAddr {
	switch v := sa.(type) {
	case *windows.SockaddrInet4:
		return inet.NewInetAddr(inet.IPv4(v.Addr[0], v.Addr[1], v.Addr[2], v.Addr[3]), uint16(v.Port))
	case *windows.SockaddrInet6:
		var groups [8]uint16
		for i := range groups {
			groups[i] = uint16(v.Addr[2*i])<<8 | uint16(v.Addr[2*i+1])
		}
		addr := inet.NewInetAddr(inet.IPv6(groups[0], groups[1], groups[2], groups[3],
			groups[4], groups[5], groups[6], groups[7]), uint16(v.Port))
		addr.SetScopeID(v.ZoneId)
		return addr
	}
	return inet.InetAddr{}
}

func fromRawSockaddr(rsa *windows.RawSockaddrAny) inet.InetAddr {
	switch rsa.Addr.Family {
	case windows.AF_INET:
		sa := (*windows.RawSockaddrInet4)(unsafe.Pointer(rsa))
		ip := inet.IPv4(sa.Addr[0], sa.Addr[1], sa.Addr[2], sa.Addr[3])
		return inet.NewInetAddr(ip, inet.NetToHost16(sa.Port))
	case windows.AF_INET6:
		sa := (*windows.RawSockaddrInet6)(unsafe.Pointer(rsa))
		var groups [8]uint16
		for i := range groups {
			groups[i] = uint16(sa.Addr[2*i])<<8 | uint16(sa.Addr[2*i+1])
		}
		addr := inet.NewInetAddr(inet.IPv6(groups[0], groups[1], groups[2], groups[3],
			groups[4], groups[5], groups[6], groups[7]), inet.NetToHost16(sa.Port))
		addr.SetScopeID(sa.Scope_id)
		return addr
	}
	return inet.InetAddr{}
}

func familyOf(a inet.InetAddr) int32 {
	if a.IsIPv6() {
		return windows.AF_INET6
	}
	return windows.AF_INET
}

// newOverlappedSocket creates an overlapped socket, associates it with
// the worker's completion port and disables completion notifications
// for synchronously finished operations.
func newOverlappedSocket(w *exec.Worker, family int32) (windows.Handle, error) {
	h, err := windows.WSASocket(family, windows.SOCK_STREAM, windows.IPPROTO_TCP,
		nil, 0, windows.WSA_FLAG_OVERLAPPED|windows.WSA_FLAG_NO_HANDLE_INHERIT)
	if err != nil {
		return windows.InvalidHandle, opErr("socket", err)
	}
	port := w.Muxer().(*reactor.Port)
	if err := port.Associate(h); err != nil {
		windows.Closesocket(h)
		return windows.InvalidHandle, err
	}
	if err := windows.SetFileCompletionNotificationModes(h,
		windows.FILE_SKIP_SET_EVENT_ON_HANDLE|windows.FILE_SKIP_COMPLETION_PORT_ON_SUCCESS); err != nil {
		windows.Closesocket(h)
		return windows.InvalidHandle, opErr("SetFileCompletionNotificationModes", err)
	}
	return h, nil
}

// Bind creates the listening socket, binds it to addr and starts
// listening with a SOMAXCONN backlog. Must be called from inside a
// worker task; the socket is associated with that worker's completion
// port.
func (s *TcpServer) Bind(fr *exec.Frame, addr inet.InetAddr) error {
	if fr == nil || fr.Worker() == nil {
		return api.ErrNotWorker
	}

	h, err := newOverlappedSocket(fr.Worker(), familyOf(addr))
	if err != nil {
		return err
	}
	if err := windows.SetsockoptInt(h, windows.SOL_SOCKET, windows.SO_REUSEADDR, 1); err != nil {
		windows.Closesocket(h)
		return opErr("setsockopt", err)
	}
	if err := windows.Bind(h, sockaddrOf(addr)); err != nil {
		windows.Closesocket(h)
		return opErr("bind", err)
	}
	if err := windows.Listen(h, windows.SOMAXCONN); err != nil {
		windows.Closesocket(h)
		return opErr("listen", err)
	}

	s.Close()
	s.fd = uintptr(h)
	s.addr = addr
	return nil
}

// Accept blocks until a connection arrives. Blocking counterpart of
// AcceptAsync.
func (s *TcpServer) Accept() (*TcpStream, error) {
	var rsa windows.RawSockaddrAny
	rlen := int32(unsafe.Sizeof(rsa))
	h, _, callErr := procAcceptBlock.Call(s.fd,
		uintptr(unsafe.Pointer(&rsa)), uintptr(unsafe.Pointer(&rlen)))
	if windows.Handle(h) == windows.InvalidHandle {
		return nil, opErr("accept", callErr)
	}
	return &TcpStream{fd: h, peer: fromRawSockaddr(&rsa)}, nil
}

// Connect establishes the connection synchronously. The stream is left
// untouched on failure. The socket is not associated with a completion
// port; use ConnectAsync for streams that will perform asynchronous
// I/O.
func (t *TcpStream) Connect(addr inet.InetAddr) error {
	h, err := windows.WSASocket(familyOf(addr), windows.SOCK_STREAM, windows.IPPROTO_TCP,
		nil, 0, windows.WSA_FLAG_OVERLAPPED|windows.WSA_FLAG_NO_HANDLE_INHERIT)
	if err != nil {
		return opErr("socket", err)
	}
	if err := windows.Connect(h, sockaddrOf(addr)); err != nil {
		windows.Closesocket(h)
		return opErr("connect", err)
	}
	t.Close()
	t.fd = uintptr(h)
	t.peer = addr
	return nil
}

// Send writes synchronously and returns the number of bytes accepted
// by the kernel.
func (t *TcpStream) Send(buf []byte) (int, error) {
	wb := windows.WSABuf{Len: uint32(len(buf))}
	if len(buf) > 0 {
		wb.Buf = &buf[0]
	}
	var sent uint32
	if err := windows.WSASend(windows.Handle(t.fd), &wb, 1, &sent, 0, nil, nil); err != nil {
		return 0, opErr("send", err)
	}
	return int(sent), nil
}

// Receive reads synchronously into buf.
func (t *TcpStream) Receive(buf []byte) (int, error) {
	wb := windows.WSABuf{Len: uint32(len(buf))}
	if len(buf) > 0 {
		wb.Buf = &buf[0]
	}
	var recvd uint32
	var flags uint32
	if err := windows.WSARecv(windows.Handle(t.fd), &wb, 1, &recvd, &flags, nil, nil); err != nil {
		return 0, opErr("recv", err)
	}
	return int(recvd), nil
}

// SetKeepAlive toggles TCP keep-alive probes.
func (t *TcpStream) SetKeepAlive(enable bool) error {
	v := 0
	if enable {
		v = 1
	}
	if err := windows.SetsockoptInt(windows.Handle(t.fd), windows.SOL_SOCKET, windows.SO_KEEPALIVE, v); err != nil {
		return opErr("setsockopt", err)
	}
	return nil
}

// SetNoDelay toggles Nagle's algorithm.
func (t *TcpStream) SetNoDelay(enable bool) error {
	v := 0
	if enable {
		v = 1
	}
	if err := windows.SetsockoptInt(windows.Handle(t.fd), windows.IPPROTO_TCP, windows.TCP_NODELAY, v); err != nil {
		return opErr("setsockopt", err)
	}
	return nil
}

func (t *TcpStream) setTimeoutMs(opt int, ms uint32) error {
	if err := windows.SetsockoptInt(windows.Handle(t.fd), windows.SOL_SOCKET, opt, int(ms)); err != nil {
		return opErr("setsockopt", err)
	}
	return nil
}

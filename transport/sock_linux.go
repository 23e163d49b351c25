//go:build linux
// +build linux

// File: transport/sock_linux.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Socket plumbing for Linux: address conversions, bind/listen,
// blocking operation counterparts and socket options.

package transport

import (
	"errors"
	"syscall"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/momentics/hioload-aio/api"
	"github.com/momentics/hioload-aio/exec"
	"github.com/momentics/hioload-aio/inet"
)

const (
	sendTimeoutOpt = unix.SO_SNDTIMEO
	recvTimeoutOpt = unix.SO_RCVTIMEO
)

func closeFD(fd uintptr) {
	unix.Close(int(fd))
}

// opErr converts a syscall failure into a structured OpError.
func opErr(op string, err error) error {
	var errno syscall.Errno
	if errors.As(err, &errno) {
		return api.NewOpError(op, errno)
	}
	return err
}

// negErrno extracts a negative errno for storage in a completion
// record.
func negErrno(err error) int32 {
	var errno syscall.Errno
	if errors.As(err, &errno) {
		return -int32(errno)
	}
	return -int32(unix.EIO)
}

// sockaddrOf builds the x/sys sockaddr for blocking syscalls.
func sockaddrOf(a inet.InetAddr) unix.Sockaddr {
	if a.IsIPv4() {
		sa := &unix.SockaddrInet4{Port: int(a.Port())}
		copy(sa.Addr[:], a.IP().Bytes())
		return sa
	}
	sa := &unix.SockaddrInet6{Port: int(a.Port()), ZoneId: a.ScopeID()}
	copy(sa.Addr[:], a.IP().Bytes())
	return sa
}

// rawSockaddrOf fills a raw sockaddr for io_uring submission. The
// returned length matches the family.
func rawSockaddrOf(a inet.InetAddr, rsa *unix.RawSockaddrAny) uint32 {
	if a.IsIPv4() {
		sa := (*unix.RawSockaddrInet4)(unsafe.Pointer(rsa))
		sa.Family = unix.AF_INET
		sa.Port = inet.HostToNet16(a.Port())
		copy(sa.Addr[:], a.IP().Bytes())
		return unix.SizeofSockaddrInet4
	}
	sa := (*unix.RawSockaddrInet6)(unsafe.Pointer(rsa))
	sa.Family = unix.AF_INET6
	sa.Port = inet.HostToNet16(a.Port())
	sa.Flowinfo = inet.HostToNet32(a.FlowInfo())
	sa.Scope_id = a.ScopeID()
	copy(sa.Addr[:], a.IP().Bytes())
	return unix.SizeofSockaddrInet6
}

// fromRawSockaddr decodes a kernel-written sockaddr.
func fromRawSockaddr(rsa *unix.RawSockaddrAny) inet.InetAddr {
	switch rsa.Addr.Family {
	case unix.AF_INET:
		sa := (*unix.RawSockaddrInet4)(unsafe.Pointer(rsa))
		ip := inet.IPv4(sa.Addr[0], sa.Addr[1], sa.Addr[2], sa.Addr[3])
		return inet.NewInetAddr(ip, inet.NetToHost16(sa.Port))
	case unix.AF_INET6:
		sa := (*unix.RawSockaddrInet6)(unsafe.Pointer(rsa))
		var groups [8]uint16
		for i := range groups {
			groups[i] = uint16(sa.Addr[2*i])<<8 | uint16(sa.Addr[2*i+1])
		}
		ip := inet.IPv6(groups[0], groups[1], groups[2], groups[3],
			groups[4], groups[5], groups[6], groups[7])
		addr := inet.NewInetAddr(ip, inet.NetToHost16(sa.Port))
		addr.SetScopeID(sa.Scope_id)
		return addr
	}
	return inet.InetAddr{}
}

func familyOf(a inet.InetAddr) int {
	if a.IsIPv6() {
		return unix.AF_INET6
	}
	return unix.AF_INET
}

// Bind creates the listening socket, binds it to addr and starts
// listening with a SOMAXCONN backlog. It must be called from inside a
// worker task; fr identifies the owning worker.
func (s *TcpServer) Bind(fr *exec.Frame, addr inet.InetAddr) error {
	if fr == nil || fr.Worker() == nil {
		return api.ErrNotWorker
	}

	fd, err := unix.Socket(familyOf(addr), unix.SOCK_STREAM|unix.SOCK_CLOEXEC, unix.IPPROTO_TCP)
	if err != nil {
		return opErr("socket", err)
	}
	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		unix.Close(fd)
		return opErr("setsockopt", err)
	}
	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEPORT, 1); err != nil {
		unix.Close(fd)
		return opErr("setsockopt", err)
	}
	if err := unix.Bind(fd, sockaddrOf(addr)); err != nil {
		unix.Close(fd)
		return opErr("bind", err)
	}
	if err := unix.Listen(fd, unix.SOMAXCONN); err != nil {
		unix.Close(fd)
		return opErr("listen", err)
	}

	s.Close()
	s.fd = uintptr(fd)
	s.addr = addr
	return nil
}

// Accept blocks until a connection arrives. Blocking counterpart of
// AcceptAsync.
func (s *TcpServer) Accept() (*TcpStream, error) {
	fd, sa, err := unix.Accept4(int(s.fd), unix.SOCK_CLOEXEC)
	if err != nil {
		return nil, opErr("accept", err)
	}
	return &TcpStream{fd: uintptr(fd), peer: fromSockaddr(sa)}, nil
}

func fromSockaddr(sa unix.Sockaddr) inet.InetAddr {
	switch v := sa.(type) {
	case *unix.SockaddrInet4:
		return inet.NewInetAddr(inet.IPv4(v.Addr[0], v.Addr[1], v.Addr[2], v.Addr[3]), uint16(v.Port))
	case *unix.SockaddrInet6:
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

// Connect establishes the connection synchronously. The stream is left
// untouched on failure.
func (t *TcpStream) Connect(addr inet.InetAddr) error {
	fd, err := unix.Socket(familyOf(addr), unix.SOCK_STREAM|unix.SOCK_CLOEXEC, unix.IPPROTO_TCP)
	if err != nil {
		return opErr("socket", err)
	}
	if err := unix.Connect(fd, sockaddrOf(addr)); err != nil {
		unix.Close(fd)
		return opErr("connect", err)
	}
	t.Close()
	t.fd = uintptr(fd)
	t.peer = addr
	return nil
}

// Send writes synchronously and returns the number of bytes accepted
// by the kernel. The Go runtime ignores SIGPIPE on sockets, so a
// closed peer surfaces as EPIPE.
func (t *TcpStream) Send(buf []byte) (int, error) {
	n, err := unix.Write(int(t.fd), buf)
	if err != nil {
		return 0, opErr("send", err)
	}
	return n, nil
}

// Receive reads synchronously into buf.
func (t *TcpStream) Receive(buf []byte) (int, error) {
	n, _, err := unix.Recvfrom(int(t.fd), buf, 0)
	if err != nil {
		return 0, opErr("recv", err)
	}
	return n, nil
}

// SetKeepAlive toggles TCP keep-alive probes.
func (t *TcpStream) SetKeepAlive(enable bool) error {
	v := 0
	if enable {
		v = 1
	}
	if err := unix.SetsockoptInt(int(t.fd), unix.SOL_SOCKET, unix.SO_KEEPALIVE, v); err != nil {
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
	if err := unix.SetsockoptInt(int(t.fd), unix.IPPROTO_TCP, unix.TCP_NODELAY, v); err != nil {
		return opErr("setsockopt", err)
	}
	return nil
}

func (t *TcpStream) setTimeoutMs(opt int, ms uint32) error {
	tv := unix.Timeval{
		Sec:  int64(ms / 1000),
		Usec: int64(ms%1000) * 1000,
	}
	if err := unix.SetsockoptTimeval(int(t.fd), unix.SOL_SOCKET, opt, &tv); err != nil {
		return opErr("setsockopt", err)
	}
	return nil
}

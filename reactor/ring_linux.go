//go:build linux
// +build linux

// File: reactor/ring_linux.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Raw io_uring completion muxer. The ring is set up and entered through
// direct syscalls; no liburing or cgo. Setup flags are gated on the
// running kernel version, with an EINVAL fallback for kernels that
// reject newer flags.

package reactor

import (
	"fmt"
	"sync/atomic"
	"syscall"
	"time"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/momentics/hioload-aio/internal/osver"
)

// io_uring opcodes used by this muxer (kernel ABI).
const (
	opNop     = 0
	opAccept  = 13
	opConnect = 16
	opSend    = 26
	opRecv    = 27
)

// Setup flags.
const (
	setupClamp        = 1 << 4
	setupSubmitAll    = 1 << 7  // kernel 5.18+
	setupCoopTaskrun  = 1 << 8  // kernel 5.19+
	setupTaskrunFlag  = 1 << 9  // kernel 5.19+
	setupSingleIssuer = 1 << 12 // kernel 6.0+
)

// Feature flags reported (and requested) at setup time.
const (
	featSingleMmap = 1 << 0 // kernel 5.4+
	featNoDrop     = 1 << 1 // kernel 5.5+
	featRwCurPos   = 1 << 3 // kernel 5.6+
	featFastPoll   = 1 << 5 // kernel 5.7+
)

// Enter flags.
const (
	enterGetevents = 1 << 0
	enterExtArg    = 1 << 3
)

// mmap offsets (kernel ABI).
const (
	offSqRing = 0
	offCqRing = 0x8000000
	offSqes   = 0x10000000
)

// DefaultQueueDepth is the submission queue depth requested at setup.
// CLAMP lets the kernel reduce it when the configured limit is lower.
const DefaultQueueDepth = 32768

type sqRingOffsets struct {
	Head        uint32
	Tail        uint32
	RingMask    uint32
	RingEntries uint32
	Flags       uint32
	Dropped     uint32
	Array       uint32
	Resv1       uint32
	Resv2       uint64
}

type cqRingOffsets struct {
	Head        uint32
	Tail        uint32
	RingMask    uint32
	RingEntries uint32
	Overflow    uint32
	Cqes        uint32
	Flags       uint32
	Resv1       uint32
	Resv2       uint64
}

type uringParams struct {
	SqEntries    uint32
	CqEntries    uint32
	Flags        uint32
	SqThreadCPU  uint32
	SqThreadIdle uint32
	Features     uint32
	WqFd         uint32
	Resv         [3]uint32
	SqOff        sqRingOffsets
	CqOff        cqRingOffsets
}

type uringSqe struct {
	Opcode      uint8
	Flags       uint8
	Ioprio      uint16
	Fd          int32
	Off         uint64 // also addr2 (accept: socklen pointer)
	Addr        uint64
	Len         uint32
	OpFlags     uint32 // msg_flags / accept_flags union
	UserData    uint64
	BufIndex    uint16
	Personality uint16
	SpliceFdIn  int32
	SpliceOffIn uint64
	Addr2       uint64
}

type uringCqe struct {
	UserData uint64
	Res      int32
	Flags    uint32
}

type geteventsArg struct {
	Sigmask   uint64
	SigmaskSz uint32
	Pad       uint32
	Ts        uint64
}

// Ring is the io_uring completion muxer for one worker.
type Ring struct {
	fd       int
	features uint32

	sqMem  []byte
	cqMem  []byte
	sqeMem []byte

	sqHead    *uint32
	sqTail    *uint32
	sqMask    *uint32
	sqEntries *uint32
	sqArray   []uint32
	sqes      []uringSqe

	cqHead *uint32
	cqTail *uint32
	cqMask *uint32
	cqes   []uringCqe

	toSubmit uint32
	noExtArg bool
	closed   bool
}

var _ Muxer = (*Ring)(nil)

// setupFlags returns the io_uring setup flags supported by the running
// kernel.
func setupFlags(kernel osver.Version) uint32 {
	flags := uint32(setupClamp)
	if kernel >= osver.Make(5, 18, 0) {
		flags |= setupSubmitAll
	}
	if kernel >= osver.Make(5, 19, 0) {
		flags |= setupCoopTaskrun | setupTaskrunFlag
	}
	if kernel >= osver.Make(6, 0, 0) {
		flags |= setupSingleIssuer
	}
	return flags
}

// setupFeatures returns the feature bits expected from the running
// kernel.
func setupFeatures(kernel osver.Version) uint32 {
	features := uint32(0)
	if kernel >= osver.Make(5, 4, 0) {
		features |= featSingleMmap
	}
	if kernel >= osver.Make(5, 5, 0) {
		features |= featNoDrop
	}
	if kernel >= osver.Make(5, 6, 0) {
		features |= featRwCurPos
	}
	if kernel >= osver.Make(5, 7, 0) {
		features |= featFastPoll
	}
	return features
}

// NewRing sets up an io_uring instance with the given queue depth.
// A zero depth selects DefaultQueueDepth.
func NewRing(depth uint32) (*Ring, error) {
	if depth == 0 {
		depth = DefaultQueueDepth
	}

	kernel := osver.Kernel()
	flags := setupFlags(kernel)

	var params uringParams
	var fd uintptr
	for {
		params = uringParams{
			Flags:    flags,
			Features: setupFeatures(kernel),
		}
		var errno syscall.Errno
		fd, _, errno = unix.Syscall(unix.SYS_IO_URING_SETUP,
			uintptr(depth), uintptr(unsafe.Pointer(&params)), 0)
		if errno == 0 {
			break
		}
		// Strip the newest flag and retry: version probing can be
		// ahead of what the kernel actually accepts.
		switch {
		case errno == unix.EINVAL && flags&setupSingleIssuer != 0:
			flags &^= setupSingleIssuer
		case errno == unix.EINVAL && flags&(setupCoopTaskrun|setupTaskrunFlag) != 0:
			flags &^= setupCoopTaskrun | setupTaskrunFlag
		case errno == unix.EINVAL && flags&setupSubmitAll != 0:
			flags &^= setupSubmitAll
		default:
			return nil, fmt.Errorf("io_uring_setup: %w", errno)
		}
	}

	r := &Ring{fd: int(fd), features: params.Features}
	if err := r.mapRings(&params); err != nil {
		unix.Close(r.fd)
		return nil, err
	}
	return r, nil
}

func (r *Ring) mapRings(params *uringParams) error {
	pageSize := uint32(unix.Getpagesize())
	sqSize := alignUp(params.SqOff.Array+params.SqEntries*4, pageSize)
	cqSize := alignUp(params.CqOff.Cqes+params.CqEntries*uint32(unsafe.Sizeof(uringCqe{})), pageSize)

	if params.Features&featSingleMmap != 0 {
		// SQ and CQ rings share one mapping.
		if cqSize > sqSize {
			sqSize = cqSize
		}
		mem, err := unix.Mmap(r.fd, offSqRing, int(sqSize),
			unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED|unix.MAP_POPULATE)
		if err != nil {
			return fmt.Errorf("mmap sq/cq ring: %w", err)
		}
		r.sqMem = mem
		r.cqMem = mem
	} else {
		sqMem, err := unix.Mmap(r.fd, offSqRing, int(sqSize),
			unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED|unix.MAP_POPULATE)
		if err != nil {
			return fmt.Errorf("mmap sq ring: %w", err)
		}
		cqMem, err := unix.Mmap(r.fd, offCqRing, int(cqSize),
			unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED|unix.MAP_POPULATE)
		if err != nil {
			unix.Munmap(sqMem)
			return fmt.Errorf("mmap cq ring: %w", err)
		}
		r.sqMem = sqMem
		r.cqMem = cqMem
	}

	sqeSize := alignUp(params.SqEntries*uint32(unsafe.Sizeof(uringSqe{})), pageSize)
	sqeMem, err := unix.Mmap(r.fd, offSqes, int(sqeSize),
		unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED|unix.MAP_POPULATE)
	if err != nil {
		r.unmap()
		return fmt.Errorf("mmap sqes: %w", err)
	}
	r.sqeMem = sqeMem

	sqBase := unsafe.Pointer(&r.sqMem[0])
	r.sqHead = (*uint32)(unsafe.Add(sqBase, params.SqOff.Head))
	r.sqTail = (*uint32)(unsafe.Add(sqBase, params.SqOff.Tail))
	r.sqMask = (*uint32)(unsafe.Add(sqBase, params.SqOff.RingMask))
	r.sqEntries = (*uint32)(unsafe.Add(sqBase, params.SqOff.RingEntries))
	r.sqArray = unsafe.Slice((*uint32)(unsafe.Add(sqBase, params.SqOff.Array)), params.SqEntries)
	r.sqes = unsafe.Slice((*uringSqe)(unsafe.Pointer(&sqeMem[0])), params.SqEntries)

	cqBase := unsafe.Pointer(&r.cqMem[0])
	r.cqHead = (*uint32)(unsafe.Add(cqBase, params.CqOff.Head))
	r.cqTail = (*uint32)(unsafe.Add(cqBase, params.CqOff.Tail))
	r.cqMask = (*uint32)(unsafe.Add(cqBase, params.CqOff.RingMask))
	r.cqes = unsafe.Slice((*uringCqe)(unsafe.Add(cqBase, params.CqOff.Cqes)), params.CqEntries)

	return nil
}

func alignUp(v, alignment uint32) uint32 {
	mod := v % alignment
	if mod == 0 {
		return v
	}
	return v + alignment - mod
}

// push writes one SQE into the submission queue, submitting pending
// entries first when the queue is full. Submission itself is deferred
// until the next Wait or Submit call.
func (r *Ring) push(e uringSqe) error {
	for {
		head := atomic.LoadUint32(r.sqHead)
		tail := *r.sqTail
		if tail-head < *r.sqEntries {
			idx := tail & *r.sqMask
			r.sqes[idx] = e
			r.sqArray[idx] = idx
			atomic.StoreUint32(r.sqTail, tail+1)
			r.toSubmit++
			return nil
		}
		if err := r.enter(r.toSubmit, 0, 0, nil); err != nil {
			return err
		}
		r.toSubmit = 0
	}
}

// PrepAccept queues an accept operation. sa and salen must stay valid
// until the completion is observed.
func (r *Ring) PrepAccept(fd int32, sa *unix.RawSockaddrAny, salen *uint32, flags uint32, token uint64) error {
	return r.push(uringSqe{
		Opcode:   opAccept,
		Fd:       fd,
		Addr:     uint64(uintptr(unsafe.Pointer(sa))),
		Off:      uint64(uintptr(unsafe.Pointer(salen))),
		OpFlags:  flags,
		UserData: token,
	})
}

// PrepConnect queues a connect operation. sa must stay valid until the
// completion is observed.
func (r *Ring) PrepConnect(fd int32, sa *unix.RawSockaddrAny, salen uint32, token uint64) error {
	return r.push(uringSqe{
		Opcode:   opConnect,
		Fd:       fd,
		Addr:     uint64(uintptr(unsafe.Pointer(sa))),
		Off:      uint64(salen),
		UserData: token,
	})
}

// PrepSend queues a send operation on buf.
func (r *Ring) PrepSend(fd int32, buf []byte, flags uint32, token uint64) error {
	e := uringSqe{
		Opcode:   opSend,
		Fd:       fd,
		Len:      uint32(len(buf)),
		OpFlags:  flags,
		UserData: token,
	}
	if len(buf) > 0 {
		e.Addr = uint64(uintptr(unsafe.Pointer(&buf[0])))
	}
	return r.push(e)
}

// PrepRecv queues a receive operation into buf.
func (r *Ring) PrepRecv(fd int32, buf []byte, flags uint32, token uint64) error {
	e := uringSqe{
		Opcode:   opRecv,
		Fd:       fd,
		Len:      uint32(len(buf)),
		OpFlags:  flags,
		UserData: token,
	}
	if len(buf) > 0 {
		e.Addr = uint64(uintptr(unsafe.Pointer(&buf[0])))
	}
	return r.push(e)
}

// Submit flushes queued SQEs to the kernel without waiting.
func (r *Ring) Submit() error {
	if r.toSubmit == 0 {
		return nil
	}
	err := r.enter(r.toSubmit, 0, 0, nil)
	if err == nil {
		r.toSubmit = 0
	}
	return err
}

// Wake queues and submits a no-op so a blocked Wait returns.
func (r *Ring) Wake() error {
	if err := r.push(uringSqe{Opcode: opNop}); err != nil {
		return err
	}
	return r.Submit()
}

// Wait implements Muxer. It submits pending SQEs, blocks up to timeout
// for at least one completion, then drains the completion ring into
// evs.
func (r *Ring) Wait(evs []Event, timeout time.Duration) (int, error) {
	if timeout > 0 {
		if err := r.enterWait(timeout); err != nil {
			return 0, err
		}
	} else if err := r.Submit(); err != nil {
		return 0, err
	}
	return r.reap(evs), nil
}

// enterWait submits pending SQEs and waits up to timeout for one
// completion, preferring the EXT_ARG timed wait and degrading to a
// polling loop on kernels without it.
func (r *Ring) enterWait(timeout time.Duration) error {
	if !r.noExtArg {
		ts := unix.Timespec{
			Sec:  int64(timeout / time.Second),
			Nsec: int64(timeout % time.Second),
		}
		arg := geteventsArg{Ts: uint64(uintptr(unsafe.Pointer(&ts)))}
		_, _, errno := unix.Syscall6(unix.SYS_IO_URING_ENTER,
			uintptr(r.fd), uintptr(r.toSubmit), 1,
			enterGetevents|enterExtArg,
			uintptr(unsafe.Pointer(&arg)), unsafe.Sizeof(arg))
		switch errno {
		case 0, unix.ETIME, unix.EINTR:
			r.toSubmit = 0
			return nil
		case unix.EINVAL:
			r.noExtArg = true
		default:
			return fmt.Errorf("io_uring_enter: %w", errno)
		}
	}

	// Fallback: submit, then poll the completion ring until the
	// deadline.
	if err := r.Submit(); err != nil {
		return err
	}
	deadline := time.Now().Add(timeout)
	for atomic.LoadUint32(r.cqHead) == atomic.LoadUint32(r.cqTail) {
		if !time.Now().Before(deadline) {
			return nil
		}
		time.Sleep(time.Millisecond)
	}
	return nil
}

func (r *Ring) enter(submit, minComplete uint32, flags uintptr, arg *geteventsArg) error {
	var argPtr uintptr
	var argSz uintptr
	if arg != nil {
		argPtr = uintptr(unsafe.Pointer(arg))
		argSz = unsafe.Sizeof(*arg)
	}
	for {
		_, _, errno := unix.Syscall6(unix.SYS_IO_URING_ENTER,
			uintptr(r.fd), uintptr(submit), uintptr(minComplete), flags, argPtr, argSz)
		switch errno {
		case 0:
			return nil
		case unix.EINTR:
			continue
		default:
			return fmt.Errorf("io_uring_enter: %w", errno)
		}
	}
}

// reap moves available CQEs into evs.
func (r *Ring) reap(evs []Event) int {
	n := 0
	head := atomic.LoadUint32(r.cqHead)
	tail := atomic.LoadUint32(r.cqTail)
	for n < len(evs) && head != tail {
		c := &r.cqes[head&*r.cqMask]
		evs[n] = Event{Token: c.UserData, Res: c.Res, Flags: c.Flags}
		head++
		n++
	}
	if n > 0 {
		atomic.StoreUint32(r.cqHead, head)
	}
	return n
}

// Features reports the feature bits the kernel returned at setup time.
func (r *Ring) Features() uint32 {
	return r.features
}

// Close tears down the stored ring: unmaps the rings and closes the
// ring file descriptor.
func (r *Ring) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	r.unmap()
	return unix.Close(r.fd)
}

func (r *Ring) unmap() {
	if r.sqeMem != nil {
		unix.Munmap(r.sqeMem)
		r.sqeMem = nil
	}
	shared := len(r.cqMem) > 0 && len(r.sqMem) > 0 && &r.cqMem[0] == &r.sqMem[0]
	if r.sqMem != nil {
		unix.Munmap(r.sqMem)
		r.sqMem = nil
	}
	if r.cqMem != nil && !shared {
		unix.Munmap(r.cqMem)
	}
	r.cqMem = nil
}

package inet_test

import (
	"encoding/binary"
	"testing"

	"github.com/momentics/hioload-aio/inet"
)

func TestInetAddrComponents(t *testing.T) {
	ip := inet.IPv4(10, 1, 2, 3)
	addr := inet.NewInetAddr(ip, 8080)
	if !addr.IP().Equal(ip) {
		t.Fatal("IP() does not round-trip")
	}
	if addr.Port() != 8080 {
		t.Fatalf("Port() = %d, want 8080", addr.Port())
	}
	if !addr.IsIPv4() || addr.IsIPv6() {
		t.Fatal("family mismatch")
	}

	v6 := inet.NewInetAddr(inet.IPv6Loopback, 23333)
	if !v6.IsIPv6() {
		t.Fatal("IPv6 family mismatch")
	}
	if v6.String() != "[::1]:23333" {
		t.Fatalf("String() = %q", v6.String())
	}
}

func TestInetAddrEqual(t *testing.T) {
	a := inet.NewInetAddr(inet.IPv4Loopback, 80)
	b := inet.NewInetAddr(inet.IPv4Loopback, 80)
	c := inet.NewInetAddr(inet.IPv4Loopback, 81)
	d := inet.NewInetAddr(inet.IPv6Loopback, 80)
	if !a.Equal(b) {
		t.Fatal("identical addresses unequal")
	}
	if a.Equal(c) || a.Equal(d) {
		t.Fatal("distinct addresses equal")
	}
}

func TestEndianHelpers(t *testing.T) {
	for _, v := range []uint16{0, 1, 0x1234, 0xFFFF} {
		if inet.NetToHost16(inet.HostToNet16(v)) != v {
			t.Fatalf("16-bit round-trip failed for %#x", v)
		}
	}
	for _, v := range []uint32{0, 1, 0x12345678, 0xFFFFFFFF} {
		if inet.NetToHost32(inet.HostToNet32(v)) != v {
			t.Fatalf("32-bit round-trip failed for %#x", v)
		}
	}
	// A network-order value must serialize big-endian in memory.
	var b [2]byte
	binary.NativeEndian.PutUint16(b[:], inet.HostToNet16(0x0102))
	if b[0] != 0x01 || b[1] != 0x02 {
		t.Fatalf("HostToNet16 layout = %#v, want big-endian", b)
	}
}

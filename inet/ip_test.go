package inet_test

import (
	"errors"
	"testing"

	"github.com/momentics/hioload-aio/inet"
)

func TestParseIPv4RoundTrip(t *testing.T) {
	cases := []struct {
		s string
		b [4]byte
	}{
		{"127.0.0.1", [4]byte{127, 0, 0, 1}},
		{"0.0.0.0", [4]byte{0, 0, 0, 0}},
		{"255.255.255.255", [4]byte{255, 255, 255, 255}},
		{"192.168.0.1", [4]byte{192, 168, 0, 1}},
		{"169.254.0.1", [4]byte{169, 254, 0, 1}},
		{"224.0.0.251", [4]byte{224, 0, 0, 251}},
	}
	for _, tc := range cases {
		parsed, err := inet.Parse(tc.s)
		if err != nil {
			t.Fatalf("Parse(%q): %v", tc.s, err)
		}
		built := inet.IPv4(tc.b[0], tc.b[1], tc.b[2], tc.b[3])
		if !parsed.Equal(built) {
			t.Errorf("Parse(%q) != IPv4(%v)", tc.s, tc.b)
		}
		if parsed.String() != tc.s {
			t.Errorf("String() = %q, want %q", parsed.String(), tc.s)
		}
	}
}

func TestParseInvalid(t *testing.T) {
	bad := []string{
		"",
		"255.123.255.345",
		"1.2.3",
		"1.2.3.4.5",
		"a.b.c.d",
		"1.2.3.4x",
		":::",
		"1:2:3:4:5:6:7:8:9",
		"12345::",
		"1::2::3",
	}
	for _, s := range bad {
		if _, err := inet.Parse(s); err == nil {
			t.Errorf("Parse(%q) succeeded, want error", s)
		}
	}
	if _, err := inet.Parse("255.123.255.345"); err != nil {
		var perr *inet.ParseError
		if !errors.As(err, &perr) {
			t.Errorf("Parse error is %T, want *ParseError", err)
		}
	}
}

func TestIPv4Predicates(t *testing.T) {
	lo := inet.IPv4(127, 0, 0, 1)
	if !lo.IsIPv4() || lo.IsIPv6() {
		t.Fatal("family of 127.0.0.1")
	}
	if !lo.IsIPv4Loopback() || lo.IsIPv4Any() || lo.IsIPv4Broadcast() ||
		lo.IsIPv4Private() || lo.IsIPv4LinkLocal() || lo.IsIPv4Multicast() {
		t.Fatal("predicates of 127.0.0.1")
	}
	if !lo.Equal(inet.IPv4Loopback) {
		t.Fatal("127.0.0.1 != IPv4Loopback")
	}
	if !lo.ToIPv4().Equal(lo) {
		t.Fatal("ToIPv4 of an IPv4 address must be identity")
	}

	if !inet.IPv4(0, 0, 0, 0).IsIPv4Any() {
		t.Fatal("0.0.0.0 is any")
	}
	if !inet.IPv4(255, 255, 255, 255).IsIPv4Broadcast() {
		t.Fatal("255.255.255.255 is broadcast")
	}
	for _, b := range [][4]byte{{10, 0, 0, 1}, {172, 16, 0, 1}, {172, 31, 255, 1}, {192, 168, 0, 1}} {
		if !inet.IPv4(b[0], b[1], b[2], b[3]).IsIPv4Private() {
			t.Errorf("%v should be private", b)
		}
	}
	if inet.IPv4(172, 32, 0, 1).IsIPv4Private() {
		t.Error("172.32.0.1 is not private")
	}
	if !inet.IPv4(169, 254, 1, 1).IsIPv4LinkLocal() {
		t.Error("169.254.1.1 is link-local")
	}
	if !inet.IPv4(224, 0, 0, 1).IsIPv4Multicast() || inet.IPv4(240, 0, 0, 1).IsIPv4Multicast() {
		t.Error("multicast range is 224.0.0.0/4")
	}
}

func TestIPv6Predicates(t *testing.T) {
	lo := inet.IPv6(0, 0, 0, 0, 0, 0, 0, 1)
	if !lo.IsIPv6() || lo.IsIPv4() {
		t.Fatal("family of ::1")
	}
	if !lo.IsIPv6Loopback() || lo.IsIPv6Any() || lo.IsIPv6Multicast() || lo.IsIPv4MappedIPv6() {
		t.Fatal("predicates of ::1")
	}
	if !lo.Equal(inet.IPv6Loopback) {
		t.Fatal("::1 != IPv6Loopback")
	}
	if !inet.IPv6(0, 0, 0, 0, 0, 0, 0, 0).IsIPv6Any() {
		t.Fatal(":: is any")
	}
	if !inet.IPv6(0xFF02, 0, 0, 0, 0, 0, 0, 1).IsIPv6Multicast() {
		t.Fatal("ff02::1 is multicast")
	}
}

func TestIPv4MappedRoundTrip(t *testing.T) {
	mapped, err := inet.Parse("::FFFF:FFFF:FFFF")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if !mapped.IsIPv4MappedIPv6() {
		t.Fatal("::ffff:ffff:ffff is IPv4-mapped")
	}
	if !mapped.ToIPv4().Equal(inet.IPv4Broadcast) {
		t.Fatalf("ToIPv4 = %v, want broadcast", mapped.ToIPv4())
	}
	if !mapped.ToIPv6().Equal(mapped) {
		t.Fatal("ToIPv6 of an IPv6 address must be identity")
	}

	v4 := inet.IPv4(1, 2, 3, 4)
	back := v4.ToIPv6()
	if !back.IsIPv4MappedIPv6() {
		t.Fatal("ToIPv6 of IPv4 must be mapped")
	}
	if !back.ToIPv4().Equal(v4) {
		t.Fatal("mapped conversion must round-trip")
	}

	embedded, err := inet.Parse("::ffff:1.2.3.4")
	if err != nil {
		t.Fatalf("Parse embedded: %v", err)
	}
	if !embedded.Equal(back) {
		t.Fatal("embedded IPv4 form must equal the mapped conversion")
	}
}

func TestIPv6String(t *testing.T) {
	cases := []struct{ in, out string }{
		{"::1", "::1"},
		{"::", "::"},
		{"1:2:3:4:5:6:7:8", "1:2:3:4:5:6:7:8"},
		{"2001:db8::1", "2001:db8::1"},
		{"fe80::1:0:0:1", "fe80::1:0:0:1"},
	}
	for _, tc := range cases {
		ip, err := inet.Parse(tc.in)
		if err != nil {
			t.Fatalf("Parse(%q): %v", tc.in, err)
		}
		if got := ip.String(); got != tc.out {
			t.Errorf("String(%q) = %q, want %q", tc.in, got, tc.out)
		}
	}
}

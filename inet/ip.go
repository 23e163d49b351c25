// File: inet/ip.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// IPAddr represents an IPv4 or IPv6 address. Bytes are kept in network
// order; IPv4 addresses occupy the first four bytes of the storage.

package inet

import "fmt"

// IPAddr is an IP address. The zero value is the IPv4 any address.
type IPAddr struct {
	v6 bool
	b  [16]byte
}

// Well-known addresses.
var (
	IPv4Loopback  = IPv4(127, 0, 0, 1)
	IPv4Any       = IPv4(0, 0, 0, 0)
	IPv4Broadcast = IPv4(255, 255, 255, 255)
	IPv6Loopback  = IPv6(0, 0, 0, 0, 0, 0, 0, 1)
	IPv6Any       = IPv6(0, 0, 0, 0, 0, 0, 0, 0)
)

// IPv4 creates an IPv4 address from four octets.
func IPv4(a, b, c, d byte) IPAddr {
	var ip IPAddr
	ip.b[0], ip.b[1], ip.b[2], ip.b[3] = a, b, c, d
	return ip
}

// IPv6 creates an IPv6 address from eight 16-bit groups in host order.
func IPv6(groups ...uint16) IPAddr {
	if len(groups) != 8 {
		panic("inet: IPv6 requires exactly 8 groups")
	}
	ip := IPAddr{v6: true}
	for i, g := range groups {
		ip.b[2*i] = byte(g >> 8)
		ip.b[2*i+1] = byte(g)
	}
	return ip
}

// ipv6FromSlice builds an IPv6 address from a 16-byte slice.
func ipv6FromSlice(b []byte) IPAddr {
	ip := IPAddr{v6: true}
	copy(ip.b[:], b[:16])
	return ip
}

// IsIPv4 reports whether this is an IPv4 address.
func (ip IPAddr) IsIPv4() bool { return !ip.v6 }

// IsIPv6 reports whether this is an IPv6 address.
func (ip IPAddr) IsIPv6() bool { return ip.v6 }

// Bytes returns the address bytes in network order: 4 bytes for IPv4,
// 16 for IPv6. The returned slice aliases the receiver's storage copy.
func (ip IPAddr) Bytes() []byte {
	if ip.v6 {
		return ip.b[:16:16]
	}
	return ip.b[:4:4]
}

// group returns the i-th 16-bit group of an IPv6 address in host order.
func (ip IPAddr) group(i int) uint16 {
	return uint16(ip.b[2*i])<<8 | uint16(ip.b[2*i+1])
}

// IsIPv4Loopback reports whether this is an address in 127.0.0.0/8.
func (ip IPAddr) IsIPv4Loopback() bool {
	return !ip.v6 && ip.b[0] == 127
}

// IsIPv4Any reports whether this is 0.0.0.0.
func (ip IPAddr) IsIPv4Any() bool {
	return !ip.v6 && ip.b[0] == 0 && ip.b[1] == 0 && ip.b[2] == 0 && ip.b[3] == 0
}

// IsIPv4Broadcast reports whether this is 255.255.255.255.
func (ip IPAddr) IsIPv4Broadcast() bool {
	return !ip.v6 && ip.b[0] == 255 && ip.b[1] == 255 && ip.b[2] == 255 && ip.b[3] == 255
}

// IsIPv4Private reports whether this address belongs to one of the
// RFC 1918 private ranges.
func (ip IPAddr) IsIPv4Private() bool {
	if ip.v6 {
		return false
	}
	switch {
	case ip.b[0] == 10:
		return true
	case ip.b[0] == 172 && ip.b[1] >= 16 && ip.b[1] <= 31:
		return true
	case ip.b[0] == 192 && ip.b[1] == 168:
		return true
	}
	return false
}

// IsIPv4LinkLocal reports whether this is an address in 169.254.0.0/16.
func (ip IPAddr) IsIPv4LinkLocal() bool {
	return !ip.v6 && ip.b[0] == 169 && ip.b[1] == 254
}

// IsIPv4Multicast reports whether this is an address in 224.0.0.0/4.
func (ip IPAddr) IsIPv4Multicast() bool {
	return !ip.v6 && ip.b[0] >= 224 && ip.b[0] <= 239
}

// IsIPv6Loopback reports whether this is ::1.
func (ip IPAddr) IsIPv6Loopback() bool {
	if !ip.v6 {
		return false
	}
	for i := 0; i < 15; i++ {
		if ip.b[i] != 0 {
			return false
		}
	}
	return ip.b[15] == 1
}

// IsIPv6Any reports whether this is ::.
func (ip IPAddr) IsIPv6Any() bool {
	if !ip.v6 {
		return false
	}
	for _, v := range ip.b {
		if v != 0 {
			return false
		}
	}
	return true
}

// IsIPv6Multicast reports whether this is an address in ff00::/8.
func (ip IPAddr) IsIPv6Multicast() bool {
	return ip.v6 && ip.b[0] == 0xFF
}

// IsIPv4MappedIPv6 reports whether this is an address in ::ffff:0:0/96.
func (ip IPAddr) IsIPv4MappedIPv6() bool {
	if !ip.v6 {
		return false
	}
	for i := 0; i < 10; i++ {
		if ip.b[i] != 0 {
			return false
		}
	}
	return ip.b[10] == 0xFF && ip.b[11] == 0xFF
}

// ToIPv4 converts this address to IPv4. IPv4 addresses are returned
// unchanged; for IPv6 the low four bytes are taken, which is meaningful
// only for IPv4-mapped addresses.
func (ip IPAddr) ToIPv4() IPAddr {
	if !ip.v6 {
		return ip
	}
	return IPv4(ip.b[12], ip.b[13], ip.b[14], ip.b[15])
}

// ToIPv6 converts this address to IPv6. IPv4 addresses become their
// IPv4-mapped form; IPv6 addresses are returned unchanged.
func (ip IPAddr) ToIPv6() IPAddr {
	if ip.v6 {
		return ip
	}
	return IPv6(0, 0, 0, 0, 0, 0xFFFF,
		uint16(ip.b[0])<<8|uint16(ip.b[1]),
		uint16(ip.b[2])<<8|uint16(ip.b[3]))
}

// Equal reports whether two addresses have the same family and bytes.
func (ip IPAddr) Equal(other IPAddr) bool {
	if ip.v6 != other.v6 {
		return false
	}
	if !ip.v6 {
		return ip.b[0] == other.b[0] && ip.b[1] == other.b[1] &&
			ip.b[2] == other.b[2] && ip.b[3] == other.b[3]
	}
	return ip.b == other.b
}

// String renders the address in its conventional textual form.
func (ip IPAddr) String() string {
	if !ip.v6 {
		return fmt.Sprintf("%d.%d.%d.%d", ip.b[0], ip.b[1], ip.b[2], ip.b[3])
	}

	// Find the longest run of zero groups to compress as "::".
	best, bestLen := -1, 1
	for i := 0; i < 8; {
		if ip.group(i) != 0 {
			i++
			continue
		}
		j := i
		for j < 8 && ip.group(j) == 0 {
			j++
		}
		if j-i > bestLen {
			best, bestLen = i, j-i
		}
		i = j
	}

	out := make([]byte, 0, 39)
	for i := 0; i < 8; i++ {
		if i == best {
			out = append(out, ':', ':')
			i += bestLen - 1
			continue
		}
		if i > 0 && out[len(out)-1] != ':' {
			out = append(out, ':')
		}
		out = append(out, []byte(fmt.Sprintf("%x", ip.group(i)))...)
	}
	if len(out) == 0 {
		return "::"
	}
	return string(out)
}

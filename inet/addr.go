// File: inet/addr.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package inet

import "fmt"

// InetAddr is a socket address: an IP address plus a TCP/UDP port.
// IPv6 flow info and scope id are carried for completeness; they are
// zero unless set explicitly.
type InetAddr struct {
	ip       IPAddr
	port     uint16
	flowInfo uint32
	scopeID  uint32
}

// NewInetAddr creates a socket address from an IP address and a port.
func NewInetAddr(ip IPAddr, port uint16) InetAddr {
	return InetAddr{ip: ip, port: port}
}

// IP returns the IP address part.
func (a InetAddr) IP() IPAddr { return a.ip }

// Port returns the port in host order.
func (a InetAddr) Port() uint16 { return a.port }

// IsIPv4 reports whether the address family is IPv4.
func (a InetAddr) IsIPv4() bool { return a.ip.IsIPv4() }

// IsIPv6 reports whether the address family is IPv6.
func (a InetAddr) IsIPv6() bool { return a.ip.IsIPv6() }

// FlowInfo returns the IPv6 flow information field.
func (a InetAddr) FlowInfo() uint32 { return a.flowInfo }

// ScopeID returns the IPv6 scope id.
func (a InetAddr) ScopeID() uint32 { return a.scopeID }

// SetScopeID sets the IPv6 scope id.
func (a *InetAddr) SetScopeID(id uint32) { a.scopeID = id }

// SetIP replaces the IP address part, switching family if needed.
func (a *InetAddr) SetIP(ip IPAddr) { a.ip = ip }

// Equal reports whether two socket addresses are identical.
func (a InetAddr) Equal(other InetAddr) bool {
	return a.port == other.port &&
		a.flowInfo == other.flowInfo &&
		a.scopeID == other.scopeID &&
		a.ip.Equal(other.ip)
}

// String renders the address as "ip:port", bracketing IPv6 addresses.
func (a InetAddr) String() string {
	if a.ip.IsIPv6() {
		return fmt.Sprintf("[%s]:%d", a.ip, a.port)
	}
	return fmt.Sprintf("%s:%d", a.ip, a.port)
}

// File: inet/doc.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

// Package inet provides IP and socket address types for the transport
// layer. IPAddr stores both IPv4 and IPv6 addresses in network byte
// order; InetAddr pairs an IPAddr with a port. Parsing failures are
// reported as errors, never as panics.
package inet

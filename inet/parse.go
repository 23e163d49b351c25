// File: inet/parse.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Textual IP address parsing. Strings containing a colon are parsed as
// IPv6, everything else as dotted-quad IPv4, mirroring the usual
// inet_pton family selection.

package inet

import "fmt"

// ParseError reports a malformed address string.
type ParseError struct {
	Input  string
	Reason string
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	return fmt.Sprintf("inet: invalid IP address %q: %s", e.Input, e.Reason)
}

// Parse parses an IPv4 dotted-quad or an IPv6 address string.
func Parse(s string) (IPAddr, error) {
	if s == "" {
		return IPAddr{}, &ParseError{Input: s, Reason: "empty string"}
	}
	for i := 0; i < len(s); i++ {
		if s[i] == ':' {
			return parseIPv6(s)
		}
	}
	return parseIPv4(s)
}

// MustParse is Parse that panics on malformed input. For constants and
// tests only.
func MustParse(s string) IPAddr {
	ip, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return ip
}

func parseIPv4(s string) (IPAddr, error) {
	var octets [4]byte
	idx := 0
	i := 0
	for idx < 4 {
		if i >= len(s) {
			return IPAddr{}, &ParseError{Input: s, Reason: "too few octets"}
		}
		v, n := 0, 0
		for i < len(s) && s[i] >= '0' && s[i] <= '9' {
			v = v*10 + int(s[i]-'0')
			n++
			i++
			if v > 255 {
				return IPAddr{}, &ParseError{Input: s, Reason: "octet out of range"}
			}
		}
		if n == 0 || n > 3 {
			return IPAddr{}, &ParseError{Input: s, Reason: "malformed octet"}
		}
		octets[idx] = byte(v)
		idx++
		if idx < 4 {
			if i >= len(s) || s[i] != '.' {
				return IPAddr{}, &ParseError{Input: s, Reason: "expected '.'"}
			}
			i++
		}
	}
	if i != len(s) {
		return IPAddr{}, &ParseError{Input: s, Reason: "trailing characters"}
	}
	return IPv4(octets[0], octets[1], octets[2], octets[3]), nil
}

func parseIPv6(s string) (IPAddr, error) {
	var b [16]byte
	ellipsis := -1 // byte index where "::" zeros are inserted
	i, j := 0, 0   // input cursor, output byte cursor

	if len(s) >= 2 && s[0] == ':' && s[1] == ':' {
		ellipsis = 0
		i = 2
		if i == len(s) {
			return ipv6FromSlice(b[:]), nil
		}
	}

	for j < 16 {
		// Hex group.
		v, n := 0, 0
		for i < len(s) {
			d := hexDigit(s[i])
			if d < 0 {
				break
			}
			v = v<<4 | d
			n++
			i++
			if n > 4 {
				return IPAddr{}, &ParseError{Input: s, Reason: "group too long"}
			}
		}
		if n == 0 {
			return IPAddr{}, &ParseError{Input: s, Reason: "missing group"}
		}

		// Embedded IPv4 tail, e.g. "::ffff:127.0.0.1".
		if i < len(s) && s[i] == '.' {
			if j+4 > 16 {
				return IPAddr{}, &ParseError{Input: s, Reason: "address too long"}
			}
			start := i - n
			v4, err := parseIPv4(s[start:])
			if err != nil {
				return IPAddr{}, &ParseError{Input: s, Reason: "bad embedded IPv4"}
			}
			copy(b[j:], v4.Bytes())
			j += 4
			i = len(s)
			break
		}

		b[j] = byte(v >> 8)
		b[j+1] = byte(v)
		j += 2

		if i == len(s) {
			break
		}
		if s[i] != ':' {
			return IPAddr{}, &ParseError{Input: s, Reason: "expected ':'"}
		}
		i++
		if i < len(s) && s[i] == ':' {
			if ellipsis >= 0 {
				return IPAddr{}, &ParseError{Input: s, Reason: "multiple '::'"}
			}
			ellipsis = j
			i++
			if i == len(s) {
				break
			}
		} else if i == len(s) {
			return IPAddr{}, &ParseError{Input: s, Reason: "trailing ':'"}
		}
	}

	if i != len(s) {
		return IPAddr{}, &ParseError{Input: s, Reason: "trailing characters"}
	}
	if j < 16 {
		if ellipsis < 0 {
			return IPAddr{}, &ParseError{Input: s, Reason: "too few groups"}
		}
		// Shift the tail right and zero-fill the gap.
		tail := j - ellipsis
		copy(b[16-tail:], b[ellipsis:j])
		for k := ellipsis; k < 16-tail; k++ {
			b[k] = 0
		}
	} else if ellipsis >= 0 {
		return IPAddr{}, &ParseError{Input: s, Reason: "'::' in full-length address"}
	}
	return ipv6FromSlice(b[:]), nil
}

func hexDigit(c byte) int {
	switch {
	case c >= '0' && c <= '9':
		return int(c - '0')
	case c >= 'a' && c <= 'f':
		return int(c-'a') + 10
	case c >= 'A' && c <= 'F':
		return int(c-'A') + 10
	}
	return -1
}

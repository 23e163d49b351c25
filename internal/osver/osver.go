// File: internal/osver/osver.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Kernel version probing. The io_uring muxer gates its setup flags on
// the running kernel; version numbers are packed into a single integer
// so comparisons stay cheap and readable.

package osver

// Version is a packed kernel version: major<<16 | minor<<8 | patch.
type Version uint32

// Make packs a version triple.
func Make(major, minor, patch uint8) Version {
	return Version(uint32(major)<<16 | uint32(minor)<<8 | uint32(patch))
}

// ParseRelease extracts the leading "major.minor.patch" triple from a
// utsname release string such as "6.8.0-45-generic". Parsing stops at
// the first character that is neither a digit nor a dot; missing
// components default to zero.
func ParseRelease(release string) Version {
	var parts [3]uint8
	idx := 0
	for i := 0; i < len(release); i++ {
		c := release[i]
		switch {
		case c >= '0' && c <= '9':
			parts[idx] = parts[idx]*10 + (c - '0')
		case c == '.':
			idx++
			if idx >= len(parts) {
				return Make(parts[0], parts[1], parts[2])
			}
		default:
			return Make(parts[0], parts[1], parts[2])
		}
	}
	return Make(parts[0], parts[1], parts[2])
}

//go:build linux
// +build linux

// File: internal/osver/osver_linux.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package osver

import "golang.org/x/sys/unix"

// Kernel returns the running Linux kernel version, or zero if uname
// fails.
func Kernel() Version {
	var name unix.Utsname
	if err := unix.Uname(&name); err != nil {
		return 0
	}
	release := name.Release[:]
	n := 0
	for n < len(release) && release[n] != 0 {
		n++
	}
	return ParseRelease(string(release[:n]))
}

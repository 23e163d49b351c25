//go:build !linux && !windows
// +build !linux,!windows

// File: affinity/affinity_stub.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package affinity

import "errors"

// pinPlatform is unavailable on this platform.
func pinPlatform(cpuID int) error {
	return errors.New("affinity: not supported on this platform")
}

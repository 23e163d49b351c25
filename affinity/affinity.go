// File: affinity/affinity.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Platform-neutral API for CPU affinity. Platform-specific
// implementations live in separate files guarded by build tags. The
// caller is expected to have locked its goroutine to an OS thread
// before pinning.

package affinity

// Pin binds the current OS thread to a given logical CPU on supported
// platforms. On unsupported platforms it returns an error.
func Pin(cpuID int) error {
	return pinPlatform(cpuID)
}

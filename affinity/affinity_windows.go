//go:build windows
// +build windows

// File: affinity/affinity_windows.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package affinity

import (
	"fmt"

	"golang.org/x/sys/windows"
)

var (
	modkernel32               = windows.NewLazySystemDLL("kernel32.dll")
	procSetThreadAffinityMask = modkernel32.NewProc("SetThreadAffinityMask")
	procGetCurrentThread      = modkernel32.NewProc("GetCurrentThread")
)

// pinPlatform sets the calling thread's affinity mask to a single CPU.
func pinPlatform(cpuID int) error {
	if cpuID < 0 || cpuID >= 64 {
		return fmt.Errorf("affinity: cpu %d out of mask range", cpuID)
	}
	thread, _, _ := procGetCurrentThread.Call()
	mask := uintptr(1) << uint(cpuID)
	prev, _, err := procSetThreadAffinityMask.Call(thread, mask)
	if prev == 0 {
		return fmt.Errorf("affinity: SetThreadAffinityMask: %v", err)
	}
	return nil
}

//go:build !aiodebug
// +build !aiodebug

// File: exec/owner_check.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package exec

// checkOwner is compiled out in release builds. Reference counts are
// plain integers, so touching a handle off its owning worker thread is
// undetected here; build with -tags aiodebug to enable the check.
func (fr *Frame) checkOwner() {}

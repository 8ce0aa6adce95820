// Copyright (c) 2026, Daniel Martí <mvdan@mvdan.cc>
// See LICENSE for licensing information

//go:build unix

package interp

import "syscall"

// getUmask reports the process umask without changing it.
func getUmask() int {
	old := syscall.Umask(0)
	syscall.Umask(old)
	return old
}

// setUmask sets the process umask and returns the previous value.
func setUmask(mask int) int {
	return syscall.Umask(mask)
}

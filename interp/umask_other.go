// Copyright (c) 2026, Daniel Martí <mvdan@mvdan.cc>
// See LICENSE for licensing information

//go:build !unix

package interp

// getUmask is a no-op on platforms without a process umask.
func getUmask() int { return 0 }

// setUmask is a no-op on platforms without a process umask.
func setUmask(mask int) int { return 0 }

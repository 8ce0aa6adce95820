// Copyright (c) 2026, Daniel Martí <mvdan@mvdan.cc>
// See LICENSE for licensing information

//go:build !unix

package interp

type ulimitResource struct {
	flag     byte
	resource int
	scale    uint64
}

// ulimitResources is empty on platforms without rlimit support, so
// "ulimit -a" prints nothing and every resource flag, including the
// default -f, is rejected as an invalid option.
var ulimitResources []ulimitResource

const ulimitUnlimited = ^uint64(0)

func getUlimit(resource int) (soft, hard uint64, err error) {
	return ulimitUnlimited, ulimitUnlimited, nil
}

func setUlimit(resource int, soft, hard uint64) error {
	return nil
}

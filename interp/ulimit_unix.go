// Copyright (c) 2026, Daniel Martí <mvdan@mvdan.cc>
// See LICENSE for licensing information

//go:build unix

package interp

import "golang.org/x/sys/unix"

// ulimitResource identifies one of the resources "ulimit" can report or set.
type ulimitResource struct {
	flag     byte
	resource int
	// scale converts between the shell-visible unit (blocks, KiB) and the
	// raw byte/count value [unix.Getrlimit] and [unix.Setrlimit] use.
	scale uint64
}

var ulimitResources = []ulimitResource{
	{'f', unix.RLIMIT_FSIZE, 512},
	{'n', unix.RLIMIT_NOFILE, 1},
	{'u', unix.RLIMIT_NPROC, 1},
	{'s', unix.RLIMIT_STACK, 1024},
	{'v', unix.RLIMIT_AS, 1024},
	{'c', unix.RLIMIT_CORE, 512},
	{'d', unix.RLIMIT_DATA, 1024},
	{'m', unix.RLIMIT_RSS, 1024},
}

const ulimitUnlimited = unix.RLIM_INFINITY

func getUlimit(resource int) (soft, hard uint64, err error) {
	var rl unix.Rlimit
	if err := unix.Getrlimit(resource, &rl); err != nil {
		return 0, 0, err
	}
	return rl.Cur, rl.Max, nil
}

func setUlimit(resource int, soft, hard uint64) error {
	return unix.Setrlimit(resource, &unix.Rlimit{Cur: soft, Max: hard})
}

// Copyright (c) 2026, Daniel Martí <mvdan@mvdan.cc>
// See LICENSE for licensing information

package interp

import "strconv"

// ulimitName gives the bash-familiar label printed by "ulimit -a" for each
// resource, along with the unit its numbers are reported in.
func ulimitName(flag byte) (label, unit string) {
	switch flag {
	case 'f':
		return "file size", "blocks"
	case 'n':
		return "open files", ""
	case 'u':
		return "max user processes", ""
	case 's':
		return "stack size", "kbytes"
	case 'v':
		return "virtual memory", "kbytes"
	case 'c':
		return "core file size", "blocks"
	case 'd':
		return "data seg size", "kbytes"
	case 'm':
		return "max memory size", "kbytes"
	}
	return "", ""
}

func ulimitByFlag(flag byte) (ulimitResource, bool) {
	for _, res := range ulimitResources {
		if res.flag == flag {
			return res, true
		}
	}
	return ulimitResource{}, false
}

// ulimitFormat renders a raw rlimit value in the shell-visible unit for res,
// using "unlimited" for [ulimitUnlimited].
func ulimitFormat(res ulimitResource, raw uint64) string {
	if raw == ulimitUnlimited {
		return "unlimited"
	}
	if res.scale == 0 {
		return strconv.FormatUint(raw, 10)
	}
	return strconv.FormatUint(raw/res.scale, 10)
}

func ulimitParse(res ulimitResource, arg string) (uint64, error) {
	if arg == "unlimited" {
		return ulimitUnlimited, nil
	}
	n, err := strconv.ParseUint(arg, 10, 64)
	if err != nil {
		return 0, err
	}
	if res.scale == 0 {
		return n, nil
	}
	return n * res.scale, nil
}

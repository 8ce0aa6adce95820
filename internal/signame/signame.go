// Copyright (c) 2026, Daniel Martí <mvdan@mvdan.cc>
// See LICENSE for licensing information

// Package signame maps POSIX signal names, as used by the trap builtin
// ("HUP", "SIGHUP", "15", ...), to and from [syscall.Signal] values.
// The known name table is platform-specific: see signame_unix.go and
// signame_other.go.
package signame

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"syscall"
)

var byNum = func() map[syscall.Signal]string {
	m := make(map[syscall.Signal]string, len(byName))
	for name, sig := range byName {
		m[sig] = name
	}
	return m
}()

// Lookup resolves a trap signal specifier such as "TERM", "SIGTERM", or
// "15" to a [syscall.Signal].
func Lookup(spec string) (syscall.Signal, error) {
	up := strings.TrimPrefix(strings.ToUpper(spec), "SIG")
	if sig, ok := byName[up]; ok {
		return sig, nil
	}
	if n, err := strconv.Atoi(spec); err == nil {
		return syscall.Signal(n), nil
	}
	return 0, fmt.Errorf("invalid signal specification %q", spec)
}

// Name returns sig's canonical "SIG"-prefixed name, e.g. "SIGTERM", or a
// numeric fallback such as "SIG33" for a signal outside the known table.
func Name(sig syscall.Signal) string {
	if name, ok := byNum[sig]; ok {
		return "SIG" + name
	}
	return fmt.Sprintf("SIG%d", int(sig))
}

// Names returns the known signal names without the "SIG" prefix, sorted
// alphabetically, as printed by "trap -l".
func Names() []string {
	names := make([]string, 0, len(byName))
	for name := range byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

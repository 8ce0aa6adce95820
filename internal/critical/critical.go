// Copyright (c) 2026, Daniel Martí <mvdan@mvdan.cc>
// See LICENSE for licensing information

// Package critical implements a mutual-exclusion discipline for state that
// a background goroutine and the main interpreter loop both touch: code
// that must not be observed half-updated calls Enter before and Leave
// after (or Section, which wraps a func with both), and any goroutine
// reading or writing the same state goes through the same Guard. Unlike a
// plain [sync.Mutex], callers are expected to go through Section rather
// than holding a Guard across a blocking operation; Guard is not
// reentrant, so a critical region must never call back into another
// critical region on the same Guard from the same goroutine.
package critical

import "sync"

// Guard serializes access to state shared between goroutines. The zero
// value is ready to use.
type Guard struct {
	mu sync.Mutex
}

// Enter marks the start of a region that must not be observed partway
// through by another goroutine using the same Guard.
func (g *Guard) Enter() {
	g.mu.Lock()
}

// Leave marks the end of a region started by Enter.
func (g *Guard) Leave() {
	g.mu.Unlock()
}

// Section runs fn as a critical region, calling Enter before and Leave
// after even if fn panics.
func (g *Guard) Section(fn func()) {
	g.Enter()
	defer g.Leave()
	fn()
}

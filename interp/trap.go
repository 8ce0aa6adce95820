// Copyright (c) 2026, Daniel Martí <mvdan@mvdan.cc>
// See LICENSE for licensing information

package interp

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/smoosh-shell/smoosh/internal/signame"
)

// setTrap records callback as the trap action for the named signal (e.g.
// "TERM", "HUP", without the "SIG" prefix). An empty callback clears the
// trap and restores the signal's default disposition. name is validated via
// [signame.Lookup] before being recorded.
func (r *Runner) setTrap(name, callback string) error {
	sig, err := signame.Lookup(name)
	if err != nil {
		return err
	}
	if callback == "" {
		delete(r.traps, name)
		if stop, ok := r.trapStop[name]; ok {
			stop()
			delete(r.trapStop, name)
		}
		return nil
	}
	if r.traps == nil {
		r.traps = make(map[string]string)
	}
	r.traps[name] = callback
	if _, watching := r.trapStop[name]; !watching {
		r.startTrapSignal(name, sig)
	}
	return nil
}

// startTrapSignal starts a goroutine that queues name's trap every time sig
// is delivered, until the returned stop function (recorded in r.trapStop)
// is called by setTrap clearing the trap.
func (r *Runner) startTrapSignal(name string, sig os.Signal) {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, sig)
	done := make(chan struct{})
	if r.trapStop == nil {
		r.trapStop = make(map[string]func())
	}
	r.trapStop[name] = func() {
		signal.Stop(ch)
		close(done)
	}
	go func() {
		for {
			select {
			case <-ch:
				r.queueTrap(name)
			case <-done:
				return
			}
		}
	}()
}

// queueTrap records that name's trap should run at the next safe point. It
// is called by the OS signal-delivery goroutine started by
// startTrapSignal, so it goes through critical to avoid racing
// runPendingTraps.
func (r *Runner) queueTrap(name string) {
	r.critical.Section(func() {
		r.pendingTraps = append(r.pendingTraps, name)
	})
}

// runPendingTraps runs any trap callbacks queued by queueTrap since the
// last call. It is called once per statement, the same boundary at which
// the "errexit" option and the ERR trap are already observed, rather than
// interrupting a command mid-execution.
func (r *Runner) runPendingTraps(ctx context.Context) {
	var pending []string
	r.critical.Section(func() {
		pending, r.pendingTraps = r.pendingTraps, nil
	})
	for _, name := range pending {
		if callback, ok := r.traps[name]; ok {
			r.trapCallback(ctx, callback, fmt.Sprintf("SIG%s trap", name))
		}
	}
}

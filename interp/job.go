// Copyright (c) 2017, Daniel Martí <mvdan@mvdan.cc>
// See LICENSE for licensing information

package interp

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/smoosh-shell/smoosh/syntax"
)

// stmtString renders st as shell source, for display in "jobs" and "fg"
// output. Printer errors are ignored; the job command is cosmetic.
func stmtString(st *syntax.Stmt) string {
	var buf bytes.Buffer
	syntax.NewPrinter().Print(&buf, st)
	return strings.TrimRight(buf.String(), "\n")
}

// JobState describes the current state of a [Job].
type JobState uint8

const (
	JobRunning JobState = iota
	JobDone
)

func (s JobState) String() string {
	if s == JobRunning {
		return "Running"
	}
	return "Done"
}

// Job is one entry in a [jobTable]: a pipeline launched in the background
// with "&", tracked by its 1-indexed job number alongside the "g"-prefixed
// pid already used by bgProc and the "wait" builtin.
type Job struct {
	ID      int
	Pid     int // index into Runner.bgProcs, 1-indexed; printed as "g<Pid>"
	Command string

	bg bgProc
}

// State reports whether the job has finished.
func (j *Job) State() JobState {
	select {
	case <-j.bg.done:
		return JobDone
	default:
		return JobRunning
	}
}

// ExitStatus returns the job's exit status. It is only meaningful once
// [Job.State] reports [JobDone].
func (j *Job) ExitStatus() exitStatus {
	return *j.bg.exit
}

func (j *Job) String() string {
	mark := " "
	return fmt.Sprintf("[%d]%s %-8s %s", j.ID, mark, j.State(), j.Command)
}

// jobTable tracks background jobs for one interpreter tree. It is shared by
// pointer with every subshell derived from the same top-level Runner, the
// same way bgProcs is, and is guarded by [Runner.critical] against the
// signal-handling goroutine.
type jobTable struct {
	list     []*Job
	current  *Job
	previous *Job
}

func newJobTable() *jobTable {
	return &jobTable{}
}

// add registers a newly launched background job and returns it.
func (jt *jobTable) add(pid int, command string, bg bgProc) *Job {
	j := &Job{ID: len(jt.list) + 1, Pid: pid, Command: command, bg: bg}
	jt.list = append(jt.list, j)
	jt.previous = jt.current
	jt.current = j
	return j
}

// running returns the jobs that have not yet finished, in launch order.
func (jt *jobTable) running() []*Job {
	var list []*Job
	for _, j := range jt.list {
		if j.State() == JobRunning {
			list = append(list, j)
		}
	}
	return list
}

// bySpec resolves a job specifier as used by jobs/fg/bg/wait: "%1" (by
// number), "%%" or "%+" (current job), "%-" (previous job), "%foo" (job whose
// command starts with foo), or "%?foo" (job whose command contains foo).
func (jt *jobTable) bySpec(spec string) (*Job, error) {
	spec = strings.TrimPrefix(spec, "%")
	switch spec {
	case "", "%", "+":
		if jt.current == nil {
			return nil, fmt.Errorf("no current job")
		}
		return jt.current, nil
	case "-":
		if jt.previous == nil {
			return nil, fmt.Errorf("no previous job")
		}
		return jt.previous, nil
	}
	if n, err := strconv.Atoi(spec); err == nil {
		for _, j := range jt.list {
			if j.ID == n {
				return j, nil
			}
		}
		return nil, fmt.Errorf("job %s not found", spec)
	}
	if rest, ok := strings.CutPrefix(spec, "?"); ok {
		return jt.find(func(j *Job) bool { return strings.Contains(j.Command, rest) })
	}
	return jt.find(func(j *Job) bool { return strings.HasPrefix(j.Command, spec) })
}

func (jt *jobTable) find(match func(*Job) bool) (*Job, error) {
	var found *Job
	for _, j := range jt.list {
		if !match(j) {
			continue
		}
		if found != nil {
			return nil, fmt.Errorf("ambiguous job spec")
		}
		found = j
	}
	if found == nil {
		return nil, fmt.Errorf("no such job")
	}
	return found, nil
}

// jobsBuiltin implements the "jobs" builtin: list the runner's known
// background jobs, most recently launched last.
func (r *Runner) jobsBuiltin(args []string) exitStatus {
	var exit exitStatus
	list := r.jobs.list
	if len(args) > 0 {
		list = nil
		for _, arg := range args {
			j, err := r.jobs.bySpec(arg)
			if err != nil {
				r.errf("jobs: %v\n", err)
				exit.code = 1
				continue
			}
			list = append(list, j)
		}
	}
	for _, j := range list {
		r.outf("%s\n", j)
	}
	return exit
}

// fgBuiltin implements "fg": bring a background job to the foreground by
// waiting for it to finish and adopting its exit status. There is no real
// process group to bring to the controlling terminal here, since background
// jobs run as goroutines rather than host processes; waiting for completion
// is the closest equivalent this interpreter can offer.
func (r *Runner) fgBuiltin(args []string) exitStatus {
	spec := "%%"
	if len(args) > 0 {
		spec = args[0]
	}
	j, err := r.jobs.bySpec(spec)
	if err != nil {
		r.errf("fg: %v\n", err)
		return exitStatus{code: 1}
	}
	r.jobs.previous = r.jobs.current
	r.jobs.current = j
	r.outf("%s\n", j.Command)
	<-j.bg.done
	return j.ExitStatus()
}

// bgBuiltin implements "bg": report that a stopped job has resumed running
// in the background. Every job tracked here already runs in the background
// as soon as it is launched (there is no job-control "stop" signal to a
// goroutine), so this only validates the job spec and reports it.
func (r *Runner) bgBuiltin(args []string) exitStatus {
	spec := "%%"
	if len(args) > 0 {
		spec = args[0]
	}
	j, err := r.jobs.bySpec(spec)
	if err != nil {
		r.errf("bg: %v\n", err)
		return exitStatus{code: 1}
	}
	r.outf("[%d]+ %s &\n", j.ID, j.Command)
	return exitStatus{}
}

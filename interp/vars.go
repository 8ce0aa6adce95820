// Copyright (c) 2017, Daniel Martí <mvdan@mvdan.cc>
// See LICENSE for licensing information

package interp

import (
	"maps"
	"os"
	"runtime"
	"slices"
	"strconv"
	"strings"

	"github.com/smoosh-shell/smoosh/expand"
	"github.com/smoosh-shell/smoosh/syntax"
)

// overlayEnviron is a [expand.WriteEnviron] that shadows a parent environment
// with a local set of variables. It backs [Runner.writeEnv], and is layered
// once per function call (see funcScope) and once per subshell, so that
// variable writes in an inner scope don't necessarily escape to the outer
// one.
type overlayEnviron struct {
	parent expand.Environ
	values map[string]expand.Variable

	// funcScope marks an overlay introduced by a function call. Within such
	// a scope, a plain assignment to a name that isn't already local writes
	// through to the parent scope, matching the "local" builtin's semantics;
	// only variables explicitly declared with vr.Local are kept in values.
	funcScope bool
}

// newOverlayEnviron builds the environment used by a subshell. A background
// subshell runs concurrently with its parent, so its variables are copied
// eagerly to avoid racing on the parent's map; a foreground subshell runs
// synchronously, so it can cheaply read through to the parent instead.
func newOverlayEnviron(parent expand.WriteEnviron, background bool) *overlayEnviron {
	enc := &overlayEnviron{parent: parent}
	if background {
		enc.values = make(map[string]expand.Variable)
		parent.Each(func(name string, vr expand.Variable) bool {
			enc.values[name] = vr
			return true
		})
		enc.parent = nil
	}
	return enc
}

func (o *overlayEnviron) Get(name string) expand.Variable {
	if vr, ok := o.values[name]; ok {
		return vr
	}
	if o.parent != nil {
		return o.parent.Get(name)
	}
	return expand.Variable{}
}

func (o *overlayEnviron) Set(name string, vr expand.Variable) error {
	if !vr.Local && o.funcScope {
		if _, ok := o.values[name]; !ok {
			if parent, ok := o.parent.(expand.WriteEnviron); ok {
				return parent.Set(name, vr)
			}
		}
	}
	if o.values == nil {
		o.values = make(map[string]expand.Variable)
	}
	o.values[name] = vr
	return nil
}

func (o *overlayEnviron) Each(fn func(name string, vr expand.Variable) bool) {
	seen := make(map[string]bool, len(o.values))
	if o.parent != nil {
		stopped := false
		o.parent.Each(func(name string, vr expand.Variable) bool {
			seen[name] = true
			if ov, ok := o.values[name]; ok {
				if !ov.Declared() {
					return true // deleted in this overlay
				}
				vr = ov
			}
			if !fn(name, vr) {
				stopped = true
				return false
			}
			return true
		})
		if stopped {
			return
		}
	}
	for name, vr := range o.values {
		if seen[name] || !vr.Declared() {
			continue
		}
		if !fn(name, vr) {
			return
		}
	}
}

// lookupVar resolves name to its current value, covering the special
// parameters ($@, $?, $$, and so on) before falling back to the variable
// store.
func (r *Runner) lookupVar(name string) expand.Variable {
	if name == "" {
		panic("variable name must not be empty")
	}
	switch name {
	case "#":
		return expand.Variable{Set: true, Kind: expand.String, Str: strconv.Itoa(len(r.Params))}
	case "@", "*":
		return expand.Variable{Set: true, Kind: expand.Indexed, List: r.Params}
	case "?":
		return expand.Variable{Set: true, Kind: expand.String, Str: strconv.Itoa(int(r.lastExit.code))}
	case "$":
		return expand.Variable{Set: true, Kind: expand.String, Str: strconv.Itoa(os.Getpid())}
	case "PPID":
		return expand.Variable{Set: true, Kind: expand.String, Str: strconv.Itoa(os.Getppid())}
	case "DIRSTACK":
		return expand.Variable{Set: true, Kind: expand.Indexed, List: r.dirStack}
	case "0":
		if r.filename != "" {
			return expand.Variable{Set: true, Kind: expand.String, Str: r.filename}
		}
		return expand.Variable{Set: true, Kind: expand.String, Str: "gosh"}
	case "1", "2", "3", "4", "5", "6", "7", "8", "9":
		i := int(name[0] - '1')
		if i < len(r.Params) {
			return expand.Variable{Set: true, Kind: expand.String, Str: r.Params[i]}
		}
		return expand.Variable{Set: true, Kind: expand.String, Str: ""}
	}
	if r.writeEnv != nil {
		if vr := r.writeEnv.Get(name); vr.Declared() {
			return vr
		}
		if runtime.GOOS == "windows" {
			if vr := r.writeEnv.Get(strings.ToUpper(name)); vr.Declared() {
				return vr
			}
		}
	}
	if r.opts[optNoUnset] {
		r.errf("%s: unbound variable\n", name)
		r.exit.code = 1
		r.exit.exiting = true
	}
	return expand.Variable{}
}

// envGet is a convenience wrapper for code that only cares about a
// variable's string value, such as $PWD or $OPTIND.
func (r *Runner) envGet(name string) string {
	return r.lookupVar(name).String()
}

// setVar writes vr under name, honoring read-only variables and the
// "allexport" option. Arrays are never exported, matching Bash.
func (r *Runner) setVar(name string, vr expand.Variable) {
	r.critical.Section(func() {
		r.setVarLocked(name, vr)
	})
}

// setVarLocked is setVar's body, factored out so that callers which already
// hold r.critical (such as setVarWithIndexLocked) can reuse it without
// re-entering the guard.
func (r *Runner) setVarLocked(name string, vr expand.Variable) {
	cur := r.lookupVar(name)
	if cur.ReadOnly && vr.Kind != expand.KeepValue {
		r.errf("%s: readonly variable\n", name)
		r.exit.code = 1
		return
	}
	if vr.Kind == expand.KeepValue {
		vr.Kind, vr.Str, vr.List, vr.Map, vr.Set = cur.Kind, cur.Str, cur.List, cur.Map, cur.Set
	}
	switch vr.Kind {
	case expand.Indexed, expand.Associative:
		vr.Exported = false
	default:
		if r.opts[optAllExport] {
			vr.Exported = true
		}
	}
	if err := r.writeEnv.Set(name, vr); err != nil {
		r.errf("%s: %v\n", name, err)
		r.exit.code = 1
	}
}

// setVarString is a convenience wrapper to set a plain string variable.
func (r *Runner) setVarString(name, value string) {
	r.setVar(name, expand.Variable{Set: true, Kind: expand.String, Str: value})
}

// delVar unsets name, refusing to touch read-only variables.
func (r *Runner) delVar(name string) {
	r.critical.Section(func() {
		vr := r.lookupVar(name)
		if vr.ReadOnly {
			r.errf("%s: readonly variable\n", name)
			r.exit.code = 1
			return
		}
		r.writeEnv.Set(name, expand.Variable{})
	})
}

func (r *Runner) setFunc(name string, body *syntax.Stmt) {
	if r.Funcs == nil {
		r.Funcs = make(map[string]*syntax.Stmt, 4)
	}
	r.Funcs[name] = body
}

// assignVal computes the new value of a variable being assigned to by as,
// preserving prev's attributes (local, exported, read-only) and only
// changing its value. valType, one of "", "-a", "-A", or "-n", overrides how
// an array literal without a prior value is interpreted.
func (r *Runner) assignVal(prev expand.Variable, as *syntax.Assign, valType string) expand.Variable {
	vr := prev
	vr.Set = true
	if as.Naked {
		return prev
	}
	if as.Value != nil {
		s := r.literal(as.Value)
		if as.Append && prev.IsSet() {
			switch prev.Kind {
			case expand.Indexed:
				list := slices.Clone(prev.List)
				if len(list) == 0 {
					list = append(list, "")
				}
				list[0] += s
				vr.Kind, vr.List, vr.Str, vr.Map = expand.Indexed, list, "", nil
				return vr
			case expand.Associative:
				return vr // appending a bare string to an associative array is a no-op
			default:
				vr.Kind, vr.Str, vr.List, vr.Map = expand.String, prev.Str+s, nil, nil
				return vr
			}
		}
		vr.Kind, vr.Str, vr.List, vr.Map = expand.String, s, nil, nil
		return vr
	}
	if as.Array == nil {
		vr.Kind, vr.Str, vr.List, vr.Map = expand.String, "", nil, nil
		return vr
	}
	elems := as.Array.List
	if valType == "" {
		valType = "-a"
	}
	if valType == "-A" {
		amap := make(map[string]string, len(elems))
		for _, w := range elems {
			k, v, _ := strings.Cut(r.literal(&w), "=")
			amap[k] = v
		}
		vr.Kind, vr.Map, vr.Str, vr.List = expand.Associative, amap, "", nil
		return vr
	}
	strs := make([]string, len(elems))
	for i, w := range elems {
		strs[i] = r.literal(&w)
	}
	if as.Append && prev.IsSet() {
		switch prev.Kind {
		case expand.Indexed:
			strs = append(slices.Clone(prev.List), strs...)
		case expand.String:
			strs = append([]string{prev.Str}, strs...)
		}
	}
	vr.Kind, vr.List, vr.Str, vr.Map = expand.Indexed, strs, "", nil
	return vr
}

// indexIsQuotedWord reports whether index is a single quoted word, which
// Bash treats as an associative array key rather than an arithmetic
// expression, e.g. arr[foo]=bar defaulting to an indexed array but
// arr["foo"]=bar hinting at an associative one when arr doesn't exist yet.
func indexIsQuotedWord(index syntax.ArithmExpr) bool {
	w, ok := index.(*syntax.Word)
	if !ok || len(w.Parts) != 1 {
		return false
	}
	switch w.Parts[0].(type) {
	case *syntax.DblQuoted, *syntax.SglQuoted:
		return true
	}
	return false
}

// setVarWithIndex assigns vr.Str to prev at the given array index, building
// an indexed or associative array out of prev's current value as needed.
// If index is nil, this is equivalent to setVar.
func (r *Runner) setVarWithIndex(prev expand.Variable, name string, index syntax.ArithmExpr, vr expand.Variable) {
	r.critical.Section(func() {
		r.setVarWithIndexLocked(prev, name, index, vr)
	})
}

func (r *Runner) setVarWithIndexLocked(prev expand.Variable, name string, index syntax.ArithmExpr, vr expand.Variable) {
	if prev.ReadOnly {
		r.errf("%s: readonly variable\n", name)
		r.exit.code = 1
		return
	}
	if index == nil {
		r.setVarLocked(name, vr)
		return
	}
	valStr := vr.Str

	out := prev
	out.Set = true
	if prev.Kind == expand.Associative ||
		(prev.Kind != expand.Indexed && prev.Kind != expand.String && indexIsQuotedWord(index)) {
		w, ok := index.(*syntax.Word)
		if !ok {
			return
		}
		amap := maps.Clone(prev.Map)
		if amap == nil {
			amap = make(map[string]string)
		}
		amap[r.literal(w)] = valStr
		out.Kind, out.Map, out.Str, out.List = expand.Associative, amap, "", nil
		r.setVarLocked(name, out)
		return
	}

	var list []string
	switch prev.Kind {
	case expand.String:
		list = []string{prev.Str}
	case expand.Indexed:
		list = slices.Clone(prev.List)
	}
	k := r.arithm(index)
	if k < 0 {
		r.errf("%s: bad array index\n", name)
		r.exit.code = 1
		return
	}
	for len(list) <= k {
		list = append(list, "")
	}
	list[k] = valStr
	out.Kind, out.List, out.Str, out.Map = expand.Indexed, list, "", nil
	r.setVarLocked(name, out)
}

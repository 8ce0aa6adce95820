// Package coreutils provides an exec-handler middleware that answers,
// ahead of the next handler's PATH search, for a handful of common utilities
// (cat, cp, rm, find, ls, ...) from an embedded, pure-Go implementation
// instead of exec'ing a binary off $PATH.
//
// This is most useful when embedding the interpreter on a system where the
// host coreutils are absent or unreliable (containers built FROM scratch,
// Windows, stripped-down init images): a script that calls "rm -rf tmp/"
// keeps working even with no /bin/rm in view.
package coreutils

import (
	"context"

	"github.com/u-root/u-root/pkg/core"
	"github.com/u-root/u-root/pkg/core/base64"
	"github.com/u-root/u-root/pkg/core/cat"
	"github.com/u-root/u-root/pkg/core/chmod"
	"github.com/u-root/u-root/pkg/core/cp"
	"github.com/u-root/u-root/pkg/core/find"
	"github.com/u-root/u-root/pkg/core/gzip"
	"github.com/u-root/u-root/pkg/core/ls"
	"github.com/u-root/u-root/pkg/core/mkdir"
	"github.com/u-root/u-root/pkg/core/mktemp"
	"github.com/u-root/u-root/pkg/core/mv"
	"github.com/u-root/u-root/pkg/core/rm"
	"github.com/u-root/u-root/pkg/core/shasum"
	"github.com/u-root/u-root/pkg/core/tar"
	"github.com/u-root/u-root/pkg/core/touch"
	"github.com/u-root/u-root/pkg/core/xargs"

	"github.com/smoosh-shell/smoosh/interp"
)

var builders = map[string]func() core.Command{
	"cat":    func() core.Command { return cat.New() },
	"chmod":  func() core.Command { return chmod.New() },
	"cp":     func() core.Command { return cp.New() },
	"find":   func() core.Command { return find.New() },
	"ls":     func() core.Command { return ls.New() },
	"mkdir":  func() core.Command { return mkdir.New() },
	"mv":     func() core.Command { return mv.New() },
	"rm":     func() core.Command { return rm.New() },
	"touch":  func() core.Command { return touch.New() },
	"xargs":  func() core.Command { return xargs.New() },
	"base64": func() core.Command { return base64.New() },
	"gzcat":  func() core.Command { return gzip.New("gzcat") },
	"gzip":   func() core.Command { return gzip.New("gzip") },
	"gunzip": func() core.Command { return gzip.New("gunzip") },
	"mktemp": func() core.Command { return mktemp.New() },
	"shasum": func() core.Command { return shasum.New() },
	"tar":    func() core.Command { return tar.New() },
}

// ExecHandler wraps next so that names in builders are served locally; any
// other name falls through to next, which is typically the real PATH search.
func ExecHandler(next interp.ExecHandlerFunc) interp.ExecHandlerFunc {
	return func(ctx context.Context, args []string) error {
		newCmd, ok := builders[args[0]]
		if !ok {
			return next(ctx, args)
		}

		hc := interp.HandlerCtx(ctx)
		cmd := newCmd()
		cmd.SetIO(hc.Stdin, hc.Stdout, hc.Stderr)
		cmd.SetWorkingDir(hc.Dir)
		cmd.SetLookupEnv(func(key string) (string, bool) {
			v := hc.Env.Get(key)
			return v.Str, v.Set
		})
		if err := cmd.RunContext(ctx, args[1:]...); err != nil {
			return &Error{err: err}
		}
		return nil
	}
}

// Copyright (c) 2017, Daniel Martí <mvdan@mvdan.cc>
// See LICENSE for licensing information

package interp

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"regexp"

	"golang.org/x/term"

	"github.com/smoosh-shell/smoosh/expand"
	"github.com/smoosh-shell/smoosh/syntax"
)

// bashTest evaluates expr, the parsed condition of a [[ ]] test clause or a
// classic test/[ invocation, and returns a non-empty string for true and an
// empty string for false. posix is true when expr came from the test/[
// builtin, where bare words are already fully expanded strings rather than
// words that still need expansion.
func (r *Runner) bashTest(ctx context.Context, expr syntax.TestExpr, posix bool) string {
	switch x := expr.(type) {
	case *syntax.Word:
		return r.literal(x)
	case *syntax.ParenTest:
		return r.bashTest(ctx, x.X, posix)
	case *syntax.BinaryTest:
		if r.binTest(ctx, x.Op, r.bashTest(ctx, x.X, posix), r.bashTest(ctx, x.Y, posix)) {
			return "1"
		}
		return ""
	case *syntax.UnaryTest:
		if r.unTest(ctx, x.Op, r.bashTest(ctx, x.X, posix)) {
			return "1"
		}
		return ""
	}
	return ""
}

func (r *Runner) binTest(ctx context.Context, op syntax.BinTestOperator, x, y string) bool {
	switch op {
	case syntax.TsNewer:
		i1, err1 := r.stat(ctx, x)
		i2, err2 := r.stat(ctx, y)
		if err1 != nil || err2 != nil {
			return false
		}
		return i1.ModTime().After(i2.ModTime())
	case syntax.TsOlder:
		i1, err1 := r.stat(ctx, x)
		i2, err2 := r.stat(ctx, y)
		if err1 != nil || err2 != nil {
			return false
		}
		return i1.ModTime().Before(i2.ModTime())
	case syntax.TsDevIno:
		i1, err1 := r.stat(ctx, x)
		i2, err2 := r.stat(ctx, y)
		if err1 != nil || err2 != nil {
			return false
		}
		return os.SameFile(i1, i2)
	case syntax.TsEql:
		return atoi(x) == atoi(y)
	case syntax.TsNeq:
		return atoi(x) != atoi(y)
	case syntax.TsLeq:
		return atoi(x) <= atoi(y)
	case syntax.TsGeq:
		return atoi(x) >= atoi(y)
	case syntax.TsLss:
		return atoi(x) < atoi(y)
	case syntax.TsGtr:
		return atoi(x) > atoi(y)
	case syntax.AndTest:
		return x != "" && y != ""
	case syntax.OrTest:
		return x != "" || y != ""
	case syntax.TsReMatch:
		re, err := regexp.Compile(y)
		if err != nil {
			r.errf("%v\n", err)
			return false
		}
		return re.MatchString(x)
	case syntax.TsEqual:
		return x == y
	case syntax.TsNequal:
		return x != y
	case syntax.TsBefore:
		return x < y
	case syntax.TsAfter:
		return x > y
	default:
		panic(fmt.Sprintf("unhandled binary test op: %v", op))
	}
}

func (r *Runner) statMode(ctx context.Context, name string, mode fs.FileMode) bool {
	info, err := r.stat(ctx, name)
	return err == nil && info.Mode()&mode != 0
}

func (r *Runner) unTest(ctx context.Context, op syntax.UnTestOperator, x string) bool {
	switch op {
	case syntax.TsExists:
		_, err := r.stat(ctx, x)
		return err == nil
	case syntax.TsRegFile:
		info, err := r.stat(ctx, x)
		return err == nil && info.Mode().IsRegular()
	case syntax.TsDirect:
		return r.statMode(ctx, x, fs.ModeDir)
	case syntax.TsCharSp:
		return r.statMode(ctx, x, fs.ModeCharDevice)
	case syntax.TsBlckSp:
		info, err := r.stat(ctx, x)
		return err == nil && info.Mode()&fs.ModeDevice != 0 && info.Mode()&fs.ModeCharDevice == 0
	case syntax.TsNmPipe:
		return r.statMode(ctx, x, fs.ModeNamedPipe)
	case syntax.TsSocket:
		return r.statMode(ctx, x, fs.ModeSocket)
	case syntax.TsSmbLink:
		info, err := r.lstat(ctx, x)
		return err == nil && info.Mode()&fs.ModeSymlink != 0
	case syntax.TsGIDSet:
		return r.statMode(ctx, x, fs.ModeSetgid)
	case syntax.TsUIDSet:
		return r.statMode(ctx, x, fs.ModeSetuid)
	case syntax.TsUsrOwn, syntax.TsGrpOwn:
		return r.unTestOwnOrGrp(ctx, op, x)
	case syntax.TsRead:
		return r.access(ctx, x, access_R_OK) == nil
	case syntax.TsWrite:
		return r.access(ctx, x, access_W_OK) == nil
	case syntax.TsExec:
		return r.access(ctx, x, access_X_OK) == nil
	case syntax.TsNoEmpty:
		info, err := r.stat(ctx, x)
		return err == nil && info.Size() > 0
	case syntax.TsFdTerm:
		var f any
		switch atoi(x) {
		case 0:
			f = r.stdin
		case 1:
			f = r.stdout
		case 2:
			f = r.stderr
		}
		if f, ok := f.(interface{ Fd() uintptr }); ok {
			return term.IsTerminal(int(f.Fd()))
		}
		return false
	case syntax.TsEmpStr:
		return x == ""
	case syntax.TsNempStr:
		return x != ""
	case syntax.TsOptSet:
		_, status := r.optByName(x, true)
		return status != nil && *status
	case syntax.TsVarSet:
		return r.lookupVar(x).IsSet()
	case syntax.TsRefVar:
		vr := r.lookupVar(x)
		return vr.IsSet() && vr.Kind == expand.NameRef
	case syntax.TsNot:
		return x == ""
	default:
		panic(fmt.Sprintf("unhandled unary test op: %v", op))
	}
}

// testParser parses the argument list of the classic test/[ builtin into a
// [syntax.TestExpr], following the same -a/-o/! grammar as [[ ]] but over an
// already-expanded string slice instead of a token stream.
type testParser struct {
	rem   []string
	cur   string
	curOK bool
	err   func(error)
}

func (p *testParser) next() {
	if len(p.rem) == 0 {
		p.cur, p.curOK = "", false
		return
	}
	p.cur, p.rem = p.rem[0], p.rem[1:]
	p.curOK = true
}

// litWord wraps an already-expanded string (an argument to the test/[
// builtin) as a [syntax.Word], using a single-quoted part so that
// r.literal doesn't re-interpret backslashes or a leading "~" in it.
func litWord(s string) *syntax.Word {
	return &syntax.Word{Parts: []syntax.WordPart{&syntax.SglQuoted{Value: s}}}
}

// classicTest parses the remaining arguments as a test expression. fname is
// the builtin's name, used only for error messages; pastAndOr is unused here
// and kept so the call site in the "test"/"[" builtin matches the one used
// for the extended [[ ]] parser.
func (p *testParser) classicTest(fname string, pastAndOr bool) syntax.TestExpr {
	if !p.curOK {
		return nil
	}
	x := p.testOr()
	if p.curOK {
		p.err(fmt.Errorf("%s: unexpected argument %q", fname, p.cur))
	}
	return x
}

func (p *testParser) testOr() syntax.TestExpr {
	x := p.testAnd()
	for p.curOK && p.cur == "-o" {
		p.next()
		y := p.testAnd()
		x = &syntax.BinaryTest{Op: syntax.OrTest, X: x, Y: y}
	}
	return x
}

func (p *testParser) testAnd() syntax.TestExpr {
	x := p.testNot()
	for p.curOK && p.cur == "-a" {
		p.next()
		y := p.testNot()
		x = &syntax.BinaryTest{Op: syntax.AndTest, X: x, Y: y}
	}
	return x
}

func (p *testParser) testNot() syntax.TestExpr {
	if p.curOK && p.cur == "!" {
		p.next()
		return &syntax.UnaryTest{Op: syntax.TsNot, X: p.testNot()}
	}
	return p.testPrimary()
}

func (p *testParser) testPrimary() syntax.TestExpr {
	if !p.curOK {
		p.err(fmt.Errorf("argument expected"))
		return litWord("")
	}
	if p.cur == "(" {
		p.next()
		x := p.testOr()
		if !p.curOK || p.cur != ")" {
			p.err(fmt.Errorf(`"(" missing matching ")"`))
			return x
		}
		p.next()
		return &syntax.ParenTest{X: x}
	}
	if op, ok := classicUnaryOp(p.cur); ok {
		p.next()
		if !p.curOK {
			p.err(fmt.Errorf("%s: argument expected", p.cur))
			return litWord("")
		}
		w := litWord(p.cur)
		p.next()
		return &syntax.UnaryTest{Op: op, X: w}
	}
	x := litWord(p.cur)
	p.next()
	if p.curOK {
		if op, ok := classicBinaryOp(p.cur); ok {
			p.next()
			if !p.curOK {
				p.err(fmt.Errorf("%s: argument expected", p.cur))
				return x
			}
			y := litWord(p.cur)
			p.next()
			return &syntax.BinaryTest{Op: op, X: x, Y: y}
		}
	}
	return x
}

// classicUnaryOp maps a classic test/[ argument to the unary operator it
// spells, mirroring the lexer's handling of the same operators inside [[ ]].
func classicUnaryOp(s string) (syntax.UnTestOperator, bool) {
	switch s {
	case "-e", "-a":
		return syntax.TsExists, true
	case "-f":
		return syntax.TsRegFile, true
	case "-d":
		return syntax.TsDirect, true
	case "-c":
		return syntax.TsCharSp, true
	case "-b":
		return syntax.TsBlckSp, true
	case "-p":
		return syntax.TsNmPipe, true
	case "-S":
		return syntax.TsSocket, true
	case "-L", "-h":
		return syntax.TsSmbLink, true
	case "-g":
		return syntax.TsGIDSet, true
	case "-u":
		return syntax.TsUIDSet, true
	case "-r":
		return syntax.TsRead, true
	case "-w":
		return syntax.TsWrite, true
	case "-x":
		return syntax.TsExec, true
	case "-s":
		return syntax.TsNoEmpty, true
	case "-t":
		return syntax.TsFdTerm, true
	case "-z":
		return syntax.TsEmpStr, true
	case "-n":
		return syntax.TsNempStr, true
	case "-o":
		return syntax.TsOptSet, true
	case "-v":
		return syntax.TsVarSet, true
	case "-R":
		return syntax.TsRefVar, true
	case "-O":
		return syntax.TsUsrOwn, true
	case "-G":
		return syntax.TsGrpOwn, true
	}
	return 0, false
}

func classicBinaryOp(s string) (syntax.BinTestOperator, bool) {
	switch s {
	case "=", "==":
		return syntax.TsEqual, true
	case "!=":
		return syntax.TsNequal, true
	case "=~":
		return syntax.TsReMatch, true
	case "-nt":
		return syntax.TsNewer, true
	case "-ot":
		return syntax.TsOlder, true
	case "-ef":
		return syntax.TsDevIno, true
	case "-eq":
		return syntax.TsEql, true
	case "-ne":
		return syntax.TsNeq, true
	case "-le":
		return syntax.TsLeq, true
	case "-ge":
		return syntax.TsGeq, true
	case "-lt":
		return syntax.TsLss, true
	case "-gt":
		return syntax.TsGtr, true
	}
	return 0, false
}

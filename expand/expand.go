// Copyright (c) 2017, Daniel Martí <mvdan@mvdan.cc>
// See LICENSE for licensing information

package expand

import (
	"bytes"
	"fmt"
	"io"
	"io/fs"
	"os/user"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/smoosh-shell/smoosh/pattern"
	"github.com/smoosh-shell/smoosh/syntax"
)

// Config controls the behavior of the expansion functions in this package.
// A nil *Config, or the zero Config, expands words against an empty
// environment: parameters are unset and command/process substitution are
// unsupported.
type Config struct {
	// Env is used to fetch and iterate over variables.
	// To also support modifying variables, such as via `export foo=bar`
	// or arithmetic assignments, Env should implement [WriteEnviron].
	Env Environ

	// ReadDir2 is used to list directory entries for filename generation.
	// If nil, no pathname expansion is performed.
	ReadDir2 func(string) ([]fs.DirEntry, error)

	GlobStar   bool // supports the ** globbing syntax
	NoCaseGlob bool // case-insensitive filename generation
	NullGlob   bool // a pattern with no matches expands to zero fields
	NoUnset    bool // error out when expanding an unset parameter

	// CmdSubst expands a command substitution, writing its trimmed
	// standard output to w.
	CmdSubst func(w io.Writer, cs *syntax.CmdSubst) error

	// ProcSubst expands a process substitution, returning the path that
	// the rest of the command line can use to reach it.
	ProcSubst func(ps *syntax.ProcSubst) (string, error)

	bufferAlloc bytes.Buffer
	fieldAlloc  [4]fieldPart
	fieldsAlloc [4][]fieldPart

	ifs string
	// A pointer to a parameter expansion node, if we're inside one.
	// Necessary for ${LINENO}.
	curParam *syntax.ParamExp
}

func (cfg *Config) environ() Environ {
	if cfg == nil || cfg.Env == nil {
		return FuncEnviron(func(string) string { return "" })
	}
	return cfg.Env
}

func (cfg *Config) prepareIFS() {
	vr := cfg.environ().Get("IFS")
	if !vr.IsSet() {
		cfg.ifs = " \t\n"
	} else {
		cfg.ifs = vr.String()
	}
}

func (cfg *Config) ifsRune(r rune) bool {
	for _, r2 := range cfg.ifs {
		if r == r2 {
			return true
		}
	}
	return false
}

func (cfg *Config) ifsJoin(strs []string) string {
	sep := ""
	if cfg.ifs != "" {
		sep = cfg.ifs[:1]
	}
	return strings.Join(strs, sep)
}

func (cfg *Config) strBuilder() *bytes.Buffer {
	b := &cfg.bufferAlloc
	b.Reset()
	return b
}

func (cfg *Config) envGet(name string) string {
	return cfg.environ().Get(name).String()
}

// envSet assigns a plain string variable. It requires Env to implement
// [WriteEnviron]; otherwise, it reports an error.
func (cfg *Config) envSet(name, value string) error {
	wenv, ok := cfg.environ().(WriteEnviron)
	if !ok {
		return fmt.Errorf("expand: cannot set %q in a read-only environment", name)
	}
	return wenv.Set(name, Variable{Set: true, Kind: String, Str: value})
}

// Literal expands a single word as if it were within double quotes,
// without performing field splitting or filename generation.
func Literal(cfg *Config, word *syntax.Word) (string, error) {
	if word == nil {
		return "", nil
	}
	if cfg == nil {
		cfg = &Config{}
	}
	field, err := cfg.wordField(word.Parts, quoteDouble)
	if err != nil {
		return "", err
	}
	return cfg.fieldJoin(field), nil
}

// Document expands a single word as is done inside an unquoted here-document
// body, meaning that tilde expansion, parameter expansion, command
// substitution, and arithmetic expansion are performed, but field splitting
// and filename generation are not.
func Document(cfg *Config, word *syntax.Word) (string, error) {
	return Literal(cfg, word)
}

// Fields expands a number of words as if they were arguments in a shell
// command, including brace expansion, tilde expansion, parameter expansion,
// command substitution, arithmetic expansion, field splitting, and filename
// generation.
func Fields(cfg *Config, words ...*syntax.Word) ([]string, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	cfg.prepareIFS()

	fields := make([]string, 0, len(words))
	dir := cfg.envGet("PWD")
	baseDir := pattern.QuoteMeta(dir, 0)
	for _, word := range words {
		for _, expWord := range Braces(word) {
			wfields, err := cfg.wordFields(expWord.Parts)
			if err != nil {
				return nil, err
			}
			for _, field := range wfields {
				path, doGlob, err := cfg.escapedGlobField(field)
				if err != nil {
					return nil, err
				}
				var matches []string
				abs := filepath.IsAbs(path)
				if doGlob && cfg.ReadDir2 != nil {
					if !abs {
						path = filepath.Join(baseDir, path)
					}
					matches, err = cfg.globPath(path)
					if err != nil {
						return nil, err
					}
					if len(matches) == 0 && cfg.NullGlob {
						continue
					}
				}
				if len(matches) == 0 {
					fields = append(fields, cfg.fieldJoin(field))
					continue
				}
				for _, match := range matches {
					if !abs {
						endSeparator := strings.HasSuffix(match, string(filepath.Separator))
						match, _ = filepath.Rel(dir, match)
						if endSeparator {
							match += string(filepath.Separator)
						}
					}
					fields = append(fields, match)
				}
			}
		}
	}
	return fields, nil
}

// Pattern expands a word as a shell pattern, such as the right-hand side of
// a case clause or a glob. Quoted parts of the pattern are escaped so that
// they are matched literally.
func Pattern(cfg *Config, word *syntax.Word) (string, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	field, err := cfg.wordField(word.Parts, quoteSingle)
	if err != nil {
		return "", err
	}
	buf := cfg.strBuilder()
	for _, part := range field {
		if part.quote > quoteNone {
			buf.WriteString(pattern.QuoteMeta(part.val, 0))
		} else {
			buf.WriteString(part.val)
		}
	}
	return buf.String(), nil
}

func (cfg *Config) fieldJoin(parts []fieldPart) string {
	switch len(parts) {
	case 0:
		return ""
	case 1: // short-cut without a string copy
		return parts[0].val
	}
	buf := cfg.strBuilder()
	for _, part := range parts {
		buf.WriteString(part.val)
	}
	return buf.String()
}

func (cfg *Config) escapedGlobField(parts []fieldPart) (escaped string, glob bool, err error) {
	buf := cfg.strBuilder()
	for _, part := range parts {
		if part.quote > quoteNone {
			buf.WriteString(pattern.QuoteMeta(part.val, 0))
			continue
		}
		buf.WriteString(part.val)
		if pattern.HasMeta(part.val, 0) {
			glob = true
		}
	}
	if glob { // only copy the string if it will be used
		escaped = buf.String()
	}
	return escaped, glob, nil
}

type fieldPart struct {
	val   string
	quote quoteLevel
}

type quoteLevel uint

const (
	quoteNone quoteLevel = iota
	quoteDouble
	quoteSingle
)

func (cfg *Config) wordField(wps []syntax.WordPart, ql quoteLevel) ([]fieldPart, error) {
	var field []fieldPart
	for i, wp := range wps {
		switch x := wp.(type) {
		case *syntax.Lit:
			s := x.Value
			if i == 0 {
				s = cfg.expandUser(s)
			}
			if ql == quoteDouble && strings.Contains(s, "\\") {
				buf := cfg.strBuilder()
				for i := 0; i < len(s); i++ {
					b := s[i]
					if b == '\\' && i+1 < len(s) {
						switch s[i+1] {
						case '\n': // remove \\\n
							i++
							continue
						case '"', '\\', '$', '`': // special chars
							continue
						}
					}
					buf.WriteByte(b)
				}
				s = buf.String()
			}
			field = append(field, fieldPart{val: s})
		case *syntax.SglQuoted:
			fp := fieldPart{quote: quoteSingle, val: x.Value}
			if x.Dollar {
				fp.val, _, _ = ExpandFormat(fp.val, nil)
			}
			field = append(field, fp)
		case *syntax.DblQuoted:
			inner, err := cfg.wordField(x.Parts, quoteDouble)
			if err != nil {
				return nil, err
			}
			for _, part := range inner {
				part.quote = quoteDouble
				field = append(field, part)
			}
		case *syntax.ParamExp:
			str, err := cfg.paramExp(x)
			if err != nil {
				return nil, err
			}
			field = append(field, fieldPart{val: str})
		case *syntax.CmdSubst:
			str, err := cfg.cmdSubst(x)
			if err != nil {
				return nil, err
			}
			field = append(field, fieldPart{val: str})
		case *syntax.ProcSubst:
			path, err := cfg.procSubst(x)
			if err != nil {
				return nil, err
			}
			field = append(field, fieldPart{val: path})
		case *syntax.ArithmExp:
			n, err := Arithm(cfg, x.X)
			if err != nil {
				return nil, err
			}
			field = append(field, fieldPart{val: strconv.Itoa(n)})
		case *syntax.ExtGlob:
			field = append(field, fieldPart{val: x.Op.String() + x.Pattern.Value + ")"})
		default:
			return nil, fmt.Errorf("%T not supported", x)
		}
	}
	return field, nil
}

func (cfg *Config) cmdSubst(cs *syntax.CmdSubst) (string, error) {
	if cfg.CmdSubst == nil {
		return "", fmt.Errorf("command substitution not supported")
	}
	buf := cfg.strBuilder()
	if err := cfg.CmdSubst(buf, cs); err != nil {
		return "", err
	}
	return strings.TrimRight(buf.String(), "\n"), nil
}

func (cfg *Config) procSubst(ps *syntax.ProcSubst) (string, error) {
	if cfg.ProcSubst == nil {
		return "", fmt.Errorf("process substitution not supported")
	}
	return cfg.ProcSubst(ps)
}

func (cfg *Config) wordFields(wps []syntax.WordPart) ([][]fieldPart, error) {
	fields := cfg.fieldsAlloc[:0]
	curField := cfg.fieldAlloc[:0]
	allowEmpty := false
	flush := func() {
		if len(curField) == 0 {
			return
		}
		fields = append(fields, curField)
		curField = nil
	}
	splitAdd := func(val string) {
		for i, field := range strings.FieldsFunc(val, cfg.ifsRune) {
			if i > 0 {
				flush()
			}
			curField = append(curField, fieldPart{val: field})
		}
	}
	for i, wp := range wps {
		switch x := wp.(type) {
		case *syntax.Lit:
			s := x.Value
			if i == 0 {
				s = cfg.expandUser(s)
			}
			if strings.Contains(s, "\\") {
				buf := cfg.strBuilder()
				for i := 0; i < len(s); i++ {
					b := s[i]
					if b == '\\' {
						i++
						b = s[i]
					}
					buf.WriteByte(b)
				}
				s = buf.String()
			}
			curField = append(curField, fieldPart{val: s})
		case *syntax.SglQuoted:
			allowEmpty = true
			fp := fieldPart{quote: quoteSingle, val: x.Value}
			if x.Dollar {
				fp.val, _, _ = ExpandFormat(fp.val, nil)
			}
			curField = append(curField, fp)
		case *syntax.DblQuoted:
			allowEmpty = true
			if len(x.Parts) == 1 {
				pe, _ := x.Parts[0].(*syntax.ParamExp)
				elems, err := cfg.quotedElems(pe)
				if err != nil {
					return nil, err
				}
				if elems != nil {
					for i, elem := range elems {
						if i > 0 {
							flush()
						}
						curField = append(curField, fieldPart{
							quote: quoteDouble,
							val:   elem,
						})
					}
					continue
				}
			}
			inner, err := cfg.wordField(x.Parts, quoteDouble)
			if err != nil {
				return nil, err
			}
			for _, part := range inner {
				part.quote = quoteDouble
				curField = append(curField, part)
			}
		case *syntax.ParamExp:
			str, err := cfg.paramExp(x)
			if err != nil {
				return nil, err
			}
			splitAdd(str)
		case *syntax.CmdSubst:
			str, err := cfg.cmdSubst(x)
			if err != nil {
				return nil, err
			}
			splitAdd(str)
		case *syntax.ProcSubst:
			path, err := cfg.procSubst(x)
			if err != nil {
				return nil, err
			}
			splitAdd(path)
		case *syntax.ArithmExp:
			n, err := Arithm(cfg, x.X)
			if err != nil {
				return nil, err
			}
			curField = append(curField, fieldPart{val: strconv.Itoa(n)})
		case *syntax.ExtGlob:
			curField = append(curField, fieldPart{val: x.Op.String() + x.Pattern.Value + ")"})
		default:
			return nil, fmt.Errorf("%T not supported", x)
		}
	}
	flush()
	if allowEmpty && len(fields) == 0 {
		fields = append(fields, curField)
	}
	return fields, nil
}

// quotedElems checks if a parameter expansion is exactly ${@} or ${foo[@]}
func (cfg *Config) quotedElems(pe *syntax.ParamExp) ([]string, error) {
	if pe == nil || pe.Excl || pe.Length || pe.Width {
		return nil, nil
	}
	if pe.Param.Value == "@" {
		return cfg.environ().Get("@").List, nil
	}
	if anyOfLit(pe.Index, "@") == "" {
		return nil, nil
	}
	vr := cfg.environ().Get(pe.Param.Value)
	if vr.Kind == Indexed {
		return vr.List, nil
	}
	return nil, nil
}

func (cfg *Config) expandUser(field string) string {
	if len(field) == 0 || field[0] != '~' {
		return field
	}
	name := field[1:]
	rest := ""
	if i := strings.Index(name, "/"); i >= 0 {
		rest = name[i:]
		name = name[:i]
	}
	if name == "" {
		return cfg.envGet("HOME") + rest
	}
	// TODO: don't hard-code os/user into the expansion package
	u, err := user.Lookup(name)
	if err != nil {
		return field
	}
	return u.HomeDir + rest
}

// glob lists the entries of dir whose name matches pat, honoring
// cfg.NoCaseGlob. Hidden entries are skipped unless pat itself starts with a
// dot. The returned names preserve the order ReadDir2 reported them in.
func (cfg *Config) glob(dir, pat string) ([]string, error) {
	if cfg == nil || cfg.ReadDir2 == nil {
		return nil, nil
	}
	entries, err := cfg.ReadDir2(dir)
	if err != nil {
		return nil, err
	}
	mode := pattern.Mode(0)
	if cfg.NoCaseGlob {
		mode |= pattern.NoGlobCase
	}
	expr, err := pattern.Regexp(pat, mode|pattern.EntireString)
	if err != nil {
		return nil, err
	}
	rx, err := regexp.Compile(expr)
	if err != nil {
		return nil, err
	}
	var matches []string
	for _, entry := range entries {
		name := entry.Name()
		if !strings.HasPrefix(pat, ".") && strings.HasPrefix(name, ".") {
			continue
		}
		if rx.MatchString(name) {
			matches = append(matches, name)
		}
	}
	return matches, nil
}

// globPath expands a pathname pattern that may contain multiple path
// elements and, if cfg.GlobStar is set, "**".
func (cfg *Config) globPath(pat string) ([]string, error) {
	parts := strings.Split(pat, string(filepath.Separator))
	matches := []string{"."}
	if filepath.IsAbs(pat) {
		if parts[0] == "" {
			matches[0] = string(filepath.Separator)
		} else {
			matches[0] = parts[0] + string(filepath.Separator)
		}
		parts = parts[1:]
	}
	for _, part := range parts {
		if part == "**" && cfg.GlobStar {
			for i := range matches {
				// "a/**" should match "a/ a/b a/b/c ..."; note
				// how the zero-match case has a trailing
				// separator.
				matches[i] += string(filepath.Separator)
			}
			latest := matches
			for {
				var newMatches []string
				for _, dir := range latest {
					found, _ := cfg.glob(dir, "*")
					for _, name := range found {
						newMatches = append(newMatches, filepath.Join(dir, name))
					}
				}
				if len(newMatches) == 0 {
					break
				}
				matches = append(matches, newMatches...)
				latest = newMatches
			}
			continue
		}
		var newMatches []string
		for _, dir := range matches {
			found, _ := cfg.glob(dir, part)
			for _, name := range found {
				newMatches = append(newMatches, filepath.Join(dir, name))
			}
		}
		matches = newMatches
	}
	return matches, nil
}

func (cfg *Config) ReadFields(s string, n int, raw bool) []string {
	cfg.prepareIFS()
	type pos struct {
		start, end int
	}
	var fpos []pos

	runes := make([]rune, 0, len(s))
	infield := false
	esc := false
	for _, r := range s {
		if infield {
			if cfg.ifsRune(r) && (raw || !esc) {
				fpos[len(fpos)-1].end = len(runes)
				infield = false
			}
		} else {
			if !cfg.ifsRune(r) && (raw || !esc) {
				fpos = append(fpos, pos{start: len(runes), end: -1})
				infield = true
			}
		}
		if r == '\\' {
			if raw || esc {
				runes = append(runes, r)
			}
			esc = !esc
			continue
		}
		runes = append(runes, r)
		esc = false
	}
	if len(fpos) == 0 {
		return nil
	}
	if infield {
		fpos[len(fpos)-1].end = len(runes)
	}

	switch {
	case n == 1:
		// include heading/trailing IFSs
		fpos[0].start, fpos[0].end = 0, len(runes)
		fpos = fpos[:1]
	case n != -1 && n < len(fpos):
		// combine to max n fields
		fpos[n-1].end = fpos[len(fpos)-1].end
		fpos = fpos[:n]
	}

	fields := make([]string, len(fpos))
	for i, p := range fpos {
		fields[i] = string(runes[p.start:p.end])
	}
	return fields
}

// ExpandFormat expands a format string as used by printf and the read -p
// prompt, interpreting backslash escapes and printf verbs consuming args.
func ExpandFormat(format string, args []string) (string, int, error) {
	buf := new(bytes.Buffer)
	esc := false
	var fmts []rune
	initialArgs := len(args)

	for _, c := range format {
		switch {
		case esc:
			esc = false
			switch c {
			case 'n':
				buf.WriteRune('\n')
			case 'r':
				buf.WriteRune('\r')
			case 't':
				buf.WriteRune('\t')
			case '\\':
				buf.WriteRune('\\')
			default:
				buf.WriteRune('\\')
				buf.WriteRune(c)
			}

		case len(fmts) > 0:
			switch c {
			case '%':
				buf.WriteByte('%')
				fmts = nil
			case 'c':
				var b byte
				if len(args) > 0 {
					arg := ""
					arg, args = args[0], args[1:]
					if len(arg) > 0 {
						b = arg[0]
					}
				}
				buf.WriteByte(b)
				fmts = nil
			case '+', '-', ' ':
				if len(fmts) > 1 {
					return "", 0, fmt.Errorf("invalid format char: %c", c)
				}
				fmts = append(fmts, c)
			case '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
				fmts = append(fmts, c)
			case 's', 'd', 'i', 'u', 'o', 'x':
				arg := ""
				if len(args) > 0 {
					arg, args = args[0], args[1:]
				}
				var farg interface{} = arg
				if c != 's' {
					n, _ := strconv.ParseInt(arg, 0, 0)
					if c == 'i' || c == 'd' {
						farg = int(n)
					} else {
						farg = uint(n)
					}
					if c == 'i' || c == 'u' {
						c = 'd'
					}
				}
				fmts = append(fmts, c)
				fmt.Fprintf(buf, string(fmts), farg)
				fmts = nil
			default:
				return "", 0, fmt.Errorf("invalid format char: %c", c)
			}
		case c == '\\':
			esc = true
		case args != nil && c == '%':
			// if args == nil, we are not doing format
			// arguments
			fmts = []rune{c}
		default:
			buf.WriteRune(c)
		}
	}
	if len(fmts) > 0 {
		return "", 0, fmt.Errorf("missing format char")
	}
	return buf.String(), initialArgs - len(args), nil
}

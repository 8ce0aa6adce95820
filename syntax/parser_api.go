// Copyright (c) 2016, Daniel Martí <mvdan@mvdan.cc>
// See LICENSE for licensing information

package syntax

import (
	"bytes"
	"fmt"
	"io"
	"iter"
)

// LangVariant describes a shell dialect that the parser and printer can be
// told to target. Each constant is a distinct bit so that test helpers and
// configuration code can combine them into a set with the | operator.
type LangVariant int

const (
	// LangAuto tells the caller to infer the variant, e.g. from a file
	// extension or a shebang line. The parser itself always requires an
	// explicit variant; LangAuto is meaningful only to callers like shfmt.
	LangAuto LangVariant = 1 << iota
	LangBash
	LangPOSIX
	LangMirBSDKorn
	LangBats
	LangZsh
)

func (l LangVariant) String() string {
	switch l {
	case LangAuto:
		return "auto"
	case LangBash:
		return "bash"
	case LangPOSIX:
		return "posix"
	case LangMirBSDKorn:
		return "mksh"
	case LangBats:
		return "bats"
	case LangZsh:
		return "zsh"
	default:
		return "unknown shell language variant"
	}
}

// Set implements flag.Value, so that LangVariant can be used directly as a
// command-line flag value.
func (l *LangVariant) Set(s string) error {
	switch s {
	case "auto":
		*l = LangAuto
	case "bash":
		*l = LangBash
	case "posix", "sh":
		*l = LangPOSIX
	case "mksh":
		*l = LangMirBSDKorn
	case "bats":
		*l = LangBats
	case "zsh":
		*l = LangZsh
	default:
		return fmt.Errorf("unknown shell language variant %q", s)
	}
	return nil
}

// LangError is returned by Parser.Parse when a construct is only valid in a
// different language variant than the one the parser was configured with.
type LangError struct {
	Filename string
	Lang     LangVariant
}

func (e LangError) Error() string {
	return "syntax error: construct not supported by " + e.Lang.String()
}

// ParserOption is a function that configures a Parser constructed via
// NewParser.
type ParserOption func(*Parser)

// KeepComments makes the parser attach comments found in the source to the
// AST, as *Comment nodes.
func KeepComments(enabled bool) ParserOption {
	return func(p *Parser) { p.keepComments = enabled }
}

// Variant changes the shell dialect that the parser accepts. The default, if
// this option isn't used, is LangBash.
func Variant(l LangVariant) ParserOption {
	return func(p *Parser) { p.lang = l }
}

// StopAt configures the parser to stop parsing as soon as a standalone word
// token matching the given string is found at a command's position, similar
// to how shells treat a heredoc's end-of-document marker.
func StopAt(word string) ParserOption {
	return func(p *Parser) { p.stopAt = word }
}

// RecoverErrors records maxErrs on the parser. The parser does not recover
// from parse errors: whatever the value, parsing stops at the first error
// and that error is returned.
func RecoverErrors(maxErrs int) ParserOption {
	return func(p *Parser) { p.recoverErrors = maxErrs }
}

// Parser holds the internal state of a shell parser, along with the options
// it was configured with. Use NewParser to build one.
type Parser struct {
	lang          LangVariant
	keepComments  bool
	stopAt        string
	recoverErrors int

	// incomplete records whether the most recent InteractiveSeq iteration
	// stopped because the buffered input ended mid-construct, rather than
	// because of a real syntax error or a successful parse.
	incomplete bool
}

// NewParser allocates a new Parser and applies any options given to it.
func NewParser(options ...ParserOption) *Parser {
	p := &Parser{lang: LangBash}
	for _, opt := range options {
		opt(p)
	}
	return p
}

func (p *Parser) mode() ParseMode {
	mode := ParseMode(0)
	if p.keepComments {
		mode |= ParseComments
	}
	if p.lang == LangPOSIX {
		mode |= PosixConformant
	}
	return mode
}

func (p *Parser) newParser() *parser {
	ip := parserFree.Get().(*parser)
	ip.reset()
	ip.mode = p.mode()
	if p.stopAt != "" {
		ip.stopAt = []byte(p.stopAt)
	}
	return ip
}

// Parse reads and parses a shell program from r, using name as the
// program's file name for position information and error messages.
func (p *Parser) Parse(r io.Reader, name string) (*File, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	ip := p.newParser()
	alloc := &struct {
		f File
		l [16]int
	}{}
	ip.f = &alloc.f
	ip.f.Name = name
	ip.f.Lines = alloc.l[:1]
	ip.src = src
	ip.next()
	ip.f.Stmts = ip.stmts(ip.stopAtWords()...)
	f, ferr := ip.f, ip.err
	parserFree.Put(ip)
	return f, combinedParseErr(ferr, p.recoverErrors)
}

// Stmts calls fn for every top-level statement parsed from r, stopping early
// if fn returns false.
func (p *Parser) Stmts(r io.Reader, fn func(*Stmt) bool) error {
	f, err := p.Parse(r, "")
	if f != nil {
		for _, stmt := range f.Stmts {
			if !fn(stmt) {
				break
			}
		}
	}
	return err
}

// Words calls fn for every word parsed from r, stopping early if fn returns
// false. It is meant for parsing a sequence of words outside of any shell
// command, such as a list of arguments coming from a config file.
func (p *Parser) Words(r io.Reader, fn func(*Word) bool) error {
	src, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	ip := p.newParser()
	alloc := &struct {
		f File
		l [16]int
	}{}
	ip.f = &alloc.f
	ip.f.Lines = alloc.l[:1]
	ip.src = src
	ip.next()
	for ip.tok != _EOF {
		w := ip.word()
		if ip.err != nil {
			break
		}
		if !fn(&w) {
			break
		}
	}
	ferr := ip.err
	parserFree.Put(ip)
	return ferr
}

// Document parses a single word from r, meant for contexts like a variable
// assignment's right-hand side or a here-document's delimiter.
func (p *Parser) Document(r io.Reader) (*Word, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	ip := p.newParser()
	alloc := &struct {
		f File
		l [16]int
	}{}
	ip.f = &alloc.f
	ip.f.Lines = alloc.l[:1]
	ip.src = src
	ip.next()
	w := ip.word()
	ferr := ip.err
	parserFree.Put(ip)
	return &w, ferr
}

// Incomplete reports whether the last statements yielded by InteractiveSeq
// stopped short because the buffered input ended mid-construct, e.g. an
// unclosed "(" or an "if" still waiting on its "then". Callers such as an
// interactive shell use it to print a continuation prompt instead of
// treating the pause as an error.
func (p *Parser) Incomplete() bool {
	return p.incomplete
}

// endsWithLineContinuation reports whether buf ends in a newline escaped by
// a backslash, i.e. a classic shell line continuation. An even number of
// backslashes right before the newline means the backslash itself is
// escaped, so the newline still ends the line normally.
func endsWithLineContinuation(buf []byte) bool {
	if len(buf) == 0 || buf[len(buf)-1] != '\n' {
		return false
	}
	i := len(buf) - 1
	backslashes := 0
	for i > 0 && buf[i-1] == '\\' {
		backslashes++
		i--
	}
	return backslashes%2 == 1
}

// InteractiveSeq reads statements from r one logical line at a time, the way
// an interactive shell reads from a terminal: it only tries to parse once it
// has buffered a full line, and it keeps buffering across lines ending in a
// backslash continuation. If parsing the buffered input fails while r still
// has more to give, InteractiveSeq assumes the input is simply incomplete
// (Incomplete reports true) and waits for the next line instead of yielding
// an error. Only once r is exhausted does a parse failure become final.
//
// Statements already returned by an earlier iteration are never re-yielded;
// each iteration's slice is the batch of new top-level statements completed
// by that line.
func (p *Parser) InteractiveSeq(r io.Reader) iter.Seq2[[]*Stmt, error] {
	return func(yield func([]*Stmt, error) bool) {
		var buf []byte
		chunk := make([]byte, 4096)
		for {
			n, rerr := r.Read(chunk)
			if n > 0 {
				buf = append(buf, chunk[:n]...)
			}
			if rerr != nil && len(buf) == 0 {
				return
			}
			if rerr == nil && (n == 0 || endsWithLineContinuation(buf) || !bytes.ContainsRune(buf, '\n')) {
				continue
			}
			file, perr := p.Parse(bytes.NewReader(buf), "")
			if perr != nil && rerr == nil {
				// TODO: a genuine syntax error unrelated to missing
				// input (e.g. a stray ";;") will loop here forever
				// waiting for a line that can never fix it.
				p.incomplete = true
				if !yield(nil, nil) {
					return
				}
				continue
			}
			p.incomplete = false
			if perr != nil {
				yield(nil, perr)
				return
			}
			buf = nil
			if !yield(file.Stmts, nil) {
				return
			}
			if rerr != nil {
				return
			}
		}
	}
}

// combinedParseErr is a hook point for turning a chain of parse errors into
// a single error value; recovery beyond the first error is not implemented,
// so err is returned as is and maxErrs is unused.
func combinedParseErr(err error, maxErrs int) error {
	return err
}

func (p *parser) stopAtWords() []string {
	if len(p.stopAt) == 0 {
		return nil
	}
	return []string{string(p.stopAt)}
}

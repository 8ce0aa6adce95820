// Copyright (c) 2016, Daniel Martí <mvdan@mvdan.cc>
// See LICENSE for licensing information

package syntax

import (
	"fmt"
	"io"
)

// PrinterOption is a function that configures a Printer constructed via
// NewPrinter.
type PrinterOption func(*Printer)

// Indent sets the number of spaces used for indentation. The zero value,
// the default, means to use a single tab character instead.
func Indent(spaces uint) PrinterOption {
	return func(p *Printer) { p.spaces = int(spaces) }
}

// BinaryNextLine prints binary commands such as && and || by always
// putting the operator on the following line, instead of only when the
// original source already had a line break there.
func BinaryNextLine(enabled bool) PrinterOption {
	return func(p *Printer) { p.binaryNextLine = enabled }
}

// SwitchCaseIndent records whether case clause patterns are to be indented
// rather than aligned with the "case" and "esac" keywords. The printer does
// not read the setting, so the output is the same either way.
func SwitchCaseIndent(enabled bool) PrinterOption {
	return func(p *Printer) { p.switchCaseIndent = enabled }
}

// SpaceRedirects adds a space between a redirect operator and its target
// word, e.g. "foo > bar" instead of "foo >bar".
func SpaceRedirects(enabled bool) PrinterOption {
	return func(p *Printer) { p.spaceRedirects = enabled }
}

// KeepPadding records whether column alignment found in the original
// source, such as aligned assignments, is to be preserved. The printer does
// not read the setting, so such padding is not kept.
func KeepPadding(enabled bool) PrinterOption {
	return func(p *Printer) { p.keepPadding = enabled }
}

// Minify drops comments when printing a *File. Whitespace and layout are
// printed the same as without the option.
func Minify(enabled bool) PrinterOption {
	return func(p *Printer) { p.minify = enabled }
}

// SingleLine records whether programs are to be printed on as few lines as
// possible. The printer does not read the setting, so newlines are printed
// the same either way.
func SingleLine(enabled bool) PrinterOption {
	return func(p *Printer) { p.singleLine = enabled }
}

// FunctionNextLine puts a function's opening brace on the line after its
// name, rather than on the same line.
func FunctionNextLine(enabled bool) PrinterOption {
	return func(p *Printer) { p.functionNextLine = enabled }
}

// Printer holds the configuration used to pretty-print an AST. Use
// NewPrinter to build one.
type Printer struct {
	spaces int

	binaryNextLine   bool
	switchCaseIndent bool
	spaceRedirects   bool
	keepPadding      bool
	minify           bool
	singleLine       bool
	functionNextLine bool
}

// NewPrinter allocates a new Printer and applies any options given to it.
func NewPrinter(options ...PrinterOption) *Printer {
	pr := &Printer{}
	for _, opt := range options {
		opt(pr)
	}
	return pr
}

// Print pretty-prints node to w according to the Printer's configuration.
// node is typically a *File, but it can also be any other AST node, such as
// a *Stmt, a Command, a WordPart or a Word, to print just that fragment.
func (pr *Printer) Print(w io.Writer, node Node) error {
	p := printerFree.Get().(*printer)
	p.reset()
	p.c = PrintConfig{Spaces: pr.spaces}
	p.spaceRedirects = pr.spaceRedirects
	p.binaryNextLine = pr.binaryNextLine
	p.minify = pr.minify
	p.singleLine = pr.singleLine
	p.switchCaseIndent = pr.switchCaseIndent
	p.keepPadding = pr.keepPadding
	p.functionNextLine = pr.functionNextLine
	p.bufWriter.Reset(w)

	switch x := node.(type) {
	case *File:
		p.f = x
		if !pr.minify {
			p.comments = x.Comments
		}
		p.stmts(x.Stmts)
		p.commentsUpTo(0)
		p.newline(0)
	case *Stmt:
		p.stmt(x)
		p.newline(0)
	case Command:
		p.command(x, nil)
		p.newline(0)
	case *Word:
		p.word(*x)
	case WordPart:
		p.wordPart(x)
	case ArithmExpr:
		p.arithmExpr(x, false)
	case TestExpr:
		p.testExpr(x)
	default:
		printerFree.Put(p)
		return fmt.Errorf("syntax: unsupported node type %T for printing", node)
	}

	err := p.bufWriter.Flush()
	printerFree.Put(p)
	return err
}

// SPDX-License-Identifier: GPL-2.0-or-later

package cbuf

import (
	"strconv"
	"strings"
	"unicode"
)

type QArg struct {
	a string
}

func NewQArg(s string) QArg {
	return QArg{s}
}

func (a QArg) String() string {
	return a.a
}

func (a QArg) Int() int {
	r, err := strconv.ParseInt(a.a, 10, 0)
	if err != nil {
		// "1.5" is accepted as 1, anything else is 0
		f, ferr := strconv.ParseFloat(a.a, 64)
		if ferr != nil {
			return 0
		}
		return int(f)
	}
	return int(r)
}

func (a QArg) Float32() float32 {
	r, err := strconv.ParseFloat(a.a, 32)
	if err != nil {
		return 0
	}
	return float32(r)
}

func (a QArg) Bool() bool {
	switch a.a {
	case "1", "t", "T", "true", "TRUE", "True", "On", "ON", "on":
		return true
	default:
		return false
	}
}

type Arguments struct {
	// each arg on its own
	args []QArg
	// the trimmed source line
	full string
}

func (c *Arguments) Argc() int {
	return len(c.args)
}

// Argv returns the i-th token or an empty one if out of range.
func (c *Arguments) Argv(i int) QArg {
	if i < 0 || i >= len(c.args) {
		return QArg{}
	}
	return c.args[i]
}

func (c *Arguments) Full() string {
	return c.full
}

func (c *Arguments) Args() []QArg {
	return c.args
}

// ArgumentString returns everything after the command name.
func (c *Arguments) ArgumentString() string {
	if len(c.args) < 2 {
		return ""
	}
	r := strings.TrimPrefix(c.full, c.args[0].String())
	r = strings.TrimLeftFunc(r, unicode.IsSpace)
	// a fully quoted remainder is returned without its quotes
	if len(r) > 1 && r[0] == '"' {
		r = strings.Trim(r, "\"\t\n\v\f\r ")
	}
	return r
}

// ArgsFrom joins the tokens starting at i with single spaces.
func (c *Arguments) ArgsFrom(i int) string {
	if i >= len(c.args) {
		return ""
	}
	parts := make([]string, 0, len(c.args)-i)
	for _, a := range c.args[i:] {
		parts = append(parts, a.String())
	}
	return strings.Join(parts, " ")
}

// Parse splits a single command line into tokens. Quoted strings form one
// token without their quotes, `//` starts a comment, an unterminated quote
// takes the rest of the line.
func Parse(s string) (args Arguments) {
	args.full = strings.TrimFunc(s, unicode.IsSpace)
	args.args = []QArg{}

	l := &lexer{input: args.full}
	for state := lexAction; state != nil; {
		state = state(l)
	}
	for _, i := range l.items {
		switch i.typ {
		case itemWord:
			args.args = append(args.args, QArg{i.val})
		case itemString:
			v := strings.TrimPrefix(i.val, `"`)
			v = strings.TrimSuffix(v, `"`)
			args.args = append(args.args, QArg{v})
		}
	}
	return
}

type itemType int

const (
	itemWord   itemType = iota
	itemString          // quoted string includes quotes
)

type item struct {
	typ itemType
	val string
}

type stateFn func(*lexer) stateFn

type lexer struct {
	input string
	start int
	pos   int
	items []item
}

func (l *lexer) emit(t itemType) {
	l.items = append(l.items, item{t, l.input[l.start:l.pos]})
	l.start = l.pos
}

func (l *lexer) ignore() {
	l.start = l.pos
}

func (l *lexer) atEnd() bool {
	return l.pos >= len(l.input)
}

func lexAction(l *lexer) stateFn {
	for !l.atEnd() && isSpace(l.input[l.pos]) {
		l.pos++
	}
	l.ignore()
	if l.atEnd() || isEndOfLine(l.input[l.pos]) {
		return nil
	}
	switch c := l.input[l.pos]; {
	case c == '"':
		return lexQuote
	case c == '/' && strings.HasPrefix(l.input[l.pos:], "//"):
		// drop the rest of the line
		return nil
	default:
		return lexWord
	}
}

func lexWord(l *lexer) stateFn {
	for !l.atEnd() && isWordChar(l.input[l.pos]) {
		l.pos++
	}
	l.emit(itemWord)
	return lexAction
}

func lexQuote(l *lexer) stateFn {
	l.pos++
	for !l.atEnd() {
		c := l.input[l.pos]
		l.pos++
		if c == '"' {
			l.emit(itemString)
			return lexAction
		}
		if c == '\n' {
			l.pos--
			break
		}
	}
	l.emit(itemString)
	return lexAction
}

func isWordChar(c byte) bool {
	return c > ' ' && c != '"'
}

func isEndOfLine(c byte) bool {
	return c == '\r' || c == '\n'
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t'
}

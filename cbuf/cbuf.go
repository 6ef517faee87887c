// SPDX-License-Identifier: GPL-2.0-or-later

package cbuf

import (
	"strings"

	"github.com/hashicorp/go-multierror"

	"goquake2/conlog"
)

const (
	// MaxBufferSize is the fixed capacity of the command text.
	MaxBufferSize = 8192
	// AliasLoopCount bounds alias expansions within one Execute.
	AliasLoopCount = 16
)

type ExecWhen int

const (
	ExecNow    ExecWhen = iota // don't return until completed
	ExecInsert                 // insert at current position, but don't run yet
	ExecAppend                 // add to end of the command buffer
)

// CommandBuffer holds console text waiting to be executed. Lines are run in
// order by Execute, text inserted while a line executes runs before the
// remaining buffer.
type CommandBuffer struct {
	text     string
	deferred string
	// set by 'wait', the remaining text runs on the next Execute
	wait       bool
	aliasCount int

	executors executors
	lookup    func(name string) string
}

// SetCommandExecutors sets the dispatch chain. The first executor that
// reports the line as handled stops the chain.
func (c *CommandBuffer) SetCommandExecutors(e []Efunc) {
	c.executors = e
}

// SetMacroLookup enables $name expansion using lookup.
func (c *CommandBuffer) SetMacroLookup(lookup func(name string) string) {
	c.lookup = lookup
}

// Len returns the number of bytes waiting.
func (c *CommandBuffer) Len() int {
	return len(c.text)
}

func (c *CommandBuffer) Clear() {
	c.text = ""
}

// AddText appends text to the end of the buffer.
func (c *CommandBuffer) AddText(text string) {
	if len(c.text)+len(text) >= MaxBufferSize {
		conlog.Printf("Cbuf_AddText: overflow\n")
		return
	}
	c.text += text
}

// InsertText puts text at the front of the buffer so it runs next.
func (c *CommandBuffer) InsertText(text string) {
	if !strings.HasSuffix(text, "\n") {
		text += "\n"
	}
	if len(c.text)+len(text) >= MaxBufferSize {
		conlog.Printf("Cbuf_InsertText: overflow\n")
		return
	}
	c.text = text + c.text
}

// CopyToDefer moves the whole buffer aside, it is restored by
// InsertFromDefer.
func (c *CommandBuffer) CopyToDefer() {
	c.deferred = c.text
	c.text = ""
}

func (c *CommandBuffer) InsertFromDefer() {
	if c.deferred == "" {
		return
	}
	c.InsertText(c.deferred)
	c.deferred = ""
}

func (c *CommandBuffer) ExecuteText(when ExecWhen, text string) error {
	switch when {
	case ExecNow:
		return c.ExecuteString(text)
	case ExecInsert:
		c.InsertText(text)
	default:
		c.AddText(text)
	}
	return nil
}

// Wait stops the current Execute after the running line.
func (c *CommandBuffer) Wait() {
	c.wait = true
}

// ExpandAlias accounts for one alias expansion. It returns false once the
// expansions of this Execute exceed AliasLoopCount.
func (c *CommandBuffer) ExpandAlias() bool {
	c.aliasCount++
	if c.aliasCount > AliasLoopCount {
		conlog.Printf("ALIAS_LOOP_COUNT\n")
		return false
	}
	return true
}

// nextLine removes and returns the first line of the buffer. Lines end at
// '\n' or at a ';' outside of quotes.
func (c *CommandBuffer) nextLine() string {
	i := 0
	quotes := false
LineLoop:
	for i = 0; i < len(c.text); i++ {
		switch c.text[i] {
		case '"':
			quotes = !quotes
		case ';':
			if !quotes {
				break LineLoop
			}
		case '\n':
			break LineLoop
		}
	}
	line := c.text[:i]
	// the separator is consumed as well
	if i < len(c.text) {
		i++
	}
	c.text = c.text[i:]
	return line
}

// Execute runs lines until the buffer is empty or a 'wait' was hit. Errors
// of single lines do not stop the buffer, they are collected and returned.
func (c *CommandBuffer) Execute() error {
	var result error
	c.aliasCount = 0
	for len(c.text) != 0 {
		line := c.nextLine()
		if err := c.ExecuteString(line); err != nil {
			result = multierror.Append(result, err)
		}
		if c.wait {
			// wait for the next frame to continue executing
			c.wait = false
			break
		}
	}
	return result
}

// ExecuteString expands macros, tokenizes and dispatches a single line.
func (c *CommandBuffer) ExecuteString(line string) error {
	text, ok := MacroExpand(line, c.lookup)
	if !ok {
		return nil
	}
	a := Parse(text)
	if a.Argc() == 0 {
		return nil // no tokens
	}
	if a.Argv(0).String() == "wait" {
		c.wait = true
		return nil
	}
	return c.executors.execute(c, a)
}

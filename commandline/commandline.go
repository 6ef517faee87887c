// SPDX-License-Identifier: GPL-2.0-or-later

// Package commandline turns the trailing "+cmd args" tokens of the command
// line into console text.
package commandline

import (
	"fmt"
	"strconv"
	"strings"
)

// BoolInt is a flag that can be given alone or with a number, like
// "--dedicated" or "--dedicated=8".
type BoolInt struct {
	set bool
	num int
}

// NewBoolInt returns an unset flag defaulting to num.
func NewBoolInt(num int) *BoolInt {
	return &BoolInt{num: num}
}

func (b *BoolInt) IsBoolFlag() bool {
	// We can not support both "-flag" and "-flag 10"
	// This allows "-flag", and "-flag=10"
	// and also "-flag=true" and "-flag=false"
	// but not "-flag 10"
	return true
}

func (b *BoolInt) Set(s string) error {
	v, err := strconv.ParseInt(s, 0, strconv.IntSize)
	if err != nil {
		v, err := strconv.ParseBool(s)
		b.set = v
		return err
	}
	b.set = true
	b.num = int(v)
	return nil
}

func (b *BoolInt) String() string {
	return fmt.Sprintf("Set: %v, Num: %v", b.set, b.num)
}

// Type implements pflag.Value.
func (b *BoolInt) Type() string {
	return "boolInt"
}

func (b *BoolInt) IsSet() bool { return b.set }
func (b *BoolInt) Num() int     { return b.num }

// CommandLine holds the console commands given as arguments.
type CommandLine struct {
	early []string
	late  []string
}

// Parse splits args at every token starting with '+'. "+set name value"
// commands are kept apart so they can run before the config files.
func Parse(args []string) *CommandLine {
	c := &CommandLine{}
	var cur []string
	flush := func() {
		if len(cur) == 0 {
			return
		}
		line := strings.Join(cur, " ")
		if cur[0] == "set" && len(cur) >= 3 {
			c.early = append(c.early, line)
		} else {
			c.late = append(c.late, line)
		}
		cur = nil
	}
	for _, a := range args {
		if strings.HasPrefix(a, "+") {
			flush()
			a = a[1:]
			if a == "" {
				continue
			}
			cur = []string{a}
			continue
		}
		if cur == nil {
			// arguments before the first command are ignored
			continue
		}
		if a == "" || strings.ContainsAny(a, " \t;") {
			a = strconv.Quote(a)
		}
		cur = append(cur, a)
	}
	flush()
	return c
}

// Early returns the "+set" commands as console text.
func (c *CommandLine) Early() string {
	return text(c.early)
}

// Late returns all other commands as console text.
func (c *CommandLine) Late() string {
	return text(c.late)
}

// HasLate reports whether one of the late commands is name.
func (c *CommandLine) HasLate(name string) bool {
	for _, l := range c.late {
		if l == name || strings.HasPrefix(l, name+" ") {
			return true
		}
	}
	return false
}

func text(lines []string) string {
	if len(lines) == 0 {
		return ""
	}
	return strings.Join(lines, "\n") + "\n"
}

// SPDX-License-Identifier: GPL-2.0-or-later

package cvar

import (
	"strings"

	"goquake2/cbuf"
	"goquake2/cmd"
	"goquake2/conlog"
)

// Register adds the console commands working on variables.
func (r *Registry) Register(c *cmd.Commands) error {
	for _, e := range []struct {
		name string
		f    cmd.QFunc
	}{
		{"set", r.set},
		{"cvarlist", r.list},
		{"toggle", r.toggle},
		{"inc", r.inc},
		{"reset", r.reset},
	} {
		if err := c.Add(e.name, e.f); err != nil {
			return err
		}
	}
	return nil
}

func (r *Registry) set(a cbuf.Arguments) error {
	c := a.Argc()
	if c != 3 && c != 4 {
		conlog.Printf("usage: set <variable> <value> [u / s]\n")
		return nil
	}
	name := a.Argv(1).String()
	if r.isCommand != nil && r.isCommand(name) {
		conlog.Printf("conflict with command\n")
		return nil
	}
	if c == 4 {
		var flags Flag
		switch a.Argv(3).String() {
		case "u":
			flags = USERINFO
		case "s":
			flags = SERVERINFO
		default:
			conlog.Printf("flags can only be 'u' or 's'\n")
			return nil
		}
		r.FullSet(name, a.Argv(2).String(), flags)
		return nil
	}
	r.Set(name, a.Argv(2).String())
	return nil
}

func (r *Registry) toggle(a cbuf.Arguments) error {
	if a.Argc() != 2 {
		conlog.Printf("toggle <cvar> : toggle cvar\n")
		return nil
	}
	n := a.Argv(1).String()
	cv, ok := r.Find(n)
	if !ok {
		conlog.Printf("toggle: variable %v not found\n", n)
		return nil
	}
	if cv.Bool() {
		cv.SetByString("0")
	} else {
		cv.SetByString("1")
	}
	return nil
}

func (r *Registry) inc(a cbuf.Arguments) error {
	var amount float32
	switch a.Argc() {
	case 2:
		amount = 1
	case 3:
		amount = a.Argv(2).Float32()
	default:
		conlog.Printf("inc <cvar> [amount] : increment cvar\n")
		return nil
	}
	n := a.Argv(1).String()
	cv, ok := r.Find(n)
	if !ok {
		conlog.Printf("inc: variable %v not found\n", n)
		return nil
	}
	cv.SetValue(cv.Value() + amount)
	return nil
}

func (r *Registry) reset(a cbuf.Arguments) error {
	if a.Argc() != 2 {
		conlog.Printf("reset <cvar> : reset cvar to default\n")
		return nil
	}
	n := a.Argv(1).String()
	cv, ok := r.Find(n)
	if !ok {
		conlog.Printf("reset: variable %v not found\n", n)
		return nil
	}
	cv.SetByString(cv.Default())
	return nil
}

func flagColumns(cv *Cvar) string {
	b := []byte("    ")
	if cv.flags&ARCHIVE != 0 {
		b[0] = '*'
	}
	if cv.flags&USERINFO != 0 {
		b[1] = 'U'
	}
	if cv.flags&SERVERINFO != 0 {
		b[2] = 'S'
	}
	if cv.flags&NOSET != 0 {
		b[3] = '-'
	} else if cv.flags&LATCH != 0 {
		b[3] = 'L'
	}
	return string(b)
}

func (r *Registry) list(a cbuf.Arguments) error {
	prefix := ""
	if a.Argc() > 1 {
		prefix = a.Argv(1).String()
	}
	count := 0
	for _, cv := range r.All() {
		if !strings.HasPrefix(cv.name, prefix) {
			continue
		}
		conlog.SafePrintf("%s %s \"%s\"\n", flagColumns(cv), cv.name, cv.stringValue)
		count++
	}
	if prefix != "" {
		conlog.SafePrintf("%v cvars beginning with \"%v\"\n", count, prefix)
		return nil
	}
	conlog.SafePrintf("%v cvars\n", count)
	return nil
}

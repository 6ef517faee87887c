// SPDX-License-Identifier: GPL-2.0-or-later

package alias

import (
	"sort"
	"strings"

	"goquake2/cbuf"
	"goquake2/cmd"
	"goquake2/conlog"
)

const maxAliasName = 32

type Aliases struct {
	bodies map[string]string
	names  []string
}

func New() *Aliases {
	return &Aliases{bodies: make(map[string]string)}
}

func (al *Aliases) Register(c *cmd.Commands) error {
	if err := c.Add("alias", al.alias); err != nil {
		return err
	}
	if err := c.Add("unalias", al.unalias); err != nil {
		return err
	}
	return c.Add("unaliasall", al.unaliasAll)
}

func (al *Aliases) alias(a cbuf.Arguments) error {
	switch a.Argc() {
	case 1:
		al.listAliases()
	case 2:
		al.printAlias(a.Argv(1).String())
	default:
		al.setAlias(a)
	}
	return nil
}

func (al *Aliases) listAliases() {
	if len(al.names) == 0 {
		conlog.SafePrintf("no alias commands found\n")
		return
	}
	for _, k := range al.names {
		// each alias value ends with a '\n'
		conlog.SafePrintf("  %s: %s", k, al.bodies[k])
	}
	conlog.SafePrintf("%v alias command(s)\n", len(al.names))
}

func (al *Aliases) printAlias(name string) {
	if v, ok := al.bodies[name]; ok {
		conlog.Printf("  %s: %s", name, v)
	}
}

func (al *Aliases) setAlias(a cbuf.Arguments) {
	name := a.Argv(1).String()
	if len(name) >= maxAliasName {
		conlog.Printf("Alias name is too long\n")
		return
	}
	// the parts have '"' already removed
	al.Set(name, a.ArgsFrom(2))
}

// Set defines or replaces an alias.
func (al *Aliases) Set(name, command string) {
	if _, ok := al.bodies[name]; !ok {
		i := sort.SearchStrings(al.names, name)
		al.names = append(al.names, "")
		copy(al.names[i+1:], al.names[i:])
		al.names[i] = name
	}
	al.bodies[name] = strings.TrimSpace(command) + "\n"
}

func (al *Aliases) unalias(a cbuf.Arguments) error {
	if a.Argc() != 2 {
		conlog.Printf("unalias <name> : delete alias\n")
		return nil
	}
	name := a.Argv(1).String()
	if _, ok := al.bodies[name]; !ok {
		conlog.Printf("No alias named %s\n", name)
		return nil
	}
	delete(al.bodies, name)
	i := sort.SearchStrings(al.names, name)
	al.names = append(al.names[:i], al.names[i+1:]...)
	return nil
}

func (al *Aliases) unaliasAll(_ cbuf.Arguments) error {
	al.bodies = make(map[string]string)
	al.names = nil
	return nil
}

func (al *Aliases) Get(name string) (string, bool) {
	a, ok := al.bodies[name]
	return a, ok
}

// Complete returns the first alias in sorted order starting with partial.
func (al *Aliases) Complete(partial string) (string, bool) {
	if partial == "" {
		return "", false
	}
	i := sort.SearchStrings(al.names, partial)
	if i < len(al.names) && strings.HasPrefix(al.names[i], partial) {
		return al.names[i], true
	}
	return "", false
}

// Execute inserts the body of a matching alias at the head of the buffer.
func (al *Aliases) Execute() cbuf.Efunc {
	return func(cb *cbuf.CommandBuffer, a cbuf.Arguments) (bool, error) {
		if a.Argc() == 0 {
			return false, nil
		}
		v, ok := al.Get(a.Argv(0).String())
		if !ok {
			return false, nil
		}
		if cb.ExpandAlias() {
			cb.InsertText(v)
		}
		return true, nil
	}
}

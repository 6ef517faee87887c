// SPDX-License-Identifier: GPL-2.0-or-later

package cmd

import (
	"sort"
	"strings"

	"github.com/pkg/errors"

	"goquake2/cbuf"
)

type QFunc func(a cbuf.Arguments) error

// Commands is a name sorted command table. A command added without a
// function is a placeholder that gets forwarded to the server.
type Commands struct {
	funcs   map[string]QFunc
	names   []string
	forward QFunc
}

func New() *Commands {
	return &Commands{funcs: make(map[string]QFunc)}
}

// SetForwarder sets the handler for commands that have no function.
func (c *Commands) SetForwarder(f QFunc) {
	c.forward = f
}

func (c *Commands) Add(name string, f QFunc) error {
	ln := strings.ToLower(name)
	if _, ok := c.funcs[ln]; ok {
		return errors.Errorf("Cmd_AddCommand: %s already defined", ln)
	}
	c.funcs[ln] = f
	i := sort.SearchStrings(c.names, ln)
	c.names = append(c.names, "")
	copy(c.names[i+1:], c.names[i:])
	c.names[i] = ln
	return nil
}

func (c *Commands) Remove(name string) {
	ln := strings.ToLower(name)
	if _, ok := c.funcs[ln]; !ok {
		return
	}
	delete(c.funcs, ln)
	i := sort.SearchStrings(c.names, ln)
	c.names = append(c.names[:i], c.names[i+1:]...)
}

func (c *Commands) Exists(cmdName string) bool {
	_, ok := c.funcs[strings.ToLower(cmdName)]
	return ok
}

// List returns all command names in sorted order.
func (c *Commands) List() []string {
	return append([]string(nil), c.names...)
}

// Complete returns the exact match for partial or else the first command in
// sorted order that starts with it.
func (c *Commands) Complete(partial string) (string, bool) {
	if partial == "" {
		return "", false
	}
	lp := strings.ToLower(partial)
	if _, ok := c.funcs[lp]; ok {
		return lp, true
	}
	i := sort.SearchStrings(c.names, lp)
	if i < len(c.names) && strings.HasPrefix(c.names[i], lp) {
		return c.names[i], true
	}
	return "", false
}

func (c *Commands) Execute() cbuf.Efunc {
	return func(_ *cbuf.CommandBuffer, a cbuf.Arguments) (bool, error) {
		if a.Argc() == 0 {
			return false, nil
		}
		name := strings.ToLower(a.Argv(0).String())
		f, ok := c.funcs[name]
		if !ok {
			return false, nil
		}
		if f == nil {
			if c.forward == nil {
				return true, nil
			}
			f = c.forward
		}
		if err := f(a); err != nil {
			return true, errors.Wrapf(err, "command %s", name)
		}
		return true, nil
	}
}

func Must(err error) {
	if err != nil {
		panic(err.Error())
	}
}

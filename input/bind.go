// SPDX-License-Identifier: GPL-2.0-or-later

package input

import (
	"fmt"
	"io"

	"github.com/pkg/errors"

	"goquake2/cbuf"
	"goquake2/cmd"
	"goquake2/conlog"
	kc "goquake2/keycode"
)

// Bindings turns key events into console commands.
type Bindings struct {
	cb   *cbuf.CommandBuffer
	keys [kc.NumKeys]string
	down [kc.NumKeys]bool
}

func NewBindings(cb *cbuf.CommandBuffer) *Bindings {
	return &Bindings{cb: cb}
}

func (b *Bindings) Register(c *cmd.Commands) error {
	for _, e := range []struct {
		name string
		f    cmd.QFunc
	}{
		{"bind", b.bindCmd},
		{"unbind", b.unbindCmd},
		{"unbindall", b.unbindAllCmd},
		{"bindlist", b.bindListCmd},
	} {
		if err := c.Add(e.name, e.f); err != nil {
			return errors.Wrap(err, "bind commands")
		}
	}
	return nil
}

// Set binds key to command, an empty command removes the binding.
func (b *Bindings) Set(key kc.KeyCode, command string) {
	if key < 0 || key >= kc.NumKeys {
		return
	}
	b.keys[key] = command
}

func (b *Bindings) Get(key kc.KeyCode) string {
	if key < 0 || key >= kc.NumKeys {
		return ""
	}
	return b.keys[key]
}

// Event is called for every key press and release. A binding starting with
// '+' is a button, its release sends the matching '-' command. The key
// number is added so two keys can hold the same button.
func (b *Bindings) Event(key kc.KeyCode, down bool) {
	if key < 0 || key >= kc.NumKeys {
		return
	}
	if down {
		if b.down[key] {
			// auto repeat
			return
		}
		b.down[key] = true
	} else {
		if !b.down[key] {
			return
		}
		b.down[key] = false
	}

	kb := b.keys[key]
	if kb == "" {
		return
	}
	if kb[0] == '+' {
		if down {
			b.cb.AddText(fmt.Sprintf("%s %d\n", kb, key))
		} else {
			b.cb.AddText(fmt.Sprintf("-%s %d\n", kb[1:], key))
		}
		return
	}
	if down {
		b.cb.AddText(kb + "\n")
	}
}

// ReleaseAll sends the release of every key held down.
func (b *Bindings) ReleaseAll() {
	for k := range b.down {
		if b.down[k] {
			b.Event(kc.KeyCode(k), false)
		}
	}
}

func (b *Bindings) bindCmd(a cbuf.Arguments) error {
	if a.Argc() < 2 {
		conlog.Printf("bind <key> [command] : attach a command to a key\n")
		return nil
	}
	k := kc.StringToKey(a.Argv(1).String())
	if k == -1 {
		conlog.Printf("\"%s\" isn't a valid key\n", a.Argv(1).String())
		return nil
	}
	if a.Argc() == 2 {
		if kb := b.Get(k); kb != "" {
			conlog.Printf("\"%s\" = \"%s\"\n", a.Argv(1).String(), kb)
		} else {
			conlog.Printf("\"%s\" is not bound\n", a.Argv(1).String())
		}
		return nil
	}
	// copy the rest of the command line
	b.Set(k, a.ArgsFrom(2))
	return nil
}

func (b *Bindings) unbindCmd(a cbuf.Arguments) error {
	if a.Argc() != 2 {
		conlog.Printf("unbind <key> : remove commands from a key\n")
		return nil
	}
	k := kc.StringToKey(a.Argv(1).String())
	if k == -1 {
		conlog.Printf("\"%s\" isn't a valid key\n", a.Argv(1).String())
		return nil
	}
	b.Set(k, "")
	return nil
}

func (b *Bindings) unbindAllCmd(_ cbuf.Arguments) error {
	b.keys = [kc.NumKeys]string{}
	return nil
}

func (b *Bindings) bindListCmd(_ cbuf.Arguments) error {
	for k, kb := range b.keys {
		if kb != "" {
			conlog.Printf("%s \"%s\"\n", kc.KeyToString(kc.KeyCode(k)), kb)
		}
	}
	return nil
}

// WriteBindings writes bind commands restoring all bindings.
func (b *Bindings) WriteBindings(w io.Writer) error {
	for k, kb := range b.keys {
		if kb == "" {
			continue
		}
		if _, err := fmt.Fprintf(w, "bind %s \"%s\"\n", kc.KeyToString(kc.KeyCode(k)), kb); err != nil {
			return errors.Wrap(err, "WriteBindings")
		}
	}
	return nil
}

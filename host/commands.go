// SPDX-License-Identifier: GPL-2.0-or-later

package host

import (
	"bytes"

	"github.com/pkg/errors"

	"goquake2/cbuf"
	"goquake2/cmd"
	"goquake2/conlog"
	"goquake2/filesystem"
)

func (h *Host) register() error {
	for _, e := range []struct {
		name string
		f    cmd.QFunc
	}{
		{"exec", h.execCmd},
		{"echo", h.echoCmd},
		{"quit", h.quitCmd},
		{"error", h.errorCmd},
		{"writeconfig", h.writeConfigCmd},
	} {
		if err := h.Commands.Add(e.name, e.f); err != nil {
			return errors.Wrap(err, "host commands")
		}
	}
	return nil
}

// execCmd inserts the lines of a script in front of the pending text.
func (h *Host) execCmd(a cbuf.Arguments) error {
	if a.Argc() != 2 {
		conlog.Printf("exec <filename> : execute a script file\n")
		return nil
	}
	name := a.Argv(1).String()
	b, err := h.fs.ReadFile(name)
	if err != nil {
		conlog.Printf("couldn't exec %s\n", name)
		return nil
	}
	conlog.Printf("execing %s\n", name)
	h.Cbuf.InsertText(string(b))
	return nil
}

func (h *Host) echoCmd(a cbuf.Arguments) error {
	conlog.Printf("%s\n", a.ArgsFrom(1))
	return nil
}

func (h *Host) quitCmd(_ cbuf.Arguments) error {
	h.Quit()
	return nil
}

// errorCmd aborts the frame, it exists to test the recovery.
func (h *Host) errorCmd(a cbuf.Arguments) error {
	Errorf("%s", a.Argv(1).String())
	return nil
}

func (h *Host) writeConfigCmd(a cbuf.Arguments) error {
	if a.Argc() > 2 {
		conlog.Printf("writeconfig [filename] : save the archived variables\n")
		return nil
	}
	if a.Argc() == 2 {
		return h.writeConfig(filesystem.DefaultExt(a.Argv(1).String(), ".cfg"))
	}
	return h.WriteConfiguration()
}

// WriteConfiguration saves all archived variables to config.cfg of the
// game directory.
func (h *Host) WriteConfiguration() error {
	return h.writeConfig(configFile)
}

func (h *Host) writeConfig(name string) error {
	var b bytes.Buffer
	b.WriteString("// generated by goquake2, do not modify\n")
	if h.Bindings != nil {
		b.WriteString("unbindall\n")
		if err := h.Bindings.WriteBindings(&b); err != nil {
			return err
		}
	}
	if err := h.Cvars.WriteVariables(&b); err != nil {
		return err
	}
	if err := h.fs.WriteFile(name, b.Bytes()); err != nil {
		return errors.Wrapf(err, "couldn't write %s", name)
	}
	return nil
}

// CompleteCommand returns the command, alias or variable name partial
// completes to.
func (h *Host) CompleteCommand(partial string) (string, bool) {
	if s, ok := h.Commands.Complete(partial); ok {
		return s, true
	}
	if s, ok := h.Aliases.Complete(partial); ok {
		return s, true
	}
	return h.Cvars.Complete(partial)
}

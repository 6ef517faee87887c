// SPDX-License-Identifier: GPL-2.0-or-later

package input

import (
	"bytes"
	"fmt"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"goquake2/cbuf"
	"goquake2/cmd"
	"goquake2/conlog"
	"goquake2/cvar"
	kc "goquake2/keycode"
	"goquake2/math/vec"
	clc "goquake2/protocol/client"
)

type bindTest struct {
	b     *Bindings
	bt    *Buttons
	cb    *cbuf.CommandBuffer
	lines []string
}

// newBindTest wires bindings and buttons to one command buffer and records
// every executed line.
func newBindTest(t *testing.T) *bindTest {
	t.Helper()
	bt := &bindTest{cb: &cbuf.CommandBuffer{}}
	cmds := cmd.New()
	record := func(_ *cbuf.CommandBuffer, a cbuf.Arguments) (bool, error) {
		bt.lines = append(bt.lines, a.Full())
		return false, nil
	}
	bt.cb.SetCommandExecutors([]cbuf.Efunc{record, cmds.Execute()})
	bt.b = NewBindings(bt.cb)
	require.NoError(t, bt.b.Register(cmds))
	bt.bt = New(cvar.New())
	require.NoError(t, bt.bt.Register(cmds))
	return bt
}

// run executes the pending text and returns the executed lines.
func (bt *bindTest) run(t *testing.T) []string {
	t.Helper()
	bt.lines = nil
	require.NoError(t, bt.cb.Execute())
	return bt.lines
}

func captureConsole(t *testing.T) *strings.Builder {
	t.Helper()
	var out strings.Builder
	conlog.SetPrintf(func(format string, v ...interface{}) {
		fmt.Fprintf(&out, format, v...)
	})
	t.Cleanup(func() { conlog.SetPrintf(nil) })
	return &out
}

func TestBindButton(t *testing.T) {
	bt := newBindTest(t)
	bt.cb.AddText("bind w +forward\nbind UPARROW +forward\n")
	bt.run(t)
	assert.Equal(t, "+forward", bt.b.Get('w'))

	bt.b.Event('w', true)
	bt.b.Event('w', true) // auto repeat
	bt.b.Event(kc.UPARROW, true)
	assert.Equal(t, []string{"+forward 119", "+forward 128"}, bt.run(t))

	var view vec.Vec3
	var cmd clc.UserCmd
	bt.bt.Move(&view, &cmd, 16)
	assert.Equal(t, int16(100), cmd.Forward)

	bt.b.Event('w', false)
	assert.Equal(t, []string{"-forward 119"}, bt.run(t))
	cmd = clc.UserCmd{}
	bt.bt.Move(&view, &cmd, 16)
	assert.Equal(t, int16(200), cmd.Forward, "the arrow still holds it")

	bt.b.ReleaseAll()
	assert.Equal(t, []string{"-forward 128"}, bt.run(t))
	bt.bt.Move(&view, &cmd, 16)
	cmd = clc.UserCmd{}
	bt.bt.Move(&view, &cmd, 16)
	assert.Zero(t, cmd.Forward)
}

func TestBindCommand(t *testing.T) {
	bt := newBindTest(t)
	bt.cb.AddText("bind F1 \"impulse 7\"\n")
	bt.run(t)

	bt.b.Event(kc.F1, true)
	assert.Equal(t, []string{"impulse 7"}, bt.run(t))
	bt.b.Event(kc.F1, false)
	assert.Empty(t, bt.run(t), "plain commands ignore the release")

	bt.b.Event('x', true)
	assert.Empty(t, bt.run(t), "unbound")
}

func TestUnbind(t *testing.T) {
	out := captureConsole(t)
	bt := newBindTest(t)
	bt.cb.AddText("bind a +attack\nbind b +use\nunbind a\nbind a\nbind nokey x\n")
	bt.run(t)
	assert.Equal(t, "", bt.b.Get('a'))
	assert.Equal(t, "+use", bt.b.Get('b'))
	assert.Contains(t, out.String(), "\"a\" is not bound\n")
	assert.Contains(t, out.String(), "\"nokey\" isn't a valid key\n")

	bt.cb.AddText("unbindall\n")
	bt.run(t)
	assert.Equal(t, "", bt.b.Get('b'))
}

func TestBindList(t *testing.T) {
	out := captureConsole(t)
	bt := newBindTest(t)
	bt.cb.AddText("bind w +forward\nbind SEMICOLON \"echo a\"\nbind MOUSE1 +attack\nbindlist\n")
	bt.run(t)

	var w bytes.Buffer
	require.NoError(t, bt.b.WriteBindings(&w))
	out.WriteString(w.String())

	g := goldie.New(t)
	g.Assert(t, "bindlist", []byte(out.String()))
}

// SPDX-License-Identifier: GPL-2.0-or-later

package alias

import (
	"fmt"
	"strings"
	"testing"

	"goquake2/cbuf"
	"goquake2/cmd"
	"goquake2/conlog"
)

func TestAliasRegister(t *testing.T) {
	al := New()
	cmds := cmd.New()
	if err := al.Register(cmds); err != nil {
		t.Fatal(err)
	}
	if err := al.Register(cmds); err == nil {
		t.Errorf("second Register succeeded")
	}
}

func TestExecuteAlias(t *testing.T) {
	al := New()
	cmds := cmd.New()
	if err := al.Register(cmds); err != nil {
		t.Fatal(err)
	}
	cb := cbuf.CommandBuffer{}
	worldCount := 0
	p := func(cb *cbuf.CommandBuffer, a cbuf.Arguments) (bool, error) {
		if a.Full() != "world" {
			t.Errorf("Print() = %q, want %q", a.Full(), "world")
		} else {
			worldCount++
		}
		return true, nil
	}
	cb.SetCommandExecutors([]cbuf.Efunc{
		cmds.Execute(), // execute 'alias'
		al.Execute(),   // execute 'hello'
		p,              // execute 'world'
	})

	cb.AddText("alias hello world\n")
	cb.Execute()
	cb.AddText("hello\n")
	cb.AddText("world\n")
	cb.Execute()
	if worldCount != 2 {
		// for 'hello' -> 'world' and 'world'
		t.Errorf("Executed 'world' %d times, want %d", worldCount, 2)
	}
}

func TestPrintAlias(t *testing.T) {
	var pfout, spfout string
	pf := func(s string, a ...any) {
		pfout += fmt.Sprintf(s, a...)
	}
	spf := func(s string, a ...any) {
		spfout += fmt.Sprintf(s, a...)
	}
	conlog.SetPrintf(pf)
	conlog.SetSafePrintf(spf)
	al := New()
	cmds := cmd.New()
	if err := al.Register(cmds); err != nil {
		t.Fatal(err)
	}
	cb := cbuf.CommandBuffer{}
	cb.SetCommandExecutors([]cbuf.Efunc{
		cmds.Execute(), // execute 'alias'
		al.Execute(),   // execute 'hello'
	})

	cb.AddText("alias hello world\n")
	cb.Execute()
	cb.AddText("alias\n")
	cb.Execute()
	if spfout != "  hello: world\n1 alias command(s)\n" {
		t.Errorf("%q", spfout)
	}
	cb.AddText("alias hello\n")
	cb.Execute()
	if pfout != "  hello: world\n" {
		t.Errorf("%q", pfout)
	}
}

func TestSelfReferencingAlias(t *testing.T) {
	var out string
	conlog.SetPrintf(func(s string, a ...any) { out += fmt.Sprintf(s, a...) })
	al := New()
	cmds := cmd.New()
	if err := al.Register(cmds); err != nil {
		t.Fatal(err)
	}
	cb := cbuf.CommandBuffer{}
	cb.SetCommandExecutors([]cbuf.Efunc{cmds.Execute(), al.Execute()})
	cb.AddText("alias loop loop\nloop\n")
	cb.Execute()
	if strings.Count(out, "ALIAS_LOOP_COUNT\n") != 1 {
		t.Errorf("output=%q, want one ALIAS_LOOP_COUNT", out)
	}
	if cb.Len() != 0 {
		t.Errorf("buffer not drained: %d bytes left", cb.Len())
	}
}

func TestUnalias(t *testing.T) {
	al := New()
	cmds := cmd.New()
	if err := al.Register(cmds); err != nil {
		t.Fatal(err)
	}
	cb := cbuf.CommandBuffer{}
	cb.SetCommandExecutors([]cbuf.Efunc{cmds.Execute(), al.Execute()})
	cb.AddText("alias a1 echo;alias a2 echo;alias b echo\nunalias a1\n")
	cb.Execute()
	if _, ok := al.Get("a1"); ok {
		t.Errorf("a1 still defined")
	}
	if got, _ := al.Complete("a"); got != "a2" {
		t.Errorf("Complete(a)=%q, want a2", got)
	}
	cb.AddText("unaliasall\n")
	cb.Execute()
	if _, ok := al.Get("b"); ok {
		t.Errorf("b still defined after unaliasall")
	}
}

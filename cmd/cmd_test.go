// SPDX-License-Identifier: GPL-2.0-or-later

package cmd

import (
	"fmt"
	"testing"

	"github.com/sebdah/goldie/v2"

	"goquake2/cbuf"
	"goquake2/conlog"
)

func TestAddSorted(t *testing.T) {
	c := New()
	for _, n := range []string{"say", "Echo", "connect", "exec"} {
		if err := c.Add(n, func(cbuf.Arguments) error { return nil }); err != nil {
			t.Fatal(err)
		}
	}
	if err := c.Add("echo", nil); err == nil {
		t.Errorf("Add(echo) twice succeeded")
	}
	want := []string{"connect", "echo", "exec", "say"}
	got := c.List()
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Errorf("List()=%v, want %v", got, want)
	}
	c.Remove("exec")
	if c.Exists("exec") {
		t.Errorf("Exists(exec) after Remove")
	}
	if got := c.List(); len(got) != 3 {
		t.Errorf("List()=%v after Remove", got)
	}
}

func TestComplete(t *testing.T) {
	c := New()
	for _, n := range []string{"cmdlist", "cvarlist", "connect", "configstrings"} {
		c.Add(n, nil)
	}
	for _, tc := range []struct {
		in   string
		want string
		ok   bool
	}{
		{"con", "configstrings", true},
		{"conn", "connect", true},
		{"cvarlist", "cvarlist", true},
		{"x", "", false},
		{"", "", false},
	} {
		got, ok := c.Complete(tc.in)
		if got != tc.want || ok != tc.ok {
			t.Errorf("Complete(%q)=%q,%v, want %q,%v", tc.in, got, ok, tc.want, tc.ok)
		}
	}
}

func TestForwardWithoutFunction(t *testing.T) {
	c := New()
	c.Add("say", nil)
	var forwarded string
	c.SetForwarder(func(a cbuf.Arguments) error {
		forwarded = a.Full()
		return nil
	})
	cb := cbuf.CommandBuffer{}
	cb.SetCommandExecutors([]cbuf.Efunc{c.Execute()})
	cb.AddText("say hello\n")
	cb.Execute()
	if forwarded != "say hello" {
		t.Errorf("forwarded=%q, want %q", forwarded, "say hello")
	}
}

func TestCmdList(t *testing.T) {
	var out string
	conlog.SetSafePrintf(func(s string, a ...any) { out += fmt.Sprintf(s, a...) })
	c := New()
	if err := c.Register(); err != nil {
		t.Fatal(err)
	}
	for _, n := range []string{"echo", "exec", "alias", "wait"} {
		c.Add(n, nil)
	}
	cb := cbuf.CommandBuffer{}
	cb.SetCommandExecutors([]cbuf.Efunc{c.Execute()})
	cb.AddText("cmdlist\ncmdlist e\n")
	cb.Execute()

	g := goldie.New(t)
	g.Assert(t, "cmdlist", []byte(out))
}

// SPDX-License-Identifier: GPL-2.0-or-later

package cbuf

import (
	"fmt"
	"strings"
	"testing"

	"goquake2/conlog"
)

func TestWait(t *testing.T) {
	c := CommandBuffer{}
	runCount := 0
	c.SetCommandExecutors([]Efunc{
		func(cb *CommandBuffer, a Arguments) (bool, error) {
			runCount++
			return true, nil
		}})
	c.AddText("wait\n")
	c.AddText("test\n")
	c.AddText("test\n")
	c.AddText("wait\n")
	c.AddText("test\n")
	c.Execute()
	if runCount != 0 {
		t.Errorf("runCount=%v, want %v", runCount, 0)
	}
	c.Execute()
	if runCount != 2 {
		t.Errorf("runCount=%v, want %v", runCount, 2)
	}
	c.Execute()
	if runCount != 3 {
		t.Errorf("runCount=%v, want %v", runCount, 3)
	}
}

func echoExecutor(out *[]string) Efunc {
	return func(cb *CommandBuffer, a Arguments) (bool, error) {
		if a.Argv(0).String() != "echo" {
			return false, nil
		}
		*out = append(*out, a.ArgsFrom(1))
		return true, nil
	}
}

func TestEchoOnce(t *testing.T) {
	var out []string
	c := CommandBuffer{}
	c.SetCommandExecutors([]Efunc{echoExecutor(&out)})
	c.AddText("echo a\n")
	c.Execute()
	c.Execute()
	if len(out) != 1 || out[0] != "a" {
		t.Errorf("echo output=%q, want %q", out, []string{"a"})
	}
	if c.Len() != 0 {
		t.Errorf("Len()=%v, want 0", c.Len())
	}
}

func TestInsertedTextRunsFirst(t *testing.T) {
	var out []string
	c := CommandBuffer{}
	c.SetCommandExecutors([]Efunc{
		func(cb *CommandBuffer, a Arguments) (bool, error) {
			if a.Argv(0).String() == "include" {
				cb.InsertText("echo included1;echo included2")
				return true, nil
			}
			return false, nil
		},
		echoExecutor(&out),
	})
	c.AddText("echo first;include;echo last\n")
	c.Execute()
	want := []string{"first", "included1", "included2", "last"}
	if strings.Join(out, ",") != strings.Join(want, ",") {
		t.Errorf("order=%q, want %q", out, want)
	}
}

func TestSemicolonInQuotes(t *testing.T) {
	var out []string
	c := CommandBuffer{}
	c.SetCommandExecutors([]Efunc{echoExecutor(&out)})
	c.AddText(`echo "a;b";echo c` + "\n")
	c.Execute()
	if len(out) != 2 || out[0] != "a;b" || out[1] != "c" {
		t.Errorf("out=%q", out)
	}
}

func TestOverflow(t *testing.T) {
	var msgs string
	conlog.SetPrintf(func(s string, a ...any) { msgs += fmt.Sprintf(s, a...) })
	c := CommandBuffer{}
	c.AddText(strings.Repeat("x", MaxBufferSize-10))
	c.AddText(strings.Repeat("y", 20))
	if c.Len() != MaxBufferSize-10 {
		t.Errorf("Len()=%v, want %v", c.Len(), MaxBufferSize-10)
	}
	if msgs != "Cbuf_AddText: overflow\n" {
		t.Errorf("msgs=%q", msgs)
	}
}

func TestDefer(t *testing.T) {
	var out []string
	c := CommandBuffer{}
	c.SetCommandExecutors([]Efunc{echoExecutor(&out)})
	c.AddText("echo later\n")
	c.CopyToDefer()
	if c.Len() != 0 {
		t.Fatalf("Len()=%v after CopyToDefer, want 0", c.Len())
	}
	c.AddText("echo now\n")
	c.InsertFromDefer()
	c.Execute()
	if strings.Join(out, ",") != "later,now" {
		t.Errorf("out=%q", out)
	}
}

func TestAliasLoopGuard(t *testing.T) {
	var msgs string
	conlog.SetPrintf(func(s string, a ...any) { msgs += fmt.Sprintf(s, a...) })
	expansions := 0
	c := CommandBuffer{}
	c.SetCommandExecutors([]Efunc{
		func(cb *CommandBuffer, a Arguments) (bool, error) {
			if a.Argv(0).String() != "loop" {
				return false, nil
			}
			if cb.ExpandAlias() {
				expansions++
				cb.InsertText("loop")
			}
			return true, nil
		},
	})
	c.AddText("loop\n")
	c.Execute()
	if expansions != AliasLoopCount {
		t.Errorf("expansions=%v, want %v", expansions, AliasLoopCount)
	}
	if msgs != "ALIAS_LOOP_COUNT\n" {
		t.Errorf("msgs=%q", msgs)
	}
	if c.Len() != 0 {
		t.Errorf("Len()=%v, want 0", c.Len())
	}
}

func TestExecuteCollectsErrors(t *testing.T) {
	c := CommandBuffer{}
	runs := 0
	c.SetCommandExecutors([]Efunc{
		func(cb *CommandBuffer, a Arguments) (bool, error) {
			runs++
			return false, fmt.Errorf("failed %s", a.Argv(0))
		},
	})
	c.AddText("a;b\n")
	err := c.Execute()
	if runs != 2 {
		t.Errorf("runs=%v, want 2", runs)
	}
	if err == nil || !strings.Contains(err.Error(), "failed a") || !strings.Contains(err.Error(), "failed b") {
		t.Errorf("Execute()=%v, want both errors", err)
	}
}

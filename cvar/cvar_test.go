// SPDX-License-Identifier: GPL-2.0-or-later

package cvar

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"goquake2/cbuf"
	"goquake2/cmd"
	"goquake2/conlog"
)

func capture() *string {
	var out string
	conlog.SetPrintf(func(s string, a ...any) { out += fmt.Sprintf(s, a...) })
	conlog.SetSafePrintf(func(s string, a ...any) { out += fmt.Sprintf(s, a...) })
	return &out
}

func TestGetOrsFlags(t *testing.T) {
	r := New()
	cv, err := r.Get("rate", "25000", ARCHIVE)
	require.NoError(t, err)
	again, err := r.Get("rate", "1", USERINFO)
	require.NoError(t, err)
	assert.Same(t, cv, again)
	assert.Equal(t, ARCHIVE|USERINFO, cv.Flags())
	assert.Equal(t, "25000", cv.String())
	assert.Equal(t, float32(25000), cv.Value())
}

func TestGetRejectsInfoChars(t *testing.T) {
	out := capture()
	r := New()
	for _, tc := range []struct {
		name, value string
	}{
		{`na\me`, "x"},
		{`na"me`, "x"},
		{"name", `a;b`},
	} {
		cv, err := r.Get(tc.name, tc.value, USERINFO)
		assert.Error(t, err, "Get(%q, %q)", tc.name, tc.value)
		assert.Nil(t, cv)
	}
	// not info visible, anything goes
	_, err := r.Get(`odd"name`, "a;b", ARCHIVE)
	assert.NoError(t, err)
	assert.Contains(t, *out, "invalid info cvar")
}

func TestReadOnlyNeverChanges(t *testing.T) {
	out := capture()
	r := New()
	r.MustGet("version", "3.21", NOSET)
	for _, v := range []string{"4", "", "3.22"} {
		r.Set("version", v)
		assert.Equal(t, "3.21", r.VariableString("version"))
	}
	assert.Contains(t, *out, "version is write protected.\n")
	r.ForceSet("version", "4.0")
	assert.Equal(t, "4.0", r.VariableString("version"))
}

func TestLatched(t *testing.T) {
	out := capture()
	active := true
	r := New()
	r.SetServerActive(func() bool { return active })
	cv := r.MustGet("maxclients", "1", LATCH|SERVERINFO)

	r.Set("maxclients", "8")
	assert.Equal(t, "1", cv.String())
	l, ok := cv.Latched()
	assert.True(t, ok)
	assert.Equal(t, "8", l)
	assert.Contains(t, *out, "maxclients will be changed for next game.\n")

	r.GetLatchedVars()
	assert.Equal(t, "8", cv.String())
	assert.Equal(t, float32(8), cv.Value())
	_, ok = cv.Latched()
	assert.False(t, ok)

	active = false
	r.Set("maxclients", "4")
	assert.Equal(t, "4", cv.String())
	_, ok = cv.Latched()
	assert.False(t, ok)
}

func TestLatchedResetToCurrent(t *testing.T) {
	capture()
	r := New()
	r.SetServerActive(func() bool { return true })
	cv := r.MustGet("deathmatch", "0", LATCH)
	r.Set("deathmatch", "1")
	r.Set("deathmatch", "0")
	// setting back to the running value still leaves a latch pending
	// for the value that will be applied
	l, ok := cv.Latched()
	assert.True(t, ok)
	assert.Equal(t, "0", l)
	r.GetLatchedVars()
	assert.Equal(t, "0", cv.String())
}

func TestUserinfoModified(t *testing.T) {
	r := New()
	cv := r.MustGet("name", "player", USERINFO|ARCHIVE)
	r.MustGet("hostname", "noname", SERVERINFO)
	r.UserinfoModified = false
	cv.ClearModified()

	r.Set("name", "player")
	assert.False(t, r.UserinfoModified, "same value marks userinfo")

	r.Set("name", "other")
	assert.True(t, r.UserinfoModified)
	assert.True(t, cv.Modified())
	assert.Equal(t, `\name\other`, r.Userinfo())
	assert.Equal(t, `\hostname\noname`, r.Serverinfo())
}

func TestCallback(t *testing.T) {
	r := New()
	cv := r.MustGet("developer", "0", NONE)
	var got string
	cv.SetCallback(func(c *Cvar) { got = c.String() })
	cv.SetValue(1)
	assert.Equal(t, "1", got)
	cv.SetValue(0.5)
	assert.Equal(t, "0.5", got)
}

func TestWriteVariables(t *testing.T) {
	r := New()
	r.MustGet("name", "player", ARCHIVE|USERINFO)
	r.MustGet("fov", "90", ARCHIVE)
	r.MustGet("timeout", "125", NONE)
	var b bytes.Buffer
	require.NoError(t, r.WriteVariables(&b))
	assert.Equal(t, "set fov \"90\"\nset name \"player\"\n", b.String())
}

func TestComplete(t *testing.T) {
	r := New()
	for _, n := range []string{"cl_timeout", "cl_predict", "cl_maxfps"} {
		r.MustGet(n, "0", NONE)
	}
	got, ok := r.Complete("cl_m")
	assert.True(t, ok)
	assert.Equal(t, "cl_maxfps", got)
	got, _ = r.Complete("cl_")
	assert.Equal(t, "cl_maxfps", got)
	_, ok = r.Complete("sv_")
	assert.False(t, ok)
}

func newBuffer(t *testing.T, r *Registry) *cbuf.CommandBuffer {
	cmds := cmd.New()
	require.NoError(t, r.Register(cmds))
	cb := &cbuf.CommandBuffer{}
	cb.SetCommandExecutors([]cbuf.Efunc{cmds.Execute(), r.Execute()})
	return cb
}

func TestCommands(t *testing.T) {
	out := capture()
	r := New()
	cb := newBuffer(t, r)
	cb.AddText("set skin male/grunt u\nset gamename q2 s\nset fov 90\ntoggle fov\ninc fov 5\nfov\n")
	cb.Execute()
	assert.Equal(t, USERINFO, r.vars["skin"].Flags())
	assert.Equal(t, SERVERINFO, r.vars["gamename"].Flags())
	assert.True(t, r.UserinfoModified)
	assert.Equal(t, "5", r.VariableString("fov"))
	assert.Equal(t, "\"fov\" is \"5\"\n", *out)

	cb.AddText("fov 100\nreset fov\nset x y z\n")
	cb.Execute()
	assert.Equal(t, "90", r.VariableString("fov"), "reset uses the creating value")
	assert.Contains(t, *out, "flags can only be 'u' or 's'\n")
}

func TestCvarList(t *testing.T) {
	out := capture()
	r := New()
	r.MustGet("name", "player", ARCHIVE|USERINFO)
	r.MustGet("maxclients", "1", SERVERINFO|LATCH)
	r.MustGet("version", "3.21", SERVERINFO|NOSET)
	r.MustGet("timeout", "125", NONE)
	cb := newBuffer(t, r)
	cb.AddText("cvarlist\ncvarlist ma\n")
	cb.Execute()

	g := goldie.New(t)
	g.Assert(t, "cvarlist", []byte(*out))
}

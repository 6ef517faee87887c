// SPDX-License-Identifier: GPL-2.0-or-later

package host

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"goquake2/cbuf"
	"goquake2/client"
	"goquake2/conlog"
	"goquake2/filesystem"
	"goquake2/keycode"
	"goquake2/server"
)

func captureConsole(t *testing.T) *strings.Builder {
	t.Helper()
	var out strings.Builder
	p := func(format string, v ...interface{}) {
		fmt.Fprintf(&out, format, v...)
	}
	conlog.SetPrintf(p)
	conlog.SetSafePrintf(p)
	t.Cleanup(func() {
		conlog.SetPrintf(nil)
		conlog.SetSafePrintf(nil)
	})
	return &out
}

func writeGameFile(t *testing.T, base, name, content string) {
	t.Helper()
	dir := filepath.Join(base, filesystem.BaseGame)
	require.NoError(t, os.MkdirAll(dir, 0750))
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0660))
}

func newHost(t *testing.T, opts Options) *Host {
	t.Helper()
	if opts.BaseDir == "" {
		opts.BaseDir = t.TempDir()
	}
	opts.Offline = true
	h, err := Init(opts)
	require.NoError(t, err)
	return h
}

// runUntil ticks the host until done reports true.
func runUntil(t *testing.T, h *Host, done func() bool) {
	t.Helper()
	for i := 0; i < 100 && !done(); i++ {
		h.Frame(50)
	}
	require.True(t, done())
}

func clientActive(h *Host) func() bool {
	return func() bool { return h.Client.State() == client.Active }
}

func TestInitCommandLine(t *testing.T) {
	captureConsole(t)
	h := newHost(t, Options{Args: []string{"+set", "developer", "1", "+map", "sandbox"}})
	require.NotNil(t, h.Client)
	runUntil(t, h, clientActive(h))

	assert.Equal(t, "1", h.Cvars.VariableString("developer"))
	assert.Equal(t, "sandbox", h.Server.MapName())
	assert.Equal(t, "sandbox", h.Cvars.VariableString("mapname"))
}

func TestExecConfig(t *testing.T) {
	out := captureConsole(t)
	base := t.TempDir()
	writeGameFile(t, base, "default.cfg", "set cl_run 1\nset name default\n")
	writeGameFile(t, base, "config.cfg", "set name cfgname\nalias greet \"echo hello $name\"\n")

	h := newHost(t, Options{BaseDir: base})
	assert.Equal(t, "1", h.Cvars.VariableString("cl_run"))
	assert.Equal(t, "cfgname", h.Cvars.VariableString("name"))
	assert.Contains(t, out.String(), "execing config.cfg")

	h.Cbuf.AddText("greet\n")
	require.NoError(t, h.Cbuf.Execute())
	assert.Contains(t, out.String(), "hello cfgname\n")

	h.Cbuf.AddText("exec nothing.cfg\n")
	require.NoError(t, h.Cbuf.Execute())
	assert.Contains(t, out.String(), "couldn't exec nothing.cfg")
}

func TestCommandLineOverridesConfig(t *testing.T) {
	captureConsole(t)
	base := t.TempDir()
	writeGameFile(t, base, "config.cfg", "set name cfgname\n")
	h := newHost(t, Options{BaseDir: base, Args: []string{"+set", "name", "cmdline"}})
	assert.Equal(t, "cmdline", h.Cvars.VariableString("name"))
}

func TestShutdownWritesConfig(t *testing.T) {
	captureConsole(t)
	base := t.TempDir()
	h := newHost(t, Options{BaseDir: base})
	h.Cvars.Set("name", "saved")
	h.Cvars.Set("cl_timeout", "30")
	require.NoError(t, h.Shutdown())

	b, err := os.ReadFile(filepath.Join(base, filesystem.BaseGame, configFile))
	require.NoError(t, err)
	assert.Contains(t, string(b), "set name \"saved\"\n")
	assert.NotContains(t, string(b), "cl_timeout", "not archived")

	h2 := newHost(t, Options{BaseDir: base})
	assert.Equal(t, "saved", h2.Cvars.VariableString("name"))
}

func TestShutdownWritesBindings(t *testing.T) {
	captureConsole(t)
	base := t.TempDir()
	h := newHost(t, Options{BaseDir: base})
	require.NoError(t, h.Cbuf.ExecuteString("bind w +forward"))
	require.NoError(t, h.Shutdown())

	b, err := os.ReadFile(filepath.Join(base, filesystem.BaseGame, configFile))
	require.NoError(t, err)
	assert.Contains(t, string(b), "unbindall\nbind w \"+forward\"\n")

	h2 := newHost(t, Options{BaseDir: base})
	assert.Equal(t, "+forward", h2.Bindings.Get(keycode.KeyCode('w')))
}

func TestWriteConfigCommand(t *testing.T) {
	captureConsole(t)
	base := t.TempDir()
	h := newHost(t, Options{BaseDir: base})
	require.NoError(t, h.Cbuf.ExecuteString("writeconfig backup"))
	_, err := os.Stat(filepath.Join(base, filesystem.BaseGame, "backup.cfg"))
	assert.NoError(t, err)
}

func TestErrorAbortsFrame(t *testing.T) {
	out := captureConsole(t)
	h := newHost(t, Options{Args: []string{"+map", "sandbox"}})
	runUntil(t, h, clientActive(h))

	h.Cbuf.AddText("error boom\necho never\n")
	assert.NotPanics(t, func() { h.Frame(50) })
	assert.Contains(t, out.String(), "Error: boom")
	assert.NotContains(t, out.String(), "never", "the rest of the frame is dropped")
	assert.False(t, h.Server.Active())
	assert.Equal(t, client.Disconnected, h.Client.State())

	// the next frames run normally
	h.Cbuf.AddText("map sandbox\n")
	runUntil(t, h, clientActive(h))
}

func TestClientErrorDropsClient(t *testing.T) {
	captureConsole(t)
	h := newHost(t, Options{Args: []string{"+map", "sandbox"}})
	runUntil(t, h, clientActive(h))

	require.NoError(t, h.Commands.Add("bad", func(_ cbuf.Arguments) error {
		panic(server.ClientError{Slot: 0, Cause: "bad message"})
	}))
	h.Cbuf.AddText("bad\n")
	assert.NotPanics(t, func() { h.Frame(50) })

	assert.True(t, h.Server.Active(), "the server keeps running")
	assert.Equal(t, server.Zombie, h.Server.Clients()[0].State())
}

func TestDedicated(t *testing.T) {
	captureConsole(t)
	base := t.TempDir()
	profile := filepath.Join(base, "server.yaml")
	require.NoError(t, os.WriteFile(profile, []byte("hostname: test server\ncvars:\n  fraglimit: \"10\"\n"), 0660))

	h := newHost(t, Options{BaseDir: base, Dedicated: true, MaxClients: 4, Profile: profile})
	assert.Nil(t, h.Client)
	assert.Nil(t, h.Input)
	runUntil(t, h, h.Server.Active)

	assert.Equal(t, "sandbox", h.Server.MapName(), "dedicated_start")
	assert.Equal(t, 4, h.Server.MaxClients())
	assert.Equal(t, "1", h.Cvars.VariableString("deathmatch"))
	assert.Equal(t, "test server", h.Cvars.VariableString("hostname"))
	assert.Equal(t, "10", h.Cvars.VariableString("fraglimit"))
	assert.True(t, h.Commands.Exists("say"))

	h.typed("stat\t")
	assert.Equal(t, []string{"status"}, h.history.Lines())
	require.NoError(t, h.Shutdown())

	h2 := newHost(t, Options{BaseDir: base, Dedicated: true})
	assert.Equal(t, []string{"status"}, h2.history.Lines())
}

func TestProfileMap(t *testing.T) {
	captureConsole(t)
	base := t.TempDir()
	profile := filepath.Join(base, "server.yaml")
	require.NoError(t, os.WriteFile(profile, []byte("map: sandbox$south\n"), 0660))

	h := newHost(t, Options{BaseDir: base, Profile: profile})
	runUntil(t, h, clientActive(h))
	assert.InDelta(t, -768, h.Client.View().Origin.Y, 1)
}

func TestBadProfile(t *testing.T) {
	captureConsole(t)
	base := t.TempDir()
	profile := filepath.Join(base, "server.yaml")
	require.NoError(t, os.WriteFile(profile, []byte("mapp: typo\n"), 0660))

	_, err := Init(Options{BaseDir: base, Profile: profile, Offline: true})
	assert.Error(t, err)
}

func TestCompleteCommand(t *testing.T) {
	captureConsole(t)
	h := newHost(t, Options{})
	h.Aliases.Set("greet", "echo hi\n")

	tests := []struct {
		partial string
		want    string
	}{
		{"cvarl", "cvarlist"},
		{"gre", "greet"},
		{"cl_tim", "cl_timeout"},
		{"disc", "disconnect"},
	}
	for _, tt := range tests {
		got, ok := h.CompleteCommand(tt.partial)
		if !ok || got != tt.want {
			t.Errorf("CompleteCommand(%q) = %q, %v, want %q", tt.partial, got, ok, tt.want)
		}
	}
	if got, ok := h.CompleteCommand("zzz"); ok {
		t.Errorf("CompleteCommand(zzz) = %q, want none", got)
	}
}

func TestGameDir(t *testing.T) {
	captureConsole(t)
	base := t.TempDir()
	h := newHost(t, Options{BaseDir: base})
	h.Cvars.Set("game", "mod")
	h.Frame(50)
	assert.Equal(t, filepath.Join(base, "mod"), h.fs.GameDir())
	assert.Equal(t, "mod", h.Cvars.VariableString("gamedir"))

	h.Cvars.Set("game", "../up")
	h.Frame(50)
	assert.Equal(t, filepath.Join(base, filesystem.BaseGame), h.fs.GameDir())
	assert.Equal(t, "", h.Cvars.VariableString("game"))
}

func TestQuit(t *testing.T) {
	captureConsole(t)
	h := newHost(t, Options{})
	h.Cbuf.AddText("quit\n")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	assert.NoError(t, h.Run(ctx))
	assert.NoError(t, ctx.Err(), "quit before the timeout")
}

func TestRunStopsWithContext(t *testing.T) {
	captureConsole(t)
	h := newHost(t, Options{})
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	assert.NoError(t, h.Run(ctx))
	assert.Positive(t, h.Realtime())
}

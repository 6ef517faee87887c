// SPDX-License-Identifier: GPL-2.0-or-later

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"goquake2/cvar"
)

const profile = `
hostname: frag central
maxclients: 8
deathmatch: true
map: sandbox
cvars:
  sv_airaccelerate: "1"
  fraglimit: "20"
`

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "server.yaml")
	require.NoError(t, os.WriteFile(path, []byte(profile), 0660))

	p, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "frag central", p.Hostname)
	assert.Equal(t, 8, p.MaxClients)
	assert.True(t, p.Deathmatch)
	assert.Equal(t, "sandbox", p.Map)
	assert.Equal(t, map[string]string{"sv_airaccelerate": "1", "fraglimit": "20"}, p.Cvars)
}

func TestLoadMissing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "none.yaml"))
	assert.Error(t, err)
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"unknown field", "hostnme: typo\n"},
		{"bad type", "maxclients: many\n"},
		{"negative", "maxclients: -1\ntimeout: -3\n"},
		{"exclusive", "deathmatch: true\ncoop: true\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.data))
			assert.Error(t, err)
		})
	}
}

func TestApply(t *testing.T) {
	cvars := cvar.New()
	cvars.MustGet("maxclients", "1", cvar.SERVERINFO|cvar.LATCH)
	cvars.MustGet("gamedir", "", cvar.SERVERINFO|cvar.NOSET)

	p, err := Parse([]byte(profile + "  gamedir: mymod\n"))
	require.NoError(t, err)
	err = p.Apply(cvars)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "gamedir is write protected")

	assert.Equal(t, "8", cvars.VariableString("maxclients"))
	assert.Equal(t, "1", cvars.VariableString("deathmatch"))
	assert.Equal(t, "frag central", cvars.VariableString("hostname"))
	assert.Equal(t, "20", cvars.VariableString("fraglimit"))
	assert.Equal(t, "", cvars.VariableString("gamedir"))
}

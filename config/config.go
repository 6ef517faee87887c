// SPDX-License-Identifier: GPL-2.0-or-later

// Package config reads server profiles. A profile seeds console variables
// at startup and names the first map.
package config

import (
	"bytes"
	"fmt"
	"os"
	"sort"
	"strconv"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"goquake2/cvar"
)

// Profile is the YAML layout of a server profile:
//
//	hostname: frag central
//	maxclients: 8
//	deathmatch: true
//	map: q2dm1
//	cvars:
//	  sv_airaccelerate: "1"
type Profile struct {
	Hostname     string            `yaml:"hostname,omitempty"`
	MaxClients   int               `yaml:"maxclients,omitempty"`
	Deathmatch   bool              `yaml:"deathmatch,omitempty"`
	Coop         bool              `yaml:"coop,omitempty"`
	Timeout      int               `yaml:"timeout,omitempty"`
	RconPassword string            `yaml:"rcon_password,omitempty"`
	Map          string            `yaml:"map,omitempty"`
	Cvars        map[string]string `yaml:"cvars,omitempty"`
}

// Load reads the profile at path. Unknown fields are an error.
func Load(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read profile")
	}
	return Parse(data)
}

// Parse decodes a profile.
func Parse(data []byte) (*Profile, error) {
	var p Profile
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&p); err != nil {
		return nil, errors.Wrap(err, "failed to parse profile")
	}
	if err := p.validate(); err != nil {
		return nil, errors.Wrap(err, "invalid profile")
	}
	return &p, nil
}

func (p *Profile) validate() error {
	var result error
	if p.MaxClients < 0 {
		result = multierror.Append(result, errors.Errorf("maxclients %d is negative", p.MaxClients))
	}
	if p.Timeout < 0 {
		result = multierror.Append(result, errors.Errorf("timeout %d is negative", p.Timeout))
	}
	if p.Deathmatch && p.Coop {
		result = multierror.Append(result, errors.New("deathmatch and coop are exclusive"))
	}
	return result
}

func boolString(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

// settings returns the variables of the profile sorted by name.
func (p *Profile) settings() [][2]string {
	var s [][2]string
	if p.Hostname != "" {
		s = append(s, [2]string{"hostname", p.Hostname})
	}
	if p.MaxClients != 0 {
		s = append(s, [2]string{"maxclients", strconv.Itoa(p.MaxClients)})
	}
	if p.Deathmatch {
		s = append(s, [2]string{"deathmatch", boolString(p.Deathmatch)})
	}
	if p.Coop {
		s = append(s, [2]string{"coop", boolString(p.Coop)})
	}
	if p.Timeout != 0 {
		s = append(s, [2]string{"timeout", strconv.Itoa(p.Timeout)})
	}
	if p.RconPassword != "" {
		s = append(s, [2]string{"rcon_password", p.RconPassword})
	}
	for k, v := range p.Cvars {
		s = append(s, [2]string{k, v})
	}
	sort.Slice(s, func(i, j int) bool { return s[i][0] < s[j][0] })
	return s
}

// Apply sets the variables of the profile. Write protected variables are
// skipped and reported, the others are still set.
func (p *Profile) Apply(cvars *cvar.Registry) error {
	var result error
	for _, kv := range p.settings() {
		name, value := kv[0], kv[1]
		if cv, ok := cvars.Find(name); ok && cv.Flags()&cvar.NOSET != 0 {
			result = multierror.Append(result, fmt.Errorf("%s is write protected", name))
			continue
		}
		cvars.Set(name, value)
	}
	if result != nil {
		return multierror.Prefix(result, "profile:")
	}
	return nil
}

// SPDX-License-Identifier: GPL-2.0-or-later

package cvar

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"goquake2/cbuf"
	"goquake2/conlog"
	"goquake2/info"
)

type Flag uint32

const (
	NONE       Flag = 0
	ARCHIVE    Flag = 1      // set to cause it to be saved to config.cfg
	USERINFO   Flag = 1 << 1 // added to userinfo when changed
	SERVERINFO Flag = 1 << 2 // added to serverinfo when changed
	NOSET      Flag = 1 << 3 // don't allow change from console at all, but can be set from the command line
	LATCH      Flag = 1 << 4 // save changes until server restart
)

type CallbackFunc func(cv *Cvar)

type Cvar struct {
	reg   *Registry
	name  string
	flags Flag
	// stringValue is the truth, value the derived one
	stringValue   string
	value         float32
	latchedString string
	hasLatched    bool
	defaultValue  string
	modified      bool
	callback      CallbackFunc
}

func (cv *Cvar) Name() string   { return cv.name }
func (cv *Cvar) String() string { return cv.stringValue }
func (cv *Cvar) Value() float32 { return cv.value }
func (cv *Cvar) Int() int       { return int(cv.value) }
func (cv *Cvar) Bool() bool     { return cv.value != 0 }
func (cv *Cvar) Flags() Flag    { return cv.flags }

func (cv *Cvar) Default() string {
	return cv.defaultValue
}

// Latched returns the value waiting for the next GetLatchedVars.
func (cv *Cvar) Latched() (string, bool) {
	return cv.latchedString, cv.hasLatched
}

// Modified reports whether the value changed since the last ClearModified.
func (cv *Cvar) Modified() bool {
	return cv.modified
}

func (cv *Cvar) ClearModified() {
	cv.modified = false
}

func (cv *Cvar) SetCallback(cb CallbackFunc) {
	cv.callback = cb
}

// SetByString changes the value following the flag rules.
func (cv *Cvar) SetByString(s string) {
	cv.reg.set2(cv.name, s, false)
}

func (cv *Cvar) SetValue(value float32) {
	cv.SetByString(formatValue(value))
}

func formatValue(value float32) string {
	if float32(int(value)) == value {
		return strconv.FormatInt(int64(value), 10)
	}
	return strconv.FormatFloat(float64(value), 'f', -1, 32)
}

func parseValue(s string) float32 {
	pf, err := strconv.ParseFloat(strings.TrimSpace(s), 32)
	if err != nil {
		return 0
	}
	return float32(pf)
}

func (cv *Cvar) assign(s string) {
	cv.stringValue = s
	cv.value = parseValue(s)
	cv.modified = true
	if cv.flags&USERINFO != 0 {
		cv.reg.UserinfoModified = true
	}
	if cv.callback != nil {
		cv.callback(cv)
	}
}

// Registry owns all variables of a process.
type Registry struct {
	vars  map[string]*Cvar
	names []string

	// UserinfoModified is set whenever a USERINFO variable changes, the
	// client clears it after sending the new userinfo.
	UserinfoModified bool

	serverActive func() bool
	isCommand    func(string) bool
}

func New() *Registry {
	return &Registry{vars: make(map[string]*Cvar)}
}

// SetServerActive installs the check deciding if LATCH variables are
// deferred.
func (r *Registry) SetServerActive(f func() bool) {
	r.serverActive = f
}

// SetCommandCheck installs the check that keeps 'set' from shadowing
// commands.
func (r *Registry) SetCommandCheck(f func(string) bool) {
	r.isCommand = f
}

func (r *Registry) Find(name string) (*Cvar, bool) {
	cv, ok := r.vars[name]
	return cv, ok
}

// All returns all variables sorted by name.
func (r *Registry) All() []*Cvar {
	l := make([]*Cvar, 0, len(r.names))
	for _, n := range r.names {
		l = append(l, r.vars[n])
	}
	return l
}

func (r *Registry) VariableString(name string) string {
	if cv, ok := r.vars[name]; ok {
		return cv.stringValue
	}
	return ""
}

func (r *Registry) VariableValue(name string) float32 {
	if cv, ok := r.vars[name]; ok {
		return cv.value
	}
	return 0
}

func (r *Registry) insert(cv *Cvar) {
	r.vars[cv.name] = cv
	i := sort.SearchStrings(r.names, cv.name)
	r.names = append(r.names, "")
	copy(r.names[i+1:], r.names[i:])
	r.names[i] = cv.name
}

// Get returns the variable called name, creating it with value and flags if
// it does not exist. The flags of an existing variable are or'ed with flags.
func (r *Registry) Get(name, value string, flags Flag) (*Cvar, error) {
	if flags&(USERINFO|SERVERINFO) != 0 && !info.ValidPart(name) {
		conlog.Printf("invalid info cvar name\n")
		return nil, errors.Errorf("invalid info cvar name %q", name)
	}
	if cv, ok := r.vars[name]; ok {
		if flags&^cv.flags&USERINFO != 0 {
			r.UserinfoModified = true
		}
		cv.flags |= flags
		return cv, nil
	}
	if flags&(USERINFO|SERVERINFO) != 0 && !info.ValidPart(value) {
		conlog.Printf("invalid info cvar value\n")
		return nil, errors.Errorf("invalid info cvar value %q for %s", value, name)
	}
	cv := &Cvar{
		reg:          r,
		name:         name,
		flags:        flags,
		stringValue:  value,
		value:        parseValue(value),
		defaultValue: value,
		modified:     true,
	}
	r.insert(cv)
	if flags&USERINFO != 0 {
		r.UserinfoModified = true
	}
	return cv, nil
}

// MustGet is Get for variables registered at startup.
func (r *Registry) MustGet(name, value string, flags Flag) *Cvar {
	cv, err := r.Get(name, value, flags)
	if err != nil {
		panic(err.Error())
	}
	return cv
}

func (r *Registry) Set(name, value string) *Cvar {
	return r.set2(name, value, false)
}

// ForceSet ignores NOSET and LATCH.
func (r *Registry) ForceSet(name, value string) *Cvar {
	return r.set2(name, value, true)
}

func (r *Registry) SetValue(name string, value float32) *Cvar {
	return r.set2(name, formatValue(value), false)
}

func (r *Registry) set2(name, value string, force bool) *Cvar {
	cv, ok := r.vars[name]
	if !ok {
		// create it
		cv, _ = r.Get(name, value, NONE)
		return cv
	}
	if cv.flags&(USERINFO|SERVERINFO) != 0 && !info.ValidPart(value) {
		conlog.Printf("invalid info cvar value\n")
		return cv
	}

	if force {
		cv.latchedString, cv.hasLatched = "", false
	} else {
		if cv.flags&NOSET != 0 {
			conlog.Printf("%s is write protected.\n", name)
			return cv
		}
		if cv.flags&LATCH != 0 {
			if cv.hasLatched {
				if value == cv.latchedString {
					return cv
				}
				cv.latchedString, cv.hasLatched = "", false
			} else if value == cv.stringValue {
				return cv
			}
			if r.serverActive != nil && r.serverActive() {
				conlog.Printf("%s will be changed for next game.\n", name)
				cv.latchedString, cv.hasLatched = value, true
				return cv
			}
			cv.assign(value)
			return cv
		}
	}

	if value == cv.stringValue {
		return cv // not changed
	}
	cv.assign(value)
	return cv
}

// FullSet sets value and replaces the flags, creating the variable when
// needed.
func (r *Registry) FullSet(name, value string, flags Flag) *Cvar {
	cv, ok := r.vars[name]
	if !ok {
		cv, _ = r.Get(name, value, flags)
		return cv
	}
	cv.flags = flags
	cv.assign(value)
	return cv
}

// GetLatchedVars applies all pending LATCH values.
func (r *Registry) GetLatchedVars() {
	for _, n := range r.names {
		cv := r.vars[n]
		if !cv.hasLatched {
			continue
		}
		v := cv.latchedString
		cv.latchedString, cv.hasLatched = "", false
		log.Debug().Str("ctx", "cvar").Str("name", n).Str("value", v).Msg("latched value applied")
		cv.assign(v)
	}
}

func (r *Registry) bitInfo(bit Flag) string {
	s := ""
	for _, n := range r.names {
		cv := r.vars[n]
		if cv.flags&bit != 0 {
			s = info.SetValueForKey(s, cv.name, cv.stringValue)
		}
	}
	return s
}

// Userinfo returns an info string containing all the USERINFO variables.
func (r *Registry) Userinfo() string {
	return r.bitInfo(USERINFO)
}

// Serverinfo returns an info string containing all the SERVERINFO variables.
func (r *Registry) Serverinfo() string {
	return r.bitInfo(SERVERINFO)
}

// WriteVariables appends lines that restore all ARCHIVE variables.
func (r *Registry) WriteVariables(w io.Writer) error {
	for _, n := range r.names {
		cv := r.vars[n]
		if cv.flags&ARCHIVE == 0 {
			continue
		}
		if _, err := fmt.Fprintf(w, "set %s \"%s\"\n", cv.name, cv.stringValue); err != nil {
			return errors.Wrap(err, "WriteVariables")
		}
	}
	return nil
}

// Complete returns the exact match for partial or else the first variable
// in sorted order that starts with it.
func (r *Registry) Complete(partial string) (string, bool) {
	if partial == "" {
		return "", false
	}
	if _, ok := r.vars[partial]; ok {
		return partial, true
	}
	i := sort.SearchStrings(r.names, partial)
	if i < len(r.names) && strings.HasPrefix(r.names[i], partial) {
		return r.names[i], true
	}
	return "", false
}

// Execute handles lines whose first token is a variable name by printing or
// setting the variable.
func (r *Registry) Execute() cbuf.Efunc {
	return func(_ *cbuf.CommandBuffer, a cbuf.Arguments) (bool, error) {
		if a.Argc() == 0 {
			return false, nil
		}
		cv, ok := r.Find(a.Argv(0).String())
		if !ok {
			return false, nil
		}
		if a.Argc() == 1 {
			conlog.Printf("\"%s\" is \"%s\"\n", cv.Name(), cv.String())
			return true, nil
		}
		r.Set(cv.name, a.Argv(1).String())
		return true, nil
	}
}

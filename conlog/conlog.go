// SPDX-License-Identifier: GPL-2.0-or-later

package conlog

import (
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

var (
	console = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, PartsExclude: []string{zerolog.TimestampFieldName}})

	p  = defaultPrintf
	sp = defaultPrintf

	developer func() bool

	redirect *strings.Builder
)

func defaultPrintf(format string, v ...interface{}) {
	console.Log().Msg(strings.TrimRight(fmt.Sprintf(format, v...), "\n"))
}

// SetPrintf replaces the console printer, nil restores the default one.
func SetPrintf(f func(string, ...interface{})) {
	if f == nil {
		f = defaultPrintf
	}
	p = f
}

// SetSafePrintf replaces the printer used from outside the main loop.
func SetSafePrintf(f func(string, ...interface{})) {
	if f == nil {
		f = defaultPrintf
	}
	sp = f
}

// SetDeveloper installs the check that gates DPrintf.
func SetDeveloper(f func() bool) {
	developer = f
}

func Printf(format string, v ...interface{}) {
	if redirect != nil {
		fmt.Fprintf(redirect, format, v...)
		return
	}
	p(format, v...)
}

func SafePrintf(format string, v ...interface{}) {
	if redirect != nil {
		fmt.Fprintf(redirect, format, v...)
		return
	}
	sp(format, v...)
}

// DPrintf prints only when developer mode is on.
func DPrintf(format string, v ...interface{}) {
	if developer == nil || !developer() {
		return
	}
	Printf(format, v...)
}

// BeginRedirect captures all console output until EndRedirect is called.
func BeginRedirect() {
	redirect = &strings.Builder{}
}

// EndRedirect stops capturing and returns what was printed since
// BeginRedirect.
func EndRedirect() string {
	if redirect == nil {
		return ""
	}
	s := redirect.String()
	redirect = nil
	return s
}

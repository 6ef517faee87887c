// SPDX-License-Identifier: GPL-2.0-or-later

// Package gametime turns elapsed real time into the msec the server and
// the client frames run.
package gametime

import (
	"goquake2/cvar"
	"goquake2/math"
)

// Filter applies the fixedtime and timescale variables to the real time of
// a host frame.
type Filter struct {
	fixedTime *cvar.Cvar
	timeScale *cvar.Cvar
}

func NewFilter(cvars *cvar.Registry) *Filter {
	return &Filter{
		fixedTime: cvars.MustGet("fixedtime", "0", cvar.NONE),
		timeScale: cvars.MustGet("timescale", "1", cvar.NONE),
	}
}

// Msec returns the game msec of a frame that took real msec.
func (f *Filter) Msec(real int) int {
	if f.fixedTime.Int() > 0 {
		return f.fixedTime.Int()
	}
	if ts := f.timeScale.Value(); ts > 0 {
		return max(1, int(float32(real)*ts))
	}
	return real
}

// Throttle collects the time of skipped client frames. The client runs at
// most cl_maxfps frames per second.
type Throttle struct {
	maxFPS *cvar.Cvar
	extra  int
}

func NewThrottle(cvars *cvar.Registry) *Throttle {
	return &Throttle{
		maxFPS: cvars.MustGet("cl_maxfps", "90", cvar.NONE),
	}
}

// Add adds msec to the collected time and returns it if a client frame is
// due. A connecting client runs at most 10 frames per second.
func (t *Throttle) Add(msec int, connecting bool) (int, bool) {
	t.extra += msec
	if connecting && t.extra < 100 {
		return 0, false
	}
	fps := math.Clamp(1, t.maxFPS.Value(), 1000)
	if float32(t.extra) < 1000/fps {
		return 0, false
	}
	// never run a frame longer than 200 msec
	r := min(t.extra, 200)
	t.extra = 0
	return r, true
}

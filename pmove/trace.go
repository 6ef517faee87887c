// SPDX-License-Identifier: GPL-2.0-or-later

package pmove

import (
	"goquake2/math/vec"
)

// distEpsilon keeps a traced box this far in front of the surface it hit.
const distEpsilon = 0.03125

// TraceResult describes how far a box got along a trace.
type TraceResult struct {
	AllSolid   bool // the box never left solid space
	StartSolid bool // the box started in solid space
	Fraction   float32
	EndPos     vec.Vec3
	Normal     vec.Vec3 // of the plane that was hit
	Ent        int      // entity hit, -1 for none, 0 for the world
}

// Tracer sweeps a box with the extents mins/maxs from start to end.
type Tracer interface {
	Trace(start, mins, maxs, end vec.Vec3) TraceResult
}

// Room is an axis aligned closed room, the box has to stay between Mins
// and Maxs.
type Room struct {
	Mins, Maxs vec.Vec3
}

func axis(v *vec.Vec3, i int) *float32 {
	switch i {
	case 0:
		return &v.X
	case 1:
		return &v.Y
	}
	return &v.Z
}

func (r Room) Trace(start, mins, maxs, end vec.Vec3) TraceResult {
	// the box center is confined to lo..hi
	lo := vec.Sub(r.Mins, mins)
	hi := vec.Sub(r.Maxs, maxs)

	inside := func(p vec.Vec3) bool {
		for i := 0; i < 3; i++ {
			if *axis(&p, i) < *axis(&lo, i) || *axis(&p, i) > *axis(&hi, i) {
				return false
			}
		}
		return true
	}
	if !inside(start) {
		return TraceResult{
			AllSolid:   !inside(end),
			StartSolid: true,
			EndPos:     start,
			Ent:        0,
		}
	}

	tr := TraceResult{Fraction: 1, EndPos: end, Ent: -1}
	for i := 0; i < 3; i++ {
		s, e := *axis(&start, i), *axis(&end, i)
		d := e - s
		var f float32
		var n vec.Vec3
		switch {
		case d < 0 && e < *axis(&lo, i):
			f = (s - *axis(&lo, i) - distEpsilon) / -d
			*axis(&n, i) = 1
		case d > 0 && e > *axis(&hi, i):
			f = (*axis(&hi, i) - s - distEpsilon) / d
			*axis(&n, i) = -1
		default:
			continue
		}
		f = max(f, 0)
		if f < tr.Fraction {
			tr.Fraction = f
			tr.Normal = n
			tr.Ent = 0
		}
	}
	if tr.Fraction < 1 {
		tr.EndPos = vec.Lerp(start, end, tr.Fraction)
	}
	return tr
}

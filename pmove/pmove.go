// SPDX-License-Identifier: GPL-2.0-or-later

// Package pmove is the player movement shared by the server, which runs it
// authoritatively, and the client, which runs it to predict its own
// position.
package pmove

import (
	"github.com/chewxy/math32"

	"goquake2/conlog"
	qmath "goquake2/math"
	"goquake2/math/vec"
	clc "goquake2/protocol/client"
	svc "goquake2/protocol/server"
)

const (
	stepSize      = 18
	minStepNormal = 0.7 // can't step up onto very steep slopes
	maxClipPlanes = 5
	stopEpsilon   = 0.1
	overClip      = 1.01

	stopSpeed    = 100
	maxSpeed     = 300
	duckSpeed    = 100
	pmAccelerate = 10
	pmFriction   = 6

	jumpSpeed = 270
)

// Pmove is the input and output of one Move.
type Pmove struct {
	// State is changed by Move.
	State svc.PmoveState
	Cmd   clc.UserCmd
	// SnapInitial searches for a valid position around the start origin.
	SnapInitial bool

	Trace         Tracer
	AirAccelerate float32

	// results
	ViewAngles   vec.Vec3
	ViewHeight   float32
	Mins, Maxs   vec.Vec3
	GroundEntity int // -1 when in the air
}

// locals of one Move
type move struct {
	pm *Pmove

	origin, velocity vec.Vec3
	forward, right   vec.Vec3
	frametime        float32
	previousOrigin   [3]int16
}

// Move runs one usercmd on pm.State.
func Move(pm *Pmove) {
	pm.ViewAngles = vec.Vec3{}
	pm.ViewHeight = 0
	pm.GroundEntity = -1
	pm.Mins, pm.Maxs = vec.Vec3{}, vec.Vec3{}

	m := move{
		pm:             pm,
		origin:         fromShorts(pm.State.Origin),
		velocity:       fromShorts(pm.State.Velocity),
		frametime:      float32(pm.Cmd.Msec) * 0.001,
		previousOrigin: pm.State.Origin,
	}
	m.clampAngles()

	if pm.State.Type == svc.PmSpectator {
		m.flyMove()
		m.snapPosition()
		return
	}
	if pm.State.Type >= svc.PmDead {
		pm.Cmd.Forward, pm.Cmd.Side, pm.Cmd.Up = 0, 0, 0
	}
	if pm.State.Type == svc.PmFreeze {
		return // no movement at all
	}

	m.checkDuck()
	if pm.SnapInitial {
		m.initialSnapPosition()
	}
	m.categorizePosition()
	if pm.State.Type == svc.PmDead {
		m.deadMove()
	}

	// drop timing counter
	if pm.State.Time != 0 {
		msec := pm.Cmd.Msec >> 3
		if msec == 0 {
			msec = 1
		}
		if msec >= pm.State.Time {
			pm.State.Flags &^= svc.PmfTimeWaterJump | svc.PmfTimeLand | svc.PmfTimeTeleport
			pm.State.Time = 0
		} else {
			pm.State.Time -= msec
		}
	}

	if pm.State.Flags&svc.PmfTimeTeleport == 0 {
		m.checkJump()
		m.friction()
		// looking up or down only slows horizontal movement a bit
		angles := pm.ViewAngles
		if angles.X > 180 {
			angles.X -= 360
		}
		angles.X /= 3
		m.forward, m.right, _ = vec.AngleVectors(angles)
		m.airMove()
	}

	m.categorizePosition()
	m.snapPosition()
}

func fromShorts(s [3]int16) vec.Vec3 {
	return vec.Vec3{X: float32(s[0]) * 0.125, Y: float32(s[1]) * 0.125, Z: float32(s[2]) * 0.125}
}

func (m *move) trace(start, end vec.Vec3) TraceResult {
	return m.pm.Trace.Trace(start, m.pm.Mins, m.pm.Maxs, end)
}

func (m *move) clampAngles() {
	pm := m.pm
	if pm.State.Flags&svc.PmfTimeTeleport != 0 {
		pm.ViewAngles.Y = qmath.ShortToAngle(pm.Cmd.Angles[1] + pm.State.DeltaAngles[1])
	} else {
		// circularly clamp the angles with deltas
		pm.ViewAngles = vec.Vec3{
			X: qmath.ShortToAngle(pm.Cmd.Angles[0] + pm.State.DeltaAngles[0]),
			Y: qmath.ShortToAngle(pm.Cmd.Angles[1] + pm.State.DeltaAngles[1]),
			Z: qmath.ShortToAngle(pm.Cmd.Angles[2] + pm.State.DeltaAngles[2]),
		}
		pm.ViewAngles.X = qmath.AngleMod(pm.ViewAngles.X)
		pm.ViewAngles.Y = qmath.AngleMod(pm.ViewAngles.Y)
		pm.ViewAngles.Z = qmath.AngleMod(pm.ViewAngles.Z)

		// don't let the player look up or down more than 90 degrees
		switch p := pm.ViewAngles.X; {
		case p > 89 && p < 180:
			pm.ViewAngles.X = 89
		case p < 271 && p >= 180:
			pm.ViewAngles.X = 271
		}
	}
	m.forward, m.right, _ = vec.AngleVectors(pm.ViewAngles)
}

// clipVelocity slides in along the plane defined by normal.
func clipVelocity(in, normal vec.Vec3, overbounce float32) vec.Vec3 {
	backoff := vec.Dot(in, normal) * overbounce
	out := vec.Sub(in, normal.Scale(backoff))
	for i := 0; i < 3; i++ {
		if c := axis(&out, i); *c > -stopEpsilon && *c < stopEpsilon {
			*c = 0
		}
	}
	return out
}

// slideMove moves along the velocity, sliding along up to maxClipPlanes
// surfaces hit on the way.
func (m *move) slideMove() {
	var planes [maxClipPlanes]vec.Vec3
	numPlanes := 0
	primal := m.velocity
	timeLeft := m.frametime

	for bump := 0; bump < 4; bump++ {
		end := vec.MA(m.origin, timeLeft, m.velocity)
		tr := m.trace(m.origin, end)
		if tr.AllSolid {
			// entity is trapped in another solid
			m.velocity.Z = 0
			return
		}
		if tr.Fraction > 0 {
			// actually covered some distance
			m.origin = tr.EndPos
			numPlanes = 0
		}
		if tr.Fraction == 1 {
			break // moved the entire distance
		}
		timeLeft -= timeLeft * tr.Fraction

		// slide along this plane
		if numPlanes >= maxClipPlanes {
			// this shouldn't really happen
			m.velocity = vec.Vec3{}
			break
		}
		planes[numPlanes] = tr.Normal
		numPlanes++

		// modify original velocity so it parallels all of the clip planes
		i := 0
		for ; i < numPlanes; i++ {
			m.velocity = clipVelocity(m.velocity, planes[i], overClip)
			j := 0
			for ; j < numPlanes; j++ {
				if j != i && vec.Dot(m.velocity, planes[j]) < 0 {
					break // not ok
				}
			}
			if j == numPlanes {
				break
			}
		}
		if i == numPlanes {
			// go along the crease
			if numPlanes != 2 {
				m.velocity = vec.Vec3{}
				break
			}
			dir := vec.Cross(planes[0], planes[1])
			m.velocity = dir.Scale(vec.Dot(dir, m.velocity))
		}

		// if velocity is against the original velocity, stop dead to
		// avoid tiny occilations in sloping corners
		if vec.Dot(m.velocity, primal) <= 0 {
			m.velocity = vec.Vec3{}
			break
		}
	}

	if m.pm.State.Time != 0 {
		m.velocity = primal
	}
}

func (m *move) stepSlideMove() {
	startOrigin, startVelocity := m.origin, m.velocity

	m.slideMove()

	downOrigin, downVelocity := m.origin, m.velocity

	up := startOrigin
	up.Z += stepSize
	if tr := m.trace(up, up); tr.AllSolid {
		return // can't step up
	}

	// try sliding above
	m.origin, m.velocity = up, startVelocity
	m.slideMove()

	// push down the final amount
	down := m.origin
	down.Z -= stepSize
	tr := m.trace(m.origin, down)
	if !tr.AllSolid {
		m.origin = tr.EndPos
	}

	up = m.origin
	downDist := sqr(downOrigin.X-startOrigin.X) + sqr(downOrigin.Y-startOrigin.Y)
	upDist := sqr(up.X-startOrigin.X) + sqr(up.Y-startOrigin.Y)
	if downDist > upDist || tr.Normal.Z < minStepNormal {
		m.origin, m.velocity = downOrigin, downVelocity
		return
	}
	m.velocity.Z = downVelocity.Z
}

func sqr(f float32) float32 { return f * f }

func (m *move) friction() {
	speed := m.velocity.Length()
	if speed < 1 {
		m.velocity.X, m.velocity.Y = 0, 0
		return
	}
	drop := float32(0)
	if m.pm.GroundEntity != -1 {
		control := max(speed, stopSpeed)
		drop += control * pmFriction * m.frametime
	}
	newspeed := max(speed-drop, 0) / speed
	m.velocity = m.velocity.Scale(newspeed)
}

// accelerate handles user intended acceleration.
func (m *move) accelerate(wishdir vec.Vec3, wishspeed, accel float32) {
	addspeed := wishspeed - vec.Dot(m.velocity, wishdir)
	if addspeed <= 0 {
		return
	}
	accelspeed := min(accel*m.frametime*wishspeed, addspeed)
	m.velocity = vec.MA(m.velocity, accelspeed, wishdir)
}

func (m *move) airAccelerate(wishdir vec.Vec3, wishspeed, accel float32) {
	wishspd := min(wishspeed, 30)
	addspeed := wishspd - vec.Dot(m.velocity, wishdir)
	if addspeed <= 0 {
		return
	}
	accelspeed := min(accel*wishspeed*m.frametime, addspeed)
	m.velocity = vec.MA(m.velocity, accelspeed, wishdir)
}

func (m *move) airMove() {
	pm := m.pm
	fmove := float32(pm.Cmd.Forward)
	smove := float32(pm.Cmd.Side)

	m.forward.Z, m.right.Z = 0, 0
	m.forward = m.forward.Normalize()
	m.right = m.right.Normalize()

	wishvel := vec.Add(m.forward.Scale(fmove), m.right.Scale(smove))
	wishvel.Z = 0
	wishspeed := wishvel.Length()
	wishdir := wishvel.Normalize()

	// clamp to server defined max speed
	maxspeed := float32(maxSpeed)
	if pm.State.Flags&svc.PmfDucked != 0 {
		maxspeed = duckSpeed
	}
	if wishspeed > maxspeed {
		wishspeed = maxspeed
	}

	gravity := float32(pm.State.Gravity)
	if pm.GroundEntity != -1 {
		m.velocity.Z = 0
		m.accelerate(wishdir, wishspeed, pmAccelerate)
		if gravity > 0 {
			m.velocity.Z = 0
		} else {
			m.velocity.Z -= gravity * m.frametime
		}
		if m.velocity.X == 0 && m.velocity.Y == 0 {
			return
		}
		m.stepSlideMove()
		return
	}

	// not on ground, so little effect on velocity
	if pm.AirAccelerate != 0 {
		m.airAccelerate(wishdir, wishspeed, pm.AirAccelerate)
	} else {
		m.accelerate(wishdir, wishspeed, 1)
	}
	m.velocity.Z -= gravity * m.frametime
	m.stepSlideMove()
}

func (m *move) categorizePosition() {
	pm := m.pm
	if m.velocity.Z > 180 {
		// a jump or a lift carries the player off the ground
		pm.State.Flags &^= svc.PmfOnGround
		pm.GroundEntity = -1
		return
	}

	point := m.origin
	point.Z -= 0.25
	tr := m.trace(m.origin, point)
	if tr.Fraction == 1 || (tr.Normal.Z < minStepNormal && !tr.StartSolid) {
		pm.GroundEntity = -1
		pm.State.Flags &^= svc.PmfOnGround
		return
	}

	pm.GroundEntity = tr.Ent
	if pm.State.Flags&svc.PmfOnGround == 0 {
		// just hit the ground
		pm.State.Flags |= svc.PmfOnGround
		// don't do landing time if we were just going down a slope
		if m.velocity.Z < -200 {
			pm.State.Flags |= svc.PmfTimeLand
			// don't allow another jump for a little while
			if m.velocity.Z < -400 {
				pm.State.Time = 25
			} else {
				pm.State.Time = 18
			}
		}
	}
}

func (m *move) checkJump() {
	pm := m.pm
	if pm.State.Flags&svc.PmfTimeLand != 0 {
		// hasn't been long enough since landing to jump again
		return
	}
	if pm.Cmd.Up < 10 {
		// not holding jump
		pm.State.Flags &^= svc.PmfJumpHeld
		return
	}
	// must wait for jump to be released
	if pm.State.Flags&svc.PmfJumpHeld != 0 {
		return
	}
	if pm.State.Type == svc.PmDead || pm.GroundEntity == -1 {
		return
	}

	pm.GroundEntity = -1
	pm.State.Flags |= svc.PmfJumpHeld
	m.velocity.Z += jumpSpeed
	if m.velocity.Z < jumpSpeed {
		m.velocity.Z = jumpSpeed
	}
}

// flyMove moves a spectator, it never clips.
func (m *move) flyMove() {
	pm := m.pm
	pm.ViewHeight = 22

	// friction
	speed := m.velocity.Length()
	if speed < 1 {
		m.velocity = vec.Vec3{}
	} else {
		control := max(speed, stopSpeed)
		drop := control * pmFriction * 1.5 * m.frametime
		m.velocity = m.velocity.Scale(max(speed-drop, 0) / speed)
	}

	// accelerate
	fmove := float32(pm.Cmd.Forward)
	smove := float32(pm.Cmd.Side)
	wishvel := vec.Add(m.forward.Normalize().Scale(fmove), m.right.Normalize().Scale(smove))
	wishvel.Z += float32(pm.Cmd.Up)
	wishspeed := wishvel.Length()
	wishdir := wishvel.Normalize()
	if wishspeed > maxSpeed {
		wishspeed = maxSpeed
	}
	m.accelerate(wishdir, wishspeed, pmAccelerate)

	// move
	m.origin = vec.MA(m.origin, m.frametime, m.velocity)
}

// checkDuck sets the bounding box and the view height.
func (m *move) checkDuck() {
	pm := m.pm
	pm.Mins = vec.Vec3{X: -16, Y: -16}
	pm.Maxs = vec.Vec3{X: 16, Y: 16}

	if pm.State.Type == svc.PmGib {
		pm.Maxs.Z = 16
		pm.ViewHeight = 8
		return
	}
	pm.Mins.Z = -24

	switch {
	case pm.State.Type == svc.PmDead:
		pm.State.Flags |= svc.PmfDucked
	case pm.Cmd.Up < 0 && pm.State.Flags&svc.PmfOnGround != 0:
		pm.State.Flags |= svc.PmfDucked
	case pm.State.Flags&svc.PmfDucked != 0:
		// try to stand up
		pm.Maxs.Z = 32
		if tr := m.trace(m.origin, m.origin); !tr.AllSolid {
			pm.State.Flags &^= svc.PmfDucked
		}
	}

	if pm.State.Flags&svc.PmfDucked != 0 {
		pm.Maxs.Z = 4
		pm.ViewHeight = -2
	} else {
		pm.Maxs.Z = 32
		pm.ViewHeight = 22
	}
}

func (m *move) deadMove() {
	if m.pm.GroundEntity == -1 {
		return
	}
	// extra friction
	forward := m.velocity.Length() - 20
	if forward <= 0 {
		m.velocity = vec.Vec3{}
		return
	}
	m.velocity = m.velocity.Normalize().Scale(forward)
}

func (m *move) goodPosition(s [3]int16) bool {
	if m.pm.State.Type == svc.PmSpectator {
		return true
	}
	o := fromShorts(s)
	return !m.trace(o, o).AllSolid
}

func toShort(f float32) int16 {
	return int16(math32.Trunc(f * 8))
}

// snapPosition stores origin and velocity in the 1/8 unit state without
// leaving the player stuck in a wall.
func (m *move) snapPosition() {
	// try all single bits first
	jitterBits := [8]int{0, 4, 1, 2, 3, 5, 6, 7}

	pm := m.pm
	var sign [3]int16
	for i := 0; i < 3; i++ {
		v := *axis(&m.velocity, i)
		pm.State.Velocity[i] = toShort(v)

		o := *axis(&m.origin, i)
		if o >= 0 {
			sign[i] = 1
		} else {
			sign[i] = -1
		}
		pm.State.Origin[i] = toShort(o)
		if float32(pm.State.Origin[i])*0.125 == o {
			sign[i] = 0
		}
	}
	base := pm.State.Origin

	for _, bits := range jitterBits {
		pm.State.Origin = base
		for i := 0; i < 3; i++ {
			if bits&(1<<i) != 0 {
				pm.State.Origin[i] += sign[i]
			}
		}
		if m.goodPosition(pm.State.Origin) {
			return
		}
	}

	// go back to the last position
	pm.State.Origin = m.previousOrigin
	conlog.DPrintf("using previous_origin\n")
}

func (m *move) initialSnapPosition() {
	offset := [3]int16{0, -1, 1}
	pm := m.pm
	base := pm.State.Origin

	for _, z := range offset {
		for _, y := range offset {
			for _, x := range offset {
				s := [3]int16{base[0] + x, base[1] + y, base[2] + z}
				if m.goodPosition(s) {
					pm.State.Origin = s
					m.origin = fromShorts(s)
					m.previousOrigin = s
					return
				}
			}
		}
	}
	conlog.DPrintf("Bad InitialSnapPosition\n")
}

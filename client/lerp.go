// SPDX-License-Identifier: GPL-2.0-or-later

package client

import (
	"goquake2/conlog"
	qmath "goquake2/math"
	"goquake2/math/vec"
	"goquake2/protocol"
	svc "goquake2/protocol/server"
)

// View is where the scene is looked at from.
type View struct {
	Origin  vec.Vec3
	Angles  vec.Vec3
	Forward vec.Vec3
	Right   vec.Vec3
	Up      vec.Vec3
	Fov     float32
}

// Entity is one interpolated entity ready to be drawn.
type Entity struct {
	Number    int
	Model     int // model index, 0 for beams
	Frame     int
	OldFrame  int
	BackLerp  float32 // 0.0 = current, 1.0 = old
	Origin    vec.Vec3
	OldOrigin vec.Vec3 // end point of beams
	Angles    vec.Vec3
	Skin      int
	Alpha     float32
	Effects   uint32
	RenderFx  uint32
}

// Refresh receives the interpolated scene of every client frame.
type Refresh interface {
	RenderFrame(v *View, ents []Entity)
}

// AddEntities interpolates the view and all entities between the last two
// frames and hands them to the refresh.
func (c *Client) AddEntities() {
	if c.state != Active {
		return
	}
	cl := c.cl

	switch {
	case cl.time > cl.frame.serverTime:
		if c.cv.showClamp.Bool() {
			conlog.Printf("high clamp %d\n", cl.time-cl.frame.serverTime)
		}
		cl.time = cl.frame.serverTime
		cl.lerpFrac = 1
	case cl.time < cl.frame.serverTime-100:
		if c.cv.showClamp.Bool() {
			conlog.Printf("low clamp %d\n", cl.frame.serverTime-100-cl.time)
		}
		cl.time = cl.frame.serverTime - 100
		cl.lerpFrac = 0
	default:
		cl.lerpFrac = 1 - float32(cl.frame.serverTime-cl.time)*0.01
	}

	c.calcViewValues()
	ents := c.addPacketEntities(&cl.frame)
	if c.refresh != nil {
		c.refresh.RenderFrame(&cl.view, ents)
	}
}

func originOf(p *svc.PmoveState) vec.Vec3 {
	return vec.Vec3{
		X: float32(p.Origin[0]) * 0.125,
		Y: float32(p.Origin[1]) * 0.125,
		Z: float32(p.Origin[2]) * 0.125,
	}
}

// calcViewValues sets the view from the predicted or interpolated player
// state.
func (c *Client) calcViewValues() {
	cl := c.cl
	ps := &cl.frame.ps

	// find the previous frame to interpolate from
	oldframe := &cl.frames[(cl.frame.serverFrame-1)&protocol.UpdateMask]
	if oldframe.serverFrame != cl.frame.serverFrame-1 || !oldframe.valid {
		oldframe = &cl.frame // previous frame was dropped or invalid
	}
	ops := &oldframe.ps

	// see if the player entity was teleported this frame
	for i := 0; i < 3; i++ {
		if d := int(ops.Pmove.Origin[i]) - int(ps.Pmove.Origin[i]); abs(d) > 256*8 {
			ops = ps // don't interpolate
			break
		}
	}

	lerp := cl.lerpFrac
	v := &cl.view

	// calculate the origin
	if c.cv.predict.Bool() && ps.Pmove.Flags&svc.PmfNoPrediction == 0 {
		// use predicted values
		backlerp := 1 - lerp
		offset := vec.Lerp(ops.ViewOffset, ps.ViewOffset, lerp)
		v.Origin = vec.Sub(vec.Add(cl.predictedOrigin, offset), cl.predictionError.Scale(backlerp))

		// smooth out stair climbing
		if delta := c.realtime - cl.predictedStepTime; delta < 100 {
			v.Origin.Z -= cl.predictedStep * float32(100-delta) * 0.01
		}
	} else {
		// just use interpolated values
		from := vec.Add(originOf(&ops.Pmove), ops.ViewOffset)
		to := vec.Add(originOf(&ps.Pmove), ps.ViewOffset)
		v.Origin = vec.Lerp(from, to, lerp)
	}

	if ps.Pmove.Type < svc.PmDead {
		// use predicted values
		v.Angles = cl.predictedAngles
	} else {
		// just use interpolated values
		v.Angles = vec.Vec3{
			X: qmath.LerpAngle(ops.ViewAngles.X, ps.ViewAngles.X, lerp),
			Y: qmath.LerpAngle(ops.ViewAngles.Y, ps.ViewAngles.Y, lerp),
			Z: qmath.LerpAngle(ops.ViewAngles.Z, ps.ViewAngles.Z, lerp),
		}
	}
	v.Angles.X += qmath.LerpAngle(ops.KickAngles.X, ps.KickAngles.X, lerp)
	v.Angles.Y += qmath.LerpAngle(ops.KickAngles.Y, ps.KickAngles.Y, lerp)
	v.Angles.Z += qmath.LerpAngle(ops.KickAngles.Z, ps.KickAngles.Z, lerp)

	v.Forward, v.Right, v.Up = vec.AngleVectors(v.Angles)

	// interpolate field of view
	v.Fov = ops.Fov + lerp*(ps.Fov-ops.Fov)
}

// addPacketEntities interpolates the entities of f.
func (c *Client) addPacketEntities(f *frame) []Entity {
	cl := c.cl
	// bonus items rotate at a fixed rate
	autorotate := qmath.AngleMod(float32(cl.time / 10))

	ents := make([]Entity, 0, f.numEntities)
	for pnum := 0; pnum < f.numEntities; pnum++ {
		s := c.parseEntity(f.parseEntities + pnum)
		cent := &cl.entities[s.Number]

		e := Entity{
			Number:   s.Number,
			Model:    s.Model[0],
			Frame:    s.Frame,
			OldFrame: cent.prev.Frame,
			BackLerp: 1 - cl.lerpFrac,
			Skin:     int(s.Skin),
			Alpha:    1,
			Effects:  s.Effects,
			RenderFx: s.RenderFx,
		}

		if s.RenderFx&(protocol.RfFrameLerp|protocol.RfBeam) != 0 {
			// step origin discretely, because the frames do the animation
			// properly
			e.Origin = cent.current.Origin
			e.OldOrigin = cent.current.OldOrigin
		} else {
			e.Origin = vec.Lerp(cent.prev.Origin, cent.current.Origin, cl.lerpFrac)
			e.OldOrigin = e.Origin
		}

		if s.RenderFx&protocol.RfBeam != 0 {
			// the four beam colors are encoded in 32 bits of the skin
			e.Alpha = 0.3
			e.Skin = int(s.Skin>>(uint(c.rnd.Intn(4))*8)) & 0xff
			e.Model = 0
		}

		// calculate angles
		if s.Effects&protocol.EfRotate != 0 {
			// some bonus items auto-rotate
			e.Angles = vec.Vec3{Y: autorotate}
		} else {
			e.Angles = vec.Vec3{
				X: qmath.LerpAngle(cent.prev.Angles.X, cent.current.Angles.X, cl.lerpFrac),
				Y: qmath.LerpAngle(cent.prev.Angles.Y, cent.current.Angles.Y, cl.lerpFrac),
				Z: qmath.LerpAngle(cent.prev.Angles.Z, cent.current.Angles.Z, cl.lerpFrac),
			}
		}

		if s.Number == cl.playerNum+1 {
			// only draw from mirrors
			continue
		}
		// if set to invisible, skip
		if s.Model[0] == 0 {
			continue
		}
		if e.Alpha < 1 {
			e.RenderFx |= protocol.RfTranslucent
		}
		ents = append(ents, e)
	}
	return ents
}

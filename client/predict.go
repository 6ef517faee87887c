// SPDX-License-Identifier: GPL-2.0-or-later

package client

import (
	"strconv"

	"goquake2/conlog"
	qmath "goquake2/math"
	"goquake2/math/vec"
	"goquake2/pmove"
	"goquake2/protocol"
	svc "goquake2/protocol/server"
)

// SetWorld gives the client the collision model prediction runs against.
// Without one only the view angles are predicted.
func (c *Client) SetWorld(w pmove.Tracer) {
	c.world = w
}

// CheckPredictionError compares the origin the server sent with the one
// predicted for the same command and keeps the difference to decay it in
// the view.
func (c *Client) CheckPredictionError() {
	cl := c.cl
	// calculate the last usercmd_t we sent that the server has processed
	frame := c.netchan.IncomingAcknowledged & protocol.CmdMask

	// compare what the server returned with what we had predicted it to be
	var delta [3]int
	sum := 0
	for i := range delta {
		delta[i] = int(cl.frame.ps.Pmove.Origin[i]) - int(cl.predictedOrigins[frame][i])
		sum += abs(delta[i])
	}

	// save the prediction error for interpolation
	if sum > 640 { // 80 world units
		// a teleport or something
		cl.predictionError = vec.Vec3{}
		return
	}
	if c.cv.showMiss.Bool() && (delta[0] != 0 || delta[1] != 0 || delta[2] != 0) {
		conlog.Printf("prediction miss on %d: %d\n", cl.frame.serverFrame, delta[0]+delta[1]+delta[2])
	}
	cl.predictedOrigins[frame] = cl.frame.ps.Pmove.Origin

	// save for error interpolation
	cl.predictionError = vec.Vec3{
		X: float32(delta[0]) * 0.125,
		Y: float32(delta[1]) * 0.125,
		Z: float32(delta[2]) * 0.125,
	}
}

func abs(i int) int {
	if i < 0 {
		return -i
	}
	return i
}

// PredictMovement replays the commands the server has not acknowledged yet
// on top of the last received player state.
func (c *Client) PredictMovement() {
	cl := c.cl
	if c.state != Active {
		return
	}
	if c.cv.paused.Bool() {
		return
	}

	ps := &cl.frame.ps
	if !c.cv.predict.Bool() || ps.Pmove.Flags&svc.PmfNoPrediction != 0 || c.world == nil {
		// just set angles
		cl.predictedAngles = vec.Vec3{
			X: cl.viewAngles.X + qmath.ShortToAngle(ps.Pmove.DeltaAngles[0]),
			Y: cl.viewAngles.Y + qmath.ShortToAngle(ps.Pmove.DeltaAngles[1]),
			Z: cl.viewAngles.Z + qmath.ShortToAngle(ps.Pmove.DeltaAngles[2]),
		}
		return
	}

	ack := c.netchan.IncomingAcknowledged
	current := c.netchan.OutgoingSequence

	// if we are too far out of date, just freeze
	if current-ack >= protocol.CmdBackup {
		if c.cv.showMiss.Bool() {
			conlog.Printf("exceeded CMD_BACKUP\n")
		}
		return
	}

	airAccel, _ := strconv.ParseFloat(cl.configStrings[protocol.CsAirAccel], 32)
	pm := pmove.Pmove{
		State:         ps.Pmove,
		Trace:         c.world,
		AirAccelerate: float32(airAccel),
	}

	// run frames
	ran := false
	for ack++; ack < current; ack++ {
		ran = true
		frame := ack & protocol.CmdMask
		pm.Cmd = cl.cmds[frame]
		pmove.Move(&pm)

		// save for debug checking
		cl.predictedOrigins[frame] = pm.State.Origin
	}

	if !ran {
		return
	}
	oldz := cl.predictedOrigins[(ack-2)&protocol.CmdMask][2]
	step := int(pm.State.Origin[2]) - int(oldz)
	if step > 63 && step < 160 && pm.State.Flags&svc.PmfOnGround != 0 {
		cl.predictedStep = float32(step) * 0.125
		cl.predictedStepTime = c.realtime - c.frameMsec/2
	}

	// copy results out for rendering
	cl.predictedOrigin = vec.Vec3{
		X: float32(pm.State.Origin[0]) * 0.125,
		Y: float32(pm.State.Origin[1]) * 0.125,
		Z: float32(pm.State.Origin[2]) * 0.125,
	}
	cl.predictedAngles = pm.ViewAngles
}

// SPDX-License-Identifier: GPL-2.0-or-later

package client

import (
	"github.com/rs/zerolog/log"

	qmath "goquake2/math"
	"goquake2/math/vec"
	"goquake2/protocol"
	clc "goquake2/protocol/client"
	"goquake2/qmsg"
)

// Input samples the local input devices.
type Input interface {
	// Move turns view by what was input during frameMsec and fills the
	// movement, buttons and impulse of cmd.
	Move(view *vec.Vec3, cmd *clc.UserCmd, frameMsec int)
}

// clampPitch keeps the pitch the server will see within +-89 degrees.
func (c *Client) clampPitch() {
	cl := c.cl
	pitch := qmath.ShortToAngle(cl.frame.ps.Pmove.DeltaAngles[0])
	if pitch > 180 {
		pitch -= 360
	}
	switch {
	case cl.viewAngles.X+pitch < -360:
		cl.viewAngles.X += 360 // wrapped
	case cl.viewAngles.X+pitch > 360:
		cl.viewAngles.X -= 360 // wrapped
	}
	switch {
	case cl.viewAngles.X+pitch > 89:
		cl.viewAngles.X = 89 - pitch
	case cl.viewAngles.X+pitch < -89:
		cl.viewAngles.X = -89 - pitch
	}
}

// refreshCmd builds the usercmd of the next outgoing packet from msec of
// input.
func (c *Client) refreshCmd(msec int) {
	cl := c.cl
	i := c.netchan.OutgoingSequence & protocol.CmdMask
	cl.cmdTime[i] = c.realtime // for netgraph ping calculation

	cmd := &cl.cmds[i]
	*cmd = clc.UserCmd{}

	frameMsec := min(max(msec, 1), 200)
	if c.input != nil && c.state > Connecting {
		c.input.Move(&cl.viewAngles, cmd, frameMsec)
	}
	c.clampPitch()
	cmd.Angles[0] = qmath.AngleToShort(cl.viewAngles.X)
	cmd.Angles[1] = qmath.AngleToShort(cl.viewAngles.Y)
	cmd.Angles[2] = qmath.AngleToShort(cl.viewAngles.Z)

	// send milliseconds of time to apply the move
	if msec > 250 {
		msec = 100 // time was unreasonable
	}
	cmd.Msec = byte(max(msec, 1))
}

// SendCmd transmits the current usercmd together with the two before it.
// While loading only the reliable data and a keepalive go out.
func (c *Client) SendCmd() {
	if c.state == Disconnected || c.state == Connecting {
		return
	}

	if c.state == Connected {
		if c.netchan.Message.Len() > 0 || c.forcePacket || c.realtime-c.netchan.LastSent > 1000 {
			c.forcePacket = false
			if err := c.netchan.Transmit(nil, c.realtime); err != nil {
				log.Debug().Str("ctx", "client").Err(err).Msg("transmit")
			}
		}
		return
	}

	// send a userinfo update if needed
	if c.cvars.UserinfoModified {
		c.cvars.UserinfoModified = false
		c.netchan.Message.WriteByte(clc.Userinfo)
		c.netchan.Message.WriteString(c.cvars.Userinfo())
	}

	cl := c.cl
	seq := c.netchan.OutgoingSequence
	m := clc.Move{
		// let the server know what the last frame we got was, so the next
		// message can be delta compressed
		LastFrame: int32(cl.frame.serverFrame),
		Oldest:    cl.cmds[(seq-2)&protocol.CmdMask],
		Old:       cl.cmds[(seq-1)&protocol.CmdMask],
		New:       cl.cmds[seq&protocol.CmdMask],
	}
	if c.cv.noDelta.Bool() || !cl.frame.valid {
		m.LastFrame = -1 // no compression
	}
	w := qmsg.NewWriter(128)
	clc.WriteMove(w, &m, seq)

	c.forcePacket = false
	if err := c.netchan.Transmit(w.Bytes(), c.realtime); err != nil {
		log.Debug().Str("ctx", "client").Err(err).Msg("transmit")
	}
}

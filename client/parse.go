// SPDX-License-Identifier: GPL-2.0-or-later

package client

import (
	"io"

	"github.com/chewxy/math32"
	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"goquake2/conlog"
	"goquake2/protocol"
	svc "goquake2/protocol/server"
	"goquake2/qmsg"
)

// ParseServerMessage handles one sequenced message from the server. An
// error ends the connection.
func (c *Client) ParseServerMessage(r *qmsg.Reader) error {
	for {
		cmd, err := r.ReadByte()
		if errors.Is(err, io.EOF) {
			return nil // end of message
		}
		if err != nil {
			return errors.Wrap(err, "CL_ParseServerMessage: Bad server message")
		}
		if err := c.parseServerCommand(cmd, r); err != nil {
			if errors.Is(err, errDisconnect) {
				return err
			}
			return multierror.Prefix(err, "CL_ParseServerMessage:")
		}
	}
}

func (c *Client) parseServerCommand(cmd byte, r *qmsg.Reader) error {
	switch cmd {
	default:
		return errors.Errorf("Illegible server message %d", cmd)

	case svc.Nop:

	case svc.Disconnect:
		return errDisconnect

	case svc.Reconnect:
		conlog.Printf("Server disconnected, reconnecting\n")
		c.state = Connecting
		c.connectTime = connectNow // CheckForResend will fire immediately

	case svc.Print:
		if _, err := r.ReadByte(); err != nil {
			return errors.Wrap(err, "print level")
		}
		s, err := r.ReadString()
		if err != nil {
			return errors.Wrap(err, "print")
		}
		conlog.Printf("%s", s)

	case svc.CenterPrint:
		s, err := r.ReadString()
		if err != nil {
			return errors.Wrap(err, "centerprint")
		}
		conlog.Printf("%s\n", s)

	case svc.StuffText:
		s, err := r.ReadString()
		if err != nil {
			return errors.Wrap(err, "stufftext")
		}
		conlog.DPrintf("stufftext: %s\n", s)
		c.cb.AddText(s)

	case svc.ServerData:
		// make sure any stuffed commands are done
		if err := c.cb.Execute(); err != nil {
			conlog.Printf("%v\n", err)
		}
		return c.parseServerData(r)

	case svc.ConfigString:
		return c.parseConfigString(r)

	case svc.SpawnBaseline:
		return c.parseBaseline(r)

	case svc.Frame:
		return c.parseFrame(r)

	case svc.Layout:
		s, err := r.ReadString()
		if err != nil {
			return errors.Wrap(err, "layout")
		}
		c.cl.layout = s

	case svc.Inventory:
		for i := range c.cl.inventory {
			v, err := r.ReadShort()
			if err != nil {
				return errors.Wrap(err, "inventory")
			}
			c.cl.inventory[i] = int(v)
		}

	case svc.PlayerInfo, svc.PacketEntities, svc.DeltaPacketEntities:
		return errors.New("Out of place frame data")
	}
	return nil
}

// parseServerData starts a new level.
func (c *Client) parseServerData(r *qmsg.Reader) error {
	conlog.DPrintf("Serverdata packet received.\n")

	// wipe the level state
	c.ClearState()
	c.state = Connected

	var result error
	rl := func(what string) int {
		v, err := r.ReadLong()
		if err != nil {
			result = multierror.Append(result, errors.Wrap(err, what))
		}
		return int(v)
	}
	rs := func(what string) string {
		v, err := r.ReadString()
		if err != nil {
			result = multierror.Append(result, errors.Wrap(err, what))
		}
		return v
	}
	c.cl.protocol = rl("protocol")
	c.cl.serverCount = rl("spawncount")
	attract, err := r.ReadByte()
	if err != nil {
		result = multierror.Append(result, errors.Wrap(err, "attractloop"))
	}
	c.cl.attractLoop = attract != 0
	c.cl.gameDir = rs("gamedir")
	pn, err := r.ReadShort()
	if err != nil {
		result = multierror.Append(result, errors.Wrap(err, "playernum"))
	}
	c.cl.playerNum = int(pn)
	c.cl.levelName = rs("levelname")
	if result != nil {
		return result
	}
	if c.cl.protocol != protocol.Version {
		return errors.Errorf("Server returned version %d, not %d", c.cl.protocol, protocol.Version)
	}

	// set gamedir
	if cv, ok := c.cvars.Find("game"); ok && cv.String() != c.cl.gameDir {
		c.cvars.Set("game", c.cl.gameDir)
	}

	conlog.Printf("\n\n%s\n\n", separator)
	conlog.Printf("%s\n", c.cl.levelName)
	log.Info().Str("ctx", "client").Str("session", c.Session.String()).Str("level", c.cl.levelName).
		Int("spawncount", c.cl.serverCount).Int("playernum", c.cl.playerNum).Msg("serverdata")
	return nil
}

const separator = "------------------------------------"

func (c *Client) parseConfigString(r *qmsg.Reader) error {
	i, err := r.ReadShort()
	if err != nil {
		return errors.Wrap(err, "configstring index")
	}
	if i < 0 || int(i) >= protocol.MaxConfigStrings {
		return errors.New("configstring > MAX_CONFIGSTRINGS")
	}
	s, err := r.ReadString()
	if err != nil {
		return errors.Wrap(err, "configstring")
	}
	c.cl.configStrings[i] = s
	return nil
}

func (c *Client) parseBaseline(r *qmsg.Reader) error {
	bits, number, err := svc.ReadEntityBits(r)
	if err != nil {
		return errors.Wrap(err, "baseline")
	}
	if number <= 0 || number >= protocol.MaxEdicts {
		return errors.Errorf("baseline: bad number %d", number)
	}
	var null svc.EntityState
	es, err := svc.ReadDelta(r, &null, number, bits)
	if err != nil {
		return errors.Wrap(err, "baseline")
	}
	c.cl.entities[number].baseline = es
	return nil
}

// parseEntity returns the entity at index of the parse ring.
func (c *Client) parseEntity(index int) *svc.EntityState {
	return &c.cl.parseEntityRing[index&(maxParseEntities-1)]
}

func (c *Client) parseFrame(r *qmsg.Reader) error {
	cl := c.cl
	cl.frame = frame{}

	sf, err := r.ReadLong()
	if err != nil {
		return errors.Wrap(err, "frame")
	}
	df, err := r.ReadLong()
	if err != nil {
		return errors.Wrap(err, "frame delta")
	}
	cl.frame.serverFrame = int(sf)
	cl.frame.deltaFrame = int(df)
	cl.frame.serverTime = cl.frame.serverFrame * 100

	sc, err := r.ReadByte()
	if err != nil {
		return errors.Wrap(err, "frame surpress count")
	}
	cl.surpressCount = int(sc)

	// If the frame is delta compressed from data that we no longer have
	// available, we must suck up the rest of the frame, but not use it,
	// then ask for a non-compressed message.
	var old *frame
	if cl.frame.deltaFrame <= 0 {
		cl.frame.valid = true // uncompressed frame
	} else {
		old = &cl.frames[cl.frame.deltaFrame&protocol.UpdateMask]
		if !old.valid {
			// should never happen
			conlog.Printf("Delta from invalid frame (not supposed to happen!).\n")
		}
		if old.serverFrame != cl.frame.deltaFrame {
			// The frame that the server did the delta from is too old, so
			// we can't reconstruct it properly.
			conlog.Printf("Delta frame too old.\n")
		} else if cl.parseEntities-old.parseEntities > maxParseEntities-128 {
			conlog.Printf("Delta parse_entities too old.\n")
		} else {
			cl.frame.valid = true // valid delta parse
		}
	}

	// clamp time
	cl.time = min(max(cl.time, cl.frame.serverTime-100), cl.frame.serverTime)

	// read areabits
	n, err := r.ReadByte()
	if err != nil {
		return errors.Wrap(err, "areabits")
	}
	if cl.frame.areaBits, err = r.ReadData(int(n)); err != nil {
		return errors.Wrap(err, "areabits")
	}

	// read playerinfo
	if cmd, err := r.ReadByte(); err != nil {
		return errors.Wrap(err, "frame playerinfo")
	} else if cmd != svc.PlayerInfo {
		return errors.Errorf("CL_ParseFrame: 0x%X not playerinfo", cmd)
	}
	var oldps svc.PlayerState
	if old != nil {
		oldps = old.ps
	}
	if cl.frame.ps, err = svc.ReadPlayerState(r, &oldps); err != nil {
		return errors.Wrap(err, "playerstate")
	}
	if cl.attractLoop {
		cl.frame.ps.Pmove.Type = svc.PmFreeze // demo playback
	}

	// read packet entities
	if cmd, err := r.ReadByte(); err != nil {
		return errors.Wrap(err, "frame packetentities")
	} else if cmd != svc.PacketEntities {
		return errors.Errorf("CL_ParseFrame: 0x%X not packetentities", cmd)
	}
	if err := c.parsePacketEntities(r, old, &cl.frame); err != nil {
		return err
	}

	// save the frame off in the backup array for later delta comparisons
	cl.frames[cl.frame.serverFrame&protocol.UpdateMask] = cl.frame

	if !cl.frame.valid {
		return nil
	}
	// getting a valid frame message ends the connection process
	if c.state != Active {
		c.state = Active
		o := cl.frame.ps.Pmove.Origin
		cl.predictedOrigin.X = float32(o[0]) * 0.125
		cl.predictedOrigin.Y = float32(o[1]) * 0.125
		cl.predictedOrigin.Z = float32(o[2]) * 0.125
		cl.predictedAngles = cl.frame.ps.ViewAngles
		log.Info().Str("ctx", "client").Str("session", c.Session.String()).Int("frame", cl.frame.serverFrame).Msg("active")
	}
	if c.cv.predict.Bool() && cl.frame.ps.Pmove.Flags&svc.PmfNoPrediction == 0 {
		c.CheckPredictionError()
	}
	return nil
}

// parsePacketEntities walks the entities of oldframe and the delta in step,
// both are sorted by number.
func (c *Client) parsePacketEntities(r *qmsg.Reader, oldframe, newframe *frame) error {
	cl := c.cl
	newframe.parseEntities = cl.parseEntities
	newframe.numEntities = 0

	const none = 99999
	// delta from the entities present in oldframe
	oldindex := 0
	oldnum := none
	var oldstate *svc.EntityState
	next := func() {
		if oldframe == nil || oldindex >= oldframe.numEntities {
			oldnum = none
			return
		}
		oldstate = c.parseEntity(oldframe.parseEntities + oldindex)
		oldnum = oldstate.Number
	}
	next()

	for {
		bits, newnum, err := svc.ReadEntityBits(r)
		if err != nil {
			return errors.Wrap(err, "CL_ParsePacketEntities: end of message")
		}
		if newnum >= protocol.MaxEdicts {
			return errors.Errorf("CL_ParsePacketEntities: bad number:%d", newnum)
		}
		if newnum == 0 {
			break
		}

		for oldnum < newnum {
			// one or more entities from the old packet are unchanged
			if err := c.deltaEntity(r, newframe, oldnum, oldstate, 0); err != nil {
				return err
			}
			oldindex++
			next()
		}

		switch {
		case bits&svc.URemove != 0:
			// the entity present in oldframe is not in the current frame
			if oldnum != newnum {
				conlog.Printf("U_REMOVE: oldnum != newnum\n")
			}
			oldindex++
			next()

		case oldnum == newnum:
			// delta from previous state
			if err := c.deltaEntity(r, newframe, newnum, oldstate, bits); err != nil {
				return err
			}
			oldindex++
			next()

		case oldnum > newnum:
			// delta from baseline
			if err := c.deltaEntity(r, newframe, newnum, &cl.entities[newnum].baseline, bits); err != nil {
				return err
			}
		}
	}

	// any remaining entities in the old frame are copied over
	for oldnum != none {
		if err := c.deltaEntity(r, newframe, oldnum, oldstate, 0); err != nil {
			return err
		}
		oldindex++
		next()
	}
	return nil
}

// deltaEntity parses one entity into the parse ring and updates what the
// client knows about it.
func (c *Client) deltaEntity(r *qmsg.Reader, f *frame, newnum int, old *svc.EntityState, bits uint32) error {
	cl := c.cl
	ent := &cl.entities[newnum]

	state := c.parseEntity(cl.parseEntities)
	cl.parseEntities++
	f.numEntities++

	s, err := svc.ReadDelta(r, old, newnum, bits)
	if err != nil {
		return errors.Wrapf(err, "entity %d", newnum)
	}
	*state = s

	// some data changes will force no lerping
	if state.Model != ent.current.Model ||
		state.Event == protocol.EvPlayerTeleport || state.Event == protocol.EvOtherTeleport ||
		math32.Abs(state.Origin.X-ent.current.Origin.X) > 512 ||
		math32.Abs(state.Origin.Y-ent.current.Origin.Y) > 512 ||
		math32.Abs(state.Origin.Z-ent.current.Origin.Z) > 512 {
		ent.serverFrame = -99
	}

	if ent.serverFrame != cl.frame.serverFrame-1 {
		// wasn't in last update, so initialize some things:
		// duplicate the current state so lerping doesn't hurt anything
		ent.prev = *state
		if state.Event == protocol.EvOtherTeleport {
			ent.prev.Origin = state.Origin
		} else {
			ent.prev.Origin = state.OldOrigin
		}
	} else {
		// shuffle the last state to previous
		ent.prev = ent.current
	}
	ent.serverFrame = cl.frame.serverFrame
	ent.current = *state
	return nil
}

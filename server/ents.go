// SPDX-License-Identifier: GPL-2.0-or-later

package server

import (
	"github.com/rs/zerolog/log"

	"goquake2/conlog"
	"goquake2/protocol"
	svc "goquake2/protocol/server"
	"goquake2/qmsg"
)

// createBaselines captures the state every visible entity has at level
// start. Entities appearing later in a client frame are delta compressed
// against it.
func (s *Server) createBaselines() {
	for e, ent := range s.game.Entities() {
		if e == 0 || e >= protocol.MaxEdicts || ent == nil {
			continue
		}
		if !ent.Visible() {
			continue
		}
		ent.Number = e

		// take current state as baseline
		ent.OldOrigin = ent.Origin
		s.baselines[e] = *ent
	}
}

// Baseline returns the baseline of entity number.
func (s *Server) Baseline(number int) svc.EntityState {
	return s.baselines[number]
}

func (s *Server) clientEntity(i int) *svc.EntityState {
	return &s.clientEntities[i%len(s.clientEntities)]
}

// buildClientFrame decides which entities are going to be visible to the
// client and copies off the playerstate.
func (s *Server) buildClientFrame(c *Client) {
	frame := &c.frames[s.frameNum&protocol.UpdateMask]
	frame.sentTime = s.realtime // save it for ping calc later

	ps := s.game.PlayerState(c.slot)
	if ps == nil {
		return
	}

	// grab the current player state
	frame.ps = *ps

	// build up the list of visible entities
	frame.numEntities = 0
	frame.firstEntity = s.nextClientEntities

	ents := s.game.Entities()
	for e := 1; e < len(ents) && e < protocol.MaxEdicts; e++ {
		ent := ents[e]
		if ent == nil {
			continue
		}
		// ignore ents without visible models unless they have an effect
		if !ent.Visible() && ent.Event == 0 {
			continue
		}
		if frame.numEntities == protocol.MaxPacketEntites {
			log.Debug().Str("ctx", "server").Str("session", c.Session.String()).
				Int("frame", s.frameNum).Msg("too many packet entities")
			break
		}

		if ent.Number != e {
			conlog.DPrintf("FIXING ENT->S.NUMBER!!!\n")
			ent.Number = e
		}
		// add it to the circular client_entities array
		*s.clientEntity(s.nextClientEntities) = *ent
		s.nextClientEntities++
		frame.numEntities++
	}
}

// writeFrameToClient writes the frame header, the playerstate and the
// entities delta compressed against the last frame the client
// acknowledged.
func (s *Server) writeFrameToClient(c *Client, w *qmsg.Writer) {
	// this is the frame we are creating
	frame := &c.frames[s.frameNum&protocol.UpdateMask]

	var oldframe *clientFrame
	lastframe := c.lastFrame
	switch {
	case c.lastFrame <= 0:
		// client is asking for a retransmit
		lastframe = -1
	case s.frameNum-c.lastFrame >= protocol.UpdateBackup-3:
		// client hasn't gotten a good message through in a long time
		lastframe = -1
	default:
		// we have a valid message to delta from
		oldframe = &c.frames[c.lastFrame&protocol.UpdateMask]
		if s.nextClientEntities-oldframe.firstEntity > len(s.clientEntities) {
			// the entities of the old frame were overwritten
			log.Debug().Str("ctx", "server").Str("session", c.Session.String()).
				Int("lastframe", c.lastFrame).Msg("delta frame entities overwritten")
			oldframe = nil
			lastframe = -1
		}
	}

	w.WriteByte(svc.Frame)
	w.WriteLong(s.frameNum)
	w.WriteLong(lastframe)       // what we are delta'ing from
	w.WriteByte(c.surpressCount) // rate dropped packets
	c.surpressCount = 0

	// send over the areabits
	w.WriteByte(len(frame.areaBits))
	w.Write(frame.areaBits)

	// delta encode the playerstate
	var oldps svc.PlayerState
	if oldframe != nil {
		oldps = oldframe.ps
	}
	svc.WritePlayerState(w, &oldps, &frame.ps)

	// delta encode the entities
	s.emitPacketEntities(oldframe, frame, w)
}

// emitPacketEntities writes a delta update of an entity list to w. Both
// lists are sorted by entity number, so the old and the new list are walked
// in step. Entities in both are delta compressed against the old state,
// new ones against their baseline, and the missing ones removed.
func (s *Server) emitPacketEntities(from, to *clientFrame, w *qmsg.Writer) {
	w.WriteByte(svc.PacketEntities)

	fromNum := 0
	if from != nil {
		fromNum = from.numEntities
	}

	newindex, oldindex := 0, 0
	for newindex < to.numEntities || oldindex < fromNum {
		var newent, oldent *svc.EntityState
		newnum := 9999
		if newindex < to.numEntities {
			newent = s.clientEntity(to.firstEntity + newindex)
			newnum = newent.Number
		}
		oldnum := 9999
		if oldindex < fromNum {
			oldent = s.clientEntity(from.firstEntity + oldindex)
			oldnum = oldent.Number
		}

		switch {
		case newnum == oldnum:
			// delta update from old position. Nothing is written if the
			// entity has not changed at all. Players are always new
			// entities so their old origin is always updated, which
			// prevents warping.
			svc.WriteDeltaEntity(w, oldent, newent, false, newent.Number <= len(s.clients))
			oldindex++
			newindex++
		case newnum < oldnum:
			// this is a new entity, send it from the baseline
			svc.WriteDeltaEntity(w, &s.baselines[newnum], newent, true, true)
			newindex++
		default:
			// the old entity isn't present in the new message
			svc.WriteRemove(w, oldnum)
			oldindex++
		}
	}

	w.WriteShort(0) // end of packetentities
}

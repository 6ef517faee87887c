// SPDX-License-Identifier: GPL-2.0-or-later

package server

import (
	"github.com/rs/zerolog/log"

	"goquake2/conlog"
	"goquake2/protocol"
	"goquake2/qmsg"
)

// rateDrop reports whether the client would exceed its rate with another
// message this frame.
func (s *Server) rateDrop(c *Client) bool {
	// never drop over the loopback
	if c.netchan.Remote.IsLocal() {
		return false
	}
	total := 0
	for _, n := range c.messageSize {
		total += n
	}
	if total > c.rate {
		c.surpressCount++
		c.messageSize[s.frameNum%rateMessages] = 0
		return true
	}
	return false
}

func (s *Server) sendClientDatagram(c *Client) {
	s.buildClientFrame(c)

	msg := qmsg.NewWriter(protocol.MaxMsgLen)
	msg.AllowOverflow = true

	// send over all the relevant entity states and the player state
	s.writeFrameToClient(c, msg)

	// copy the accumulated multicast datagram for this client out to the
	// message. It is necessary for this to be after the entities so that
	// entity references will be current.
	if c.datagram.Overflowed() {
		conlog.Printf("WARNING: datagram overflowed for %s\n", c.name)
	} else {
		msg.Write(c.datagram.Bytes())
	}
	c.datagram.Clear()

	if msg.Overflowed() {
		// must have room left for the packet header
		conlog.Printf("WARNING: msg overflowed for %s\n", c.name)
		msg.Clear()
	}

	// send the datagram
	s.transmit(c, msg.Bytes())

	// record the size for rate estimation
	c.messageSize[s.frameNum%rateMessages] = msg.Len()
}

func (s *Server) transmit(c *Client, data []byte) {
	if err := c.netchan.Transmit(data, s.realtime); err != nil {
		log.Debug().Str("ctx", "server").Str("session", c.Session.String()).Err(err).Msg("transmit failed")
	}
}

// SendClientMessages sends the current frame to all spawned clients and
// keeps the reliable stream of the others flowing.
func (s *Server) SendClientMessages() {
	for _, c := range s.clients {
		if c.state == Free {
			continue
		}
		// if the reliable message overflowed, drop the client
		if c.netchan.Message.Overflowed() {
			c.netchan.Message.Clear()
			c.datagram.Clear()
			s.BroadcastPrintf(protocol.PrintHigh, "%s overflowed\n", c.name)
			s.DropClient(c)
		}

		switch {
		case s.state == StateCinematic || s.state == StatePic:
			s.transmit(c, nil)
		case c.state == Spawned:
			// don't overrun bandwidth
			if s.rateDrop(c) {
				continue
			}
			s.sendClientDatagram(c)
		default:
			// just update reliable if needed
			if c.netchan.Message.Len() > 0 || s.realtime-c.netchan.LastSent > 1000 {
				s.transmit(c, nil)
			}
		}
	}
}

// SPDX-License-Identifier: GPL-2.0-or-later

package server

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"goquake2/cbuf"
	"goquake2/conlog"
	"goquake2/info"
	"goquake2/net"
	"goquake2/protocol"
	"goquake2/qmsg"
)

// Version is reported to clients speaking another protocol.
const Version = "3.21"

// connectionless handles a packet starting with the out of band marker.
// Clients that are in the game can still send these.
func (s *Server) connectionless(p net.Packet) {
	r := qmsg.NewReader(p.Data)
	r.ReadLong() // skip the -1 marker
	line := r.ReadStringLine()
	a := cbuf.Parse(line)

	c := a.Argv(0).String()
	log.Debug().Str("ctx", "server").Str("from", p.From.String()).Str("cmd", c).Msg("connectionless packet")

	switch c {
	case "ping":
		s.oob(p.From, "ack")
	case "ack":
		conlog.Printf("Ping acknowledge from %v\n", p.From)
	case "status":
		s.oob(p.From, "print\n%s", s.StatusString())
	case "info":
		s.svcInfo(p.From, a)
	case "getchallenge":
		s.oob(p.From, "challenge %d", s.challenges.issue(p.From, s.realtime))
	case "connect":
		s.directConnect(p.From, a)
	case "rcon":
		s.remoteCommand(p.From, a, line)
	default:
		conlog.Printf("bad connectionless packet from %v:\n%s\n", p.From, line)
	}
}

func (s *Server) oob(to net.Addr, format string, v ...interface{}) {
	if err := net.OutOfBandPrint(s.conn, to, format, v...); err != nil {
		log.Debug().Str("ctx", "server").Err(err).Msg("out of band send failed")
	}
}

// StatusString builds the serverinfo followed by one line per player.
func (s *Server) StatusString() string {
	var b strings.Builder
	b.WriteString(s.cvars.Serverinfo())
	b.WriteString("\n")
	for _, c := range s.clients {
		if c.state != Connected && c.state != Spawned {
			continue
		}
		p := fmt.Sprintf("%d %d \"%s\"\n", s.game.Frags(c.slot), c.ping, c.name)
		if b.Len()+len(p) >= protocol.MaxMsgLen-16 {
			break // can't hold any more
		}
		b.WriteString(p)
	}
	return b.String()
}

// svcInfo responds with short info for broadcast scans.
func (s *Server) svcInfo(from net.Addr, a cbuf.Arguments) {
	if s.cv.maxClients.Int() == 1 {
		return // ignore in single player
	}
	hostname := s.cv.hostname.String()
	if a.Argv(1).Int() != protocol.Version {
		s.oob(from, "info\n%s: wrong version\n", hostname)
		return
	}
	count := 0
	for _, c := range s.clients {
		if c.state >= Connected {
			count++
		}
	}
	s.oob(from, "info\n%16s %8s %2d/%2d\n", hostname, s.name, count, s.cv.maxClients.Int())
}

// directConnect handles a connect request that did not come from a master.
func (s *Server) directConnect(from net.Addr, a cbuf.Arguments) {
	log.Debug().Str("ctx", "server").Str("from", from.String()).Msg("direct connect")

	if version := a.Argv(1).Int(); version != protocol.Version {
		s.oob(from, "print\nServer is version %s.\n", Version)
		log.Debug().Str("ctx", "server").Int("version", version).Msg("rejected connect from version")
		return
	}
	qport := a.Argv(2).Int()
	chal := a.Argv(3).Int()
	// force the IP key/value pair so the game can filter based on ip
	userinfo := info.SetValueForKey(a.Argv(4).String(), "ip", from.String())

	// attractloop servers are ONLY for local clients
	if s.attractLoop && !from.IsLocal() {
		conlog.Printf("Remote connect in attract loop.  Ignored.\n")
		s.oob(from, "print\nConnection refused.\n")
		return
	}

	// see if the challenge is valid
	if !from.IsLocal() {
		switch s.challenges.check(from, chal) {
		case challengeBad:
			s.oob(from, "print\nBad challenge.\n")
			return
		case challengeMissing:
			s.oob(from, "print\nNo challenge for address.\n")
			return
		}
	}

	var newcl *Client
	// if there is already a slot for this ip, reuse it
	for _, c := range s.clients {
		if c.state < Connected {
			continue
		}
		if c.netchan.Remote.SameBase(from) && (c.netchan.QPort == qport || c.netchan.Remote.Port() == from.Port()) {
			if !from.IsLocal() && s.realtime-c.lastConnect < int(s.cv.reconnectLimit.Value()*1000) {
				log.Debug().Str("ctx", "server").Str("from", from.String()).Msg("reconnect rejected : too soon")
				return
			}
			conlog.Printf("%v:reconnect\n", from)
			newcl = c
			break
		}
	}
	if newcl == nil {
		// find a client slot
		for _, c := range s.clients {
			if c.state == Free {
				newcl = c
				break
			}
		}
	}
	if newcl == nil {
		s.oob(from, "print\nServer is full.\n")
		log.Debug().Str("ctx", "server").Str("from", from.String()).Msg("rejected a connection")
		return
	}

	// give the game a chance to reject this connection or modify the userinfo
	userinfo, ok := s.game.ClientConnect(newcl.slot, userinfo)
	if !ok {
		if m := info.ValueForKey(userinfo, "rejmsg"); m != "" {
			s.oob(from, "print\n%s\nConnection refused.\n", m)
		} else {
			s.oob(from, "print\nConnection refused.\n")
		}
		log.Debug().Str("ctx", "server").Str("from", from.String()).Msg("game rejected a connection")
		return
	}

	// this is the only place a client is ever initialized
	newcl.reset()
	newcl.Session = uuid.New()
	newcl.challenge = chal
	newcl.userinfo = userinfo
	s.userinfoChanged(newcl)

	// send the connect packet to the client
	s.oob(from, "client_connect")

	newcl.netchan.Setup(s.conn, net.ServerSide, from, qport, s.realtime)
	newcl.state = Connected
	newcl.lastMessage = s.realtime // don't timeout
	newcl.lastConnect = s.realtime
	log.Info().Str("ctx", "server").Str("server", s.ID.String()).Str("session", newcl.Session.String()).
		Int("slot", newcl.slot).Str("from", from.String()).Str("name", newcl.name).Msg("client connected")
}

func (s *Server) rconValid(a cbuf.Arguments) bool {
	pw := s.cv.rconPassword.String()
	return pw != "" && a.Argv(1).String() == pw
}

// remoteCommand runs an rcon request with the output redirected back to
// the sender.
func (s *Server) remoteCommand(from net.Addr, a cbuf.Arguments, line string) {
	ok := s.rconValid(a)
	if !ok {
		conlog.Printf("Bad rcon from %v:\n%s\n", from, line)
	} else {
		conlog.Printf("Rcon from %v:\n%s\n", from, line)
	}

	conlog.BeginRedirect()
	if !ok {
		conlog.Printf("Bad rcon_password.\n")
	} else {
		remaining := ""
		for i := 2; i < a.Argc(); i++ {
			remaining += a.Argv(i).String() + " "
		}
		if err := s.cbuf.ExecuteString(remaining); err != nil {
			conlog.Printf("%v\n", err)
		}
	}
	s.flushRedirect(from, conlog.EndRedirect())
}

// flushRedirect sends captured output in packets that fit a message.
func (s *Server) flushRedirect(to net.Addr, out string) {
	const chunk = protocol.MaxMsgLen - 16 - len("print\n")
	for len(out) > 0 {
		n := min(len(out), chunk)
		s.oob(to, "print\n%s", out[:n])
		out = out[n:]
	}
}

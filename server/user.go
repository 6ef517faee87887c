// SPDX-License-Identifier: GPL-2.0-or-later

package server

import (
	"github.com/rs/zerolog/log"

	"goquake2/cbuf"
	"goquake2/conlog"
	"goquake2/info"
	"goquake2/protocol"
	clc "goquake2/protocol/client"
	svc "goquake2/protocol/server"
	"goquake2/qmsg"
)

// maxMoveDrops is the largest packet loss that is filled in with repeated
// commands.
const maxMoveDrops = 20

type userCmd func(s *Server, c *Client, a cbuf.Arguments)

var userCmds map[string]userCmd

func init() {
	userCmds = map[string]userCmd{
		// auto issued
		"new":           (*Server).newClient,
		"configstrings": (*Server).configStrings,
		"baselines":     (*Server).baselines,
		"begin":         (*Server).begin,
		"nextserver":    (*Server).nextServerCmd,
		"disconnect":    (*Server).disconnect,

		// issued by hand at client consoles
		"info": (*Server).showServerinfo,
	}
}

// newClient sends the first message from the server to a connected client.
// This is sent on the initial connection and upon each level load.
func (s *Server) newClient(c *Client, _ cbuf.Arguments) {
	log.Debug().Str("ctx", "server").Str("session", c.Session.String()).Msg("new")
	if c.state != Connected {
		conlog.Printf("New not valid -- already spawned\n")
		return
	}

	m := c.netchan.Message
	// serverdata needs to go over for all types of servers to make sure
	// the protocol is right, and to set the gamedir
	m.WriteByte(svc.ServerData)
	m.WriteLong(protocol.Version)
	m.WriteLong(s.spawnCount)
	if s.attractLoop {
		m.WriteByte(1)
	} else {
		m.WriteByte(0)
	}
	m.WriteString(s.cv.gameDir.String())
	playerNum := c.slot
	if s.state == StatePic {
		playerNum = -1
	}
	m.WriteShort(playerNum)
	// send full levelname
	m.WriteString(s.configStrings[protocol.CsName])

	if s.state == StateGame {
		c.lastCmd = clc.UserCmd{}
		// begin fetching configstrings
		s.stuffText(c, "cmd configstrings %d 0\n", s.spawnCount)
	}
}

// staleSpawn handles the case of a level changing while a client was
// connecting.
func (s *Server) staleSpawn(c *Client, a cbuf.Arguments, what string) bool {
	if a.Argv(1).Int() == s.spawnCount {
		return false
	}
	conlog.Printf("SV_%s_f from different level\n", what)
	s.newClient(c, a)
	return true
}

func (s *Server) configStrings(c *Client, a cbuf.Arguments) {
	if c.state != Connected {
		conlog.Printf("configstrings not valid -- already spawned\n")
		return
	}
	if s.staleSpawn(c, a, "Configstrings") {
		return
	}
	start := max(a.Argv(2).Int(), 0)

	// write a packet full of data
	m := c.netchan.Message
	for m.Len() < protocol.MaxMsgLen/2 && start < protocol.MaxConfigStrings {
		if cs := s.configStrings[start]; cs != "" {
			m.WriteByte(svc.ConfigString)
			m.WriteShort(start)
			m.WriteString(cs)
		}
		start++
	}

	// send next command
	if start == protocol.MaxConfigStrings {
		s.stuffText(c, "cmd baselines %d 0\n", s.spawnCount)
	} else {
		s.stuffText(c, "cmd configstrings %d %d\n", s.spawnCount, start)
	}
}

func (s *Server) baselines(c *Client, a cbuf.Arguments) {
	if c.state != Connected {
		conlog.Printf("baselines not valid -- already spawned\n")
		return
	}
	if s.staleSpawn(c, a, "Baselines") {
		return
	}
	start := max(a.Argv(2).Int(), 0)

	var null svc.EntityState
	m := c.netchan.Message
	for m.Len() < protocol.MaxMsgLen/2 && start < protocol.MaxEdicts {
		if b := &s.baselines[start]; b.Visible() {
			m.WriteByte(svc.SpawnBaseline)
			svc.WriteDeltaEntity(m, &null, b, true, true)
		}
		start++
	}

	if start == protocol.MaxEdicts {
		s.stuffText(c, "precache %d\n", s.spawnCount)
	} else {
		s.stuffText(c, "cmd baselines %d %d\n", s.spawnCount, start)
	}
}

func (s *Server) begin(c *Client, a cbuf.Arguments) {
	log.Debug().Str("ctx", "server").Str("session", c.Session.String()).Msg("begin")
	if s.staleSpawn(c, a, "Begin") {
		return
	}
	c.state = Spawned
	// call the game begin function
	s.game.ClientBegin(c.slot)
	s.cbuf.InsertFromDefer()
}

// disconnect removes the connection of a client that is going to
// disconnect immediately.
func (s *Server) disconnect(c *Client, _ cbuf.Arguments) {
	s.DropClient(c)
}

// showServerinfo dumps the serverinfo to the asking client.
func (s *Server) showServerinfo(c *Client, _ cbuf.Arguments) {
	conlog.BeginRedirect()
	info.Print(s.cvars.Serverinfo())
	s.ClientPrintf(c.slot, protocol.PrintHigh, "%s", conlog.EndRedirect())
}

func (s *Server) nextServerCmd(c *Client, a cbuf.Arguments) {
	if a.Argv(1).Int() != s.spawnCount {
		log.Debug().Str("ctx", "server").Str("session", c.Session.String()).Msg("nextserver from wrong level")
		return // leftover from last server
	}
	s.nextServer()
}

// nextServer ends a cinematic or intermission level.
func (s *Server) nextServer() {
	if s.state == StateGame || (s.state == StatePic && s.cvars.VariableValue("coop") == 0) {
		return // can't nextserver while playing a normal game
	}
	s.spawnCount++ // make sure another doesn't sneak in
	if v := s.cvars.VariableString("nextserver"); v == "" {
		s.cbuf.AddText("killserver\n")
	} else {
		s.cbuf.AddText(v + "\n")
	}
	s.cvars.Set("nextserver", "")
}

// executeUserCommand runs a string command sent by a client. Clients can not
// macro expand variables on the server.
func (s *Server) executeUserCommand(c *Client, line string) {
	a := cbuf.Parse(line)
	if f, ok := userCmds[a.Argv(0).String()]; ok {
		f(s, c, a)
		return
	}
	if s.state == StateGame && c.state == Spawned {
		s.game.ClientCommand(c.slot, a)
	}
}

func (s *Server) clientThink(c *Client, cmd *clc.UserCmd) {
	c.commandMsec -= int(cmd.Msec)
	if c.commandMsec < 0 && s.cv.enforceTime.Bool() {
		conlog.DPrintf("commandMsec underflow from %s\n", c.name)
		log.Debug().Str("ctx", "server").Str("session", c.Session.String()).Int("msec", c.commandMsec).Msg("commandMsec underflow")
		return
	}
	s.game.ClientThink(c.slot, cmd)
}

// executeClientMessage parses a sequenced packet of a client.
func (s *Server) executeClientMessage(c *Client, r *qmsg.Reader) {
	// only allow one move command
	moveIssued := false
	stringCmdCount := 0

	for {
		op, err := r.ReadByte()
		if err != nil {
			return // end of message
		}
		switch op {
		default:
			conlog.Printf("SV_ReadClientMessage: unknown command char\n")
			s.DropClient(c)
			return

		case clc.Nop:

		case clc.Userinfo:
			ui, err := r.ReadString()
			if err != nil {
				conlog.Printf("SV_ReadClientMessage: badread\n")
				s.DropClient(c)
				return
			}
			c.userinfo = ui
			s.userinfoChanged(c)

		case clc.Move:
			if moveIssued {
				return // someone is trying to cheat...
			}
			moveIssued = true
			if !s.readMove(c, r) {
				return
			}

		case clc.StringCmd:
			line, err := r.ReadString()
			if err != nil {
				conlog.Printf("SV_ReadClientMessage: badread\n")
				s.DropClient(c)
				return
			}
			// malicious users may try using too many string commands
			stringCmdCount++
			if stringCmdCount <= protocol.MaxStringCmds {
				s.executeUserCommand(c, line)
			} else {
				log.Debug().Str("ctx", "server").Str("session", c.Session.String()).Str("cmd", line).Msg("string command ignored")
			}
			if c.state == Zombie {
				return // disconnect command
			}
		}
	}
}

// readMove applies a clc_move. It returns false if the rest of the packet
// has to be ignored.
func (s *Server) readMove(c *Client, r *qmsg.Reader) bool {
	m, valid, err := clc.ReadMove(r, c.netchan.IncomingSequence)
	if err != nil {
		conlog.Printf("SV_ReadClientMessage: badread\n")
		s.DropClient(c)
		return false
	}

	lastFrame := int(m.LastFrame)
	if lastFrame != c.lastFrame {
		c.lastFrame = lastFrame
		if lastFrame > 0 {
			c.frameLatency[lastFrame&(protocol.LatencyCounts-1)] =
				s.realtime - c.frames[lastFrame&protocol.UpdateMask].sentTime
		}
	}

	if c.state != Spawned {
		c.lastFrame = -1
		return true
	}

	// if the checksum fails, ignore the rest of the packet
	if !valid {
		log.Debug().Str("ctx", "server").Str("session", c.Session.String()).
			Int32("sequence", c.netchan.IncomingSequence).Msg("failed command checksum")
		return false
	}

	if !s.cv.paused.Bool() {
		s.replay(c, &m)
	}
	c.lastCmd = m.New
	return true
}

// replay runs the commands of a move. Up to two commands lost with dropped
// packets are recovered from the move itself, larger gaps repeat the last
// known command.
func (s *Server) replay(c *Client, m *clc.Move) {
	drop := c.netchan.Dropped
	if drop < maxMoveDrops {
		for drop > 2 {
			s.clientThink(c, &c.lastCmd)
			drop--
		}
		if drop > 1 {
			s.clientThink(c, &m.Oldest)
		}
		if drop > 0 {
			s.clientThink(c, &m.Old)
		}
	}
	s.clientThink(c, &m.New)
}

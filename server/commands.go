// SPDX-License-Identifier: GPL-2.0-or-later

package server

import (
	"fmt"
	"strconv"
	"strings"

	"goquake2/cbuf"
	"goquake2/cmd"
	"goquake2/conlog"
	"goquake2/info"
	"goquake2/protocol"
)

// Register adds the operator commands. say is only offered on dedicated
// servers, a listen server forwards it to the game.
func (s *Server) Register(c *cmd.Commands) error {
	cmds := []struct {
		name string
		f    cmd.QFunc
	}{
		{"kick", s.kick},
		{"status", s.status},
		{"serverinfo", s.serverinfo},
		{"dumpuser", s.dumpUser},
		{"map", s.mapCmd},
		{"gamemap", s.gameMap},
		{"killserver", s.killServer},
	}
	if s.cv.dedicated.Bool() {
		cmds = append(cmds, struct {
			name string
			f    cmd.QFunc
		}{"say", s.say})
	}
	for _, e := range cmds {
		if err := c.Add(e.name, e.f); err != nil {
			return err
		}
	}
	return nil
}

// setPlayer finds the client named by the first argument, either by slot
// number or by name.
func (s *Server) setPlayer(a cbuf.Arguments) *Client {
	if a.Argc() < 2 {
		return nil
	}
	id := a.Argv(1).String()

	// numeric values are just slot numbers
	if id != "" && id[0] >= '0' && id[0] <= '9' {
		n, _ := strconv.Atoi(id)
		if n < 0 || n >= len(s.clients) {
			conlog.Printf("Bad client slot: %d\n", n)
			return nil
		}
		c := s.clients[n]
		if c.state == Free {
			conlog.Printf("Client %d is not active\n", n)
			return nil
		}
		return c
	}

	// check for a name match
	for _, c := range s.clients {
		if c.state == Free {
			continue
		}
		if c.name == id {
			return c
		}
	}
	conlog.Printf("Userid %s is not on the server\n", id)
	return nil
}

// kick drops a client by slot number or name.
func (s *Server) kick(a cbuf.Arguments) error {
	if !s.initialized {
		conlog.Printf("No server running.\n")
		return nil
	}
	if a.Argc() != 2 {
		conlog.Printf("Usage: kick <userid>\n")
		return nil
	}
	c := s.setPlayer(a)
	if c == nil {
		return nil
	}
	s.BroadcastPrintf(protocol.PrintHigh, "%s was kicked\n", c.name)
	// print directly, because the dropped client won't get the
	// BroadcastPrintf message
	s.ClientPrintf(c.slot, protocol.PrintHigh, "You were kicked from the game\n")
	s.DropClient(c)
	c.lastMessage = s.realtime // min case there is a funny zombie
	return nil
}

func (s *Server) status(_ cbuf.Arguments) error {
	if !s.initialized {
		conlog.Printf("No server running.\n")
		return nil
	}
	conlog.Printf("%s", s.statusTable())
	return nil
}

// statusTable formats one line per used slot.
func (s *Server) statusTable() string {
	var b strings.Builder
	fmt.Fprintf(&b, "map              : %s\n", s.name)
	b.WriteString("num score ping name            lastmsg address               qport \n")
	b.WriteString("--- ----- ---- --------------- ------- --------------------- ------\n")
	for _, c := range s.clients {
		if c.state == Free {
			continue
		}
		fmt.Fprintf(&b, "%3d %5d ", c.slot, s.game.Frags(c.slot))
		switch c.state {
		case Connected:
			b.WriteString("CNCT ")
		case Zombie:
			b.WriteString("ZMBI ")
		default:
			fmt.Fprintf(&b, "%4d ", min(c.ping, 9999))
		}
		fmt.Fprintf(&b, "%-16s%7d %-22s%5d\n", c.name, s.realtime-c.lastMessage,
			c.netchan.Remote.String(), c.netchan.QPort)
	}
	b.WriteString("\n")
	return b.String()
}

func (s *Server) serverinfo(_ cbuf.Arguments) error {
	conlog.Printf("Server info settings:\n")
	info.Print(s.cvars.Serverinfo())
	return nil
}

// dumpUser examines all of the userinfo of a client.
func (s *Server) dumpUser(a cbuf.Arguments) error {
	if !s.initialized {
		conlog.Printf("No server running.\n")
		return nil
	}
	if a.Argc() != 2 {
		conlog.Printf("Usage: info <userid>\n")
		return nil
	}
	c := s.setPlayer(a)
	if c == nil {
		return nil
	}
	conlog.Printf("userinfo\n")
	conlog.Printf("--------\n")
	info.Print(c.userinfo)
	return nil
}

// mapCmd starts a new game from scratch, forgetting the current one.
func (s *Server) mapCmd(a cbuf.Arguments) error {
	if a.Argc() != 2 {
		conlog.Printf("USAGE: map <levelname>\n")
		return nil
	}
	s.state = StateDead // don't keep the current level when changing
	s.Map(a.Argv(1).String(), false)
	return nil
}

// gameMap changes the level inside the running game. Clients stay
// connected.
func (s *Server) gameMap(a cbuf.Arguments) error {
	if a.Argc() != 2 {
		conlog.Printf("USAGE: gamemap <map>\n")
		return nil
	}
	s.Map(a.Argv(1).String(), false)
	return nil
}

// killServer kicks everyone off and stops the server.
func (s *Server) killServer(_ cbuf.Arguments) error {
	if !s.initialized {
		return nil
	}
	s.Shutdown("Server was killed.\n", false)
	return nil
}

// say sends a chat line from the server console.
func (s *Server) say(a cbuf.Arguments) error {
	if a.Argc() < 2 {
		return nil
	}
	text := "console: " + strings.Trim(a.ArgsFrom(1), `"`)
	for _, c := range s.clients {
		if c.state != Spawned {
			continue
		}
		s.ClientPrintf(c.slot, protocol.PrintChat, "%s\n", text)
	}
	return nil
}

// SPDX-License-Identifier: GPL-2.0-or-later

package server

import (
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"goquake2/conlog"
	"goquake2/info"
	"goquake2/net"
	"goquake2/protocol"
	clc "goquake2/protocol/client"
	svc "goquake2/protocol/server"
	"goquake2/qmsg"
)

type ClientState int

const (
	Free      ClientState = iota // can be reused for a new connection
	Zombie                       // disconnected, but don't reuse the slot for a couple seconds
	Connected                    // has been assigned a slot, but not in game yet
	Spawned                      // fully in game
)

func (s ClientState) String() string {
	switch s {
	case Free:
		return "free"
	case Zombie:
		return "zombie"
	case Connected:
		return "connected"
	case Spawned:
		return "spawned"
	}
	return strconv.Itoa(int(s))
}

// rateMessages is the number of frames the rate is averaged over.
const rateMessages = 10

type clientFrame struct {
	areaBits    []byte // unused, sent empty
	ps          svc.PlayerState
	numEntities int
	firstEntity int // into the circular client entity store
	sentTime    int // for ping calculations
}

// Client is one connection slot.
type Client struct {
	slot  int
	state ClientState

	// Session changes on every accepted connect, it tags log lines.
	Session uuid.UUID

	userinfo     string
	name         string
	rate         int
	messageLevel int

	lastFrame   int         // for delta compression, -1 for none
	lastCmd     clc.UserCmd // for filling in big drops
	commandMsec int         // reset every 16 frames, running out means time cheating

	frameLatency [protocol.LatencyCounts]int
	ping         int

	surpressCount int // number of messages rate supressed
	messageSize   [rateMessages]int

	// datagram collects unreliable data for the next frame. It can be
	// harmlessly overflowed.
	datagram *qmsg.Writer

	frames [protocol.UpdateBackup]clientFrame

	lastMessage int // realtime of the last packet
	lastConnect int

	challenge int

	netchan net.Netchan
}

func (c *Client) Slot() int             { return c.slot }
func (c *Client) State() ClientState    { return c.state }
func (c *Client) Name() string          { return c.name }
func (c *Client) Ping() int             { return c.ping }
func (c *Client) Userinfo() string      { return c.userinfo }
func (c *Client) Netchan() *net.Netchan { return &c.netchan }

// reset prepares the slot for a new connection.
func (c *Client) reset() {
	slot := c.slot
	*c = Client{slot: slot, lastFrame: -1}
	c.datagram = qmsg.NewWriter(protocol.MaxMsgLen)
	c.datagram.AllowOverflow = true
}

// userinfoChanged pulls the values the server uses out of the userinfo.
func (s *Server) userinfoChanged(c *Client) {
	s.game.ClientUserinfoChanged(c.slot, c.userinfo)

	name := []byte(info.ValueForKey(c.userinfo, "name"))
	if len(name) > 31 {
		name = name[:31]
	}
	// mask off high bit
	for i := range name {
		name[i] &= 127
	}
	c.name = string(name)

	c.rate = 5000
	if v := info.ValueForKey(c.userinfo, "rate"); v != "" {
		r, _ := strconv.Atoi(v)
		c.rate = min(max(r, 100), 15000)
	}
	if v := info.ValueForKey(c.userinfo, "msg"); v != "" {
		c.messageLevel, _ = strconv.Atoi(v)
	}
}

// DropClient is called when the player is leaving the server, either
// willingly or unwillingly. The slot stays a zombie for a few seconds so
// the final reliable message can be resent.
func (s *Server) DropClient(c *Client) {
	// add the disconnect
	c.netchan.Message.WriteByte(svc.Disconnect)
	if c.state == Spawned {
		// the game removes the body, among other things
		s.game.ClientDisconnect(c.slot)
	}
	log.Info().Str("ctx", "server").Str("session", c.Session.String()).
		Int("slot", c.slot).Str("name", c.name).Msg("client dropped")
	c.state = Zombie
	c.name = ""
}

// ClientPrintf sends text to a single client if it passes the client's
// message level.
func (s *Server) ClientPrintf(slot, level int, format string, v ...interface{}) {
	c := s.client(slot)
	if c == nil {
		conlog.Printf(format, v...)
		return
	}
	if level < c.messageLevel {
		return
	}
	c.netchan.Message.WriteByte(svc.Print)
	c.netchan.Message.WriteByte(level)
	c.netchan.Message.WriteString(fmt.Sprintf(format, v...))
}

// BroadcastPrintf sends text to all spawned clients and echoes it on the
// server console.
func (s *Server) BroadcastPrintf(level int, format string, v ...interface{}) {
	m := fmt.Sprintf(format, v...)
	if s.cv.dedicated.Bool() {
		conlog.Printf("%s", m)
	}
	for _, c := range s.clients {
		if level < c.messageLevel || c.state != Spawned {
			continue
		}
		c.netchan.Message.WriteByte(svc.Print)
		c.netchan.Message.WriteByte(level)
		c.netchan.Message.WriteString(m)
	}
}

// BroadcastCommand stuffs text into every connected client's command
// buffer.
func (s *Server) BroadcastCommand(format string, v ...interface{}) {
	if !s.initialized {
		return
	}
	m := fmt.Sprintf(format, v...)
	for _, c := range s.clients {
		if c.state < Connected {
			continue
		}
		c.netchan.Message.WriteByte(svc.StuffText)
		c.netchan.Message.WriteString(m)
	}
}

func (s *Server) CenterPrintf(slot int, format string, v ...interface{}) {
	c := s.client(slot)
	if c == nil {
		return
	}
	c.netchan.Message.WriteByte(svc.CenterPrint)
	c.netchan.Message.WriteString(fmt.Sprintf(format, v...))
}

func (s *Server) stuffText(c *Client, format string, v ...interface{}) {
	c.netchan.Message.WriteByte(svc.StuffText)
	c.netchan.Message.WriteString(fmt.Sprintf(format, v...))
}

func (s *Server) client(slot int) *Client {
	if slot < 0 || slot >= len(s.clients) {
		return nil
	}
	return s.clients[slot]
}

// ClientError is raised when processing a message of a client fails. The
// frame is aborted and the client dropped.
type ClientError struct {
	Slot  int
	Cause interface{}
}

func (e ClientError) Error() string {
	return fmt.Sprintf("client %d: %v", e.Slot, e.Cause)
}
